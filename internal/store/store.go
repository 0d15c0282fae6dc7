// Package store keeps the ordered list of saved configuration records under
// a single storage key.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/alfredjeanlab/policyconf/internal/idgen"
	"github.com/alfredjeanlab/policyconf/internal/model"
	"github.com/alfredjeanlab/policyconf/internal/storage"
)

// Key is the storage key holding the configuration list.
const Key = "configurations"

// Store defines the persistence interface for configuration records.
// Indexes are 0-based positions in insertion order.
type Store interface {
	// Append adds rec at the end of the list and returns the new list.
	Append(ctx context.Context, rec model.Configuration) ([]model.Configuration, error)
	// RemoveAt deletes the record at index and returns it with the new list.
	RemoveAt(ctx context.Context, index int) (model.Configuration, []model.Configuration, error)
	// List returns every record in insertion order.
	List(ctx context.Context) ([]model.Configuration, error)
	// Get returns the record at index.
	Get(ctx context.Context, index int) (model.Configuration, error)
	// Replace overwrites the whole list.
	Replace(ctx context.Context, records []model.Configuration) error
}

// ListStore implements Store as a read-modify-write of one JSON array.
type ListStore struct {
	mu      sync.Mutex
	backend storage.Storage
	key     string
}

// Compile-time check that ListStore implements Store.
var _ Store = (*ListStore)(nil)

// New returns a store over backend using the default key.
func New(backend storage.Storage) *ListStore {
	return &ListStore{backend: backend, key: Key}
}

func (s *ListStore) Append(ctx context.Context, rec model.Configuration) ([]model.Configuration, error) {
	if rec.ID == "" {
		id, err := idgen.Configuration()
		if err != nil {
			return nil, err
		}
		rec.ID = id
	}
	var out []model.Configuration
	err := s.update(ctx, func(list []model.Configuration) ([]model.Configuration, error) {
		out = append(list, rec)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ListStore) RemoveAt(ctx context.Context, index int) (model.Configuration, []model.Configuration, error) {
	var (
		removed model.Configuration
		out     []model.Configuration
	)
	err := s.update(ctx, func(list []model.Configuration) ([]model.Configuration, error) {
		if err := checkIndex(index, len(list)); err != nil {
			return nil, err
		}
		removed = list[index]
		out = append(list[:index:index], list[index+1:]...)
		return out, nil
	})
	if err != nil {
		return model.Configuration{}, nil, err
	}
	return removed, out, nil
}

func (s *ListStore) List(ctx context.Context) ([]model.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}
	return decode(data, found)
}

func (s *ListStore) Get(ctx context.Context, index int) (model.Configuration, error) {
	list, err := s.List(ctx)
	if err != nil {
		return model.Configuration{}, err
	}
	if err := checkIndex(index, len(list)); err != nil {
		return model.Configuration{}, err
	}
	return list[index], nil
}

func (s *ListStore) Replace(ctx context.Context, records []model.Configuration) error {
	return s.update(ctx, func([]model.Configuration) ([]model.Configuration, error) {
		return records, nil
	})
}

// update runs one read-modify-write cycle. The mutex serializes cycles in
// this process; storage.Update makes the cycle atomic across processes when
// the backend supports it.
func (s *ListStore) update(ctx context.Context, fn func([]model.Configuration) ([]model.Configuration, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storage.Update(ctx, s.backend, s.key, func(cur []byte, found bool) ([]byte, error) {
		list, err := decode(cur, found)
		if err != nil {
			return nil, err
		}
		next, err := fn(list)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []model.Configuration{}
		}
		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", s.key, err)
		}
		return data, nil
	})
}

func decode(data []byte, found bool) ([]model.Configuration, error) {
	list := []model.Configuration{}
	if !found || len(data) == 0 {
		return list, nil
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Key, err)
	}
	if list == nil {
		list = []model.Configuration{}
	}
	return list, nil
}

func checkIndex(index, n int) error {
	if index < 0 || index >= n {
		return fmt.Errorf("%w: configuration %d (have %d)", model.ErrNotFound, index, n)
	}
	return nil
}
