// Package memory is a process-local storage.Storage.
package memory

import (
	"context"
	"sync"

	"github.com/alfredjeanlab/policyconf/internal/storage"
)

// Store keeps values in a map.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
}

var (
	_ storage.Storage = (*Store)(nil)
	_ storage.Updater = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = clone(value)
	return nil
}

// Update runs fn with the store locked.
func (s *Store) Update(_ context.Context, key string, fn storage.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, found := s.values[key]
	next, err := fn(clone(cur), found)
	if err != nil {
		return err
	}
	s.values[key] = clone(next)
	return nil
}

func (s *Store) Close() error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
