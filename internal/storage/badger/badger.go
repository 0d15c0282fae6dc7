// Package badger implements storage.Storage on an embedded BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/alfredjeanlab/policyconf/internal/storage"
)

const keyPrefix = "policyconf:"

// Store is a BadgerDB-backed storage.Storage.
type Store struct {
	db *badger.DB
}

var (
	_ storage.Storage = (*Store)(nil)
	_ storage.Updater = (*Store)(nil)
)

// Open opens the database in dir. An empty dir opens an in-memory database.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		v, ok, err := get(txn, key)
		out, found = v, ok
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return out, found, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	v := append([]byte(nil), value...)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), v)
	}); err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

// Update runs fn in a read-write transaction, retrying on conflict.
func (s *Store) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	for attempt := 0; attempt < storage.MaxUpdateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			cur, found, err := get(txn, key)
			if err != nil {
				return err
			}
			next, err := fn(cur, found)
			if err != nil {
				return err
			}
			return txn.Set([]byte(keyPrefix+key), next)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return storage.ErrConflict
}

func (s *Store) Close() error {
	return s.db.Close()
}

func get(txn *badger.Txn, key string) ([]byte, bool, error) {
	item, err := txn.Get([]byte(keyPrefix + key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
