// Package storage defines the key-value persistence boundary the
// configuration store and the permission gate are built on.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Storage is a byte-valued key-value store.
type Storage interface {
	// Get returns the value stored under key. found is false when the key
	// has never been set.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Close releases the backend's resources.
	Close() error
}

// UpdateFunc computes the new value of a key from its current value. It may
// be called more than once when a backend retries after a conflict, so it
// must not have side effects. Returning an error aborts the update.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Updater is implemented by backends that can read-modify-write a key
// atomically with respect to other writers of the same backend.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// ErrConflict is returned when an atomic update kept losing to concurrent
// writers.
var ErrConflict = errors.New("storage: too many concurrent updates")

// MaxUpdateAttempts bounds optimistic retries in Updater implementations.
const MaxUpdateAttempts = 16

// Update applies fn to key, atomically when s implements Updater and as a
// plain Get followed by Set otherwise.
func Update(ctx context.Context, s Storage, key string, fn UpdateFunc) error {
	if u, ok := s.(Updater); ok {
		return u.Update(ctx, key, fn)
	}
	cur, found, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	next, err := fn(cur, found)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, key, next); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
