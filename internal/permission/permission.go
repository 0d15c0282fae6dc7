// Package permission implements the optional "downloads" capability that
// gates exporting a configuration to a file.
package permission

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/policyconf/internal/log"
	"github.com/alfredjeanlab/policyconf/internal/storage"
)

// Downloads is the permission required to export configurations.
const Downloads = "downloads"

// Key is the storage key holding granted permission names.
const Key = "permissions"

// Gate checks, requests and revokes one optional permission.
type Gate interface {
	// Contains reports whether the permission is currently held.
	Contains(ctx context.Context) (bool, error)
	// Request asks for the permission and reports whether it is now held.
	Request(ctx context.Context) (bool, error)
	// Revoke gives the permission up.
	Revoke(ctx context.Context) error
}

// StoredGate persists granted permissions in storage and asks a Prompter
// before granting.
type StoredGate struct {
	mu       sync.Mutex
	backend  storage.Storage
	name     string
	prompter Prompter
	logger   zerolog.Logger
}

// Compile-time check that StoredGate implements Gate.
var _ Gate = (*StoredGate)(nil)

// NewStoredGate returns a gate for the downloads permission.
func NewStoredGate(backend storage.Storage, prompter Prompter) *StoredGate {
	return &StoredGate{
		backend:  backend,
		name:     Downloads,
		prompter: prompter,
		logger:   log.WithComponent("permission"),
	}
}

func (g *StoredGate) Contains(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	granted, err := g.load(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(granted, g.name), nil
}

// Request grants without prompting when the permission is already held.
func (g *StoredGate) Request(ctx context.Context) (bool, error) {
	held, err := g.Contains(ctx)
	if err != nil || held {
		return held, err
	}

	ok, err := g.prompter.Prompt(ctx, g.name)
	if err != nil {
		return false, fmt.Errorf("request %s permission: %w", g.name, err)
	}
	if !ok {
		g.logger.Info().Str("event", "permission.denied").Str("permission", g.name).Msg("permission request denied")
		return false, nil
	}

	if err := g.modify(ctx, func(granted []string) []string {
		if slices.Contains(granted, g.name) {
			return granted
		}
		return append(granted, g.name)
	}); err != nil {
		return false, err
	}
	g.logger.Info().Str("event", "permission.granted").Str("permission", g.name).Msg("permission granted")
	return true, nil
}

func (g *StoredGate) Revoke(ctx context.Context) error {
	if err := g.modify(ctx, func(granted []string) []string {
		return slices.DeleteFunc(granted, func(p string) bool { return p == g.name })
	}); err != nil {
		return err
	}
	g.logger.Info().Str("event", "permission.revoked").Str("permission", g.name).Msg("permission revoked")
	return nil
}

func (g *StoredGate) load(ctx context.Context) ([]string, error) {
	data, found, err := g.backend.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", Key, err)
	}
	return decode(data, found)
}

func (g *StoredGate) modify(ctx context.Context, fn func([]string) []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return storage.Update(ctx, g.backend, Key, func(cur []byte, found bool) ([]byte, error) {
		granted, err := decode(cur, found)
		if err != nil {
			return nil, err
		}
		next := fn(granted)
		if next == nil {
			next = []string{}
		}
		return json.Marshal(next)
	})
}

func decode(data []byte, found bool) ([]string, error) {
	if !found || len(data) == 0 {
		return []string{}, nil
	}
	var granted []string
	if err := json.Unmarshal(data, &granted); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Key, err)
	}
	return granted, nil
}

// Static is a Gate with a fixed answer, for callers that have already
// decided (and for tests).
type Static struct {
	mu      sync.Mutex
	granted bool
	grant   bool
}

// NewStatic returns a gate that starts as held and whose Request answers grant.
func NewStatic(held, grant bool) *Static {
	return &Static{granted: held, grant: grant}
}

func (s *Static) Contains(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted, nil
}

func (s *Static) Request(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grant {
		s.granted = true
	}
	return s.granted, nil
}

func (s *Static) Revoke(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted = false
	return nil
}
