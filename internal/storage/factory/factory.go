// Package factory opens a storage backend from a URL.
package factory

import (
	"context"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/policyconf/internal/model"
	"github.com/alfredjeanlab/policyconf/internal/storage"
	"github.com/alfredjeanlab/policyconf/internal/storage/badger"
	"github.com/alfredjeanlab/policyconf/internal/storage/file"
	"github.com/alfredjeanlab/policyconf/internal/storage/memory"
	"github.com/alfredjeanlab/policyconf/internal/storage/postgres"
	"github.com/alfredjeanlab/policyconf/internal/storage/redis"
	"github.com/alfredjeanlab/policyconf/internal/storage/sqlite"
)

// Open returns the backend named by url:
//
//	memory://                      process-local map
//	file:///path/storage.json      JSON document (also any bare path)
//	badger:///path/dir             BadgerDB directory; badger:// is in-memory
//	sqlite:///path/policyconf.db   SQLite database file
//	postgres://user@host/db        PostgreSQL
//	redis://host:6379/0            Redis
func Open(ctx context.Context, url string) (storage.Storage, error) {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		if url == "" {
			return nil, fmt.Errorf("%w: storage url is required", model.ErrInvalidInput)
		}
		return file.New(url)
	}

	switch strings.ToLower(scheme) {
	case "memory", "mem":
		return memory.New(), nil
	case "file":
		return file.New(rest)
	case "badger":
		return badger.Open(rest)
	case "sqlite", "sqlite3":
		if rest == "" {
			return nil, fmt.Errorf("%w: sqlite url needs a path", model.ErrInvalidInput)
		}
		return sqlite.Open(rest)
	case "postgres", "postgresql":
		return postgres.New(url)
	case "redis", "rediss":
		return redis.Open(ctx, url)
	default:
		return nil, fmt.Errorf("%w: unsupported storage scheme %q", model.ErrInvalidInput, scheme)
	}
}

// Scheme returns the lower-cased scheme of url, "file" for bare paths.
func Scheme(url string) string {
	scheme, _, ok := strings.Cut(url, "://")
	if !ok {
		return "file"
	}
	return strings.ToLower(scheme)
}
