package factory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/alfredjeanlab/policyconf/internal/model"
	"github.com/alfredjeanlab/policyconf/internal/storage"
	"github.com/alfredjeanlab/policyconf/internal/storage/badger"
	"github.com/alfredjeanlab/policyconf/internal/storage/file"
	"github.com/alfredjeanlab/policyconf/internal/storage/memory"
	"github.com/alfredjeanlab/policyconf/internal/storage/redis"
	"github.com/alfredjeanlab/policyconf/internal/storage/sqlite"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	for _, tc := range []struct {
		name string
		url  string
		want func(storage.Storage) bool
	}{
		{"Memory", "memory://", func(s storage.Storage) bool { _, ok := s.(*memory.Store); return ok }},
		{"File", "file://" + filepath.Join(dir, "a.json"), func(s storage.Storage) bool { _, ok := s.(*file.Store); return ok }},
		{"BarePath", filepath.Join(dir, "b.json"), func(s storage.Storage) bool { _, ok := s.(*file.Store); return ok }},
		{"BadgerInMemory", "badger://", func(s storage.Storage) bool { _, ok := s.(*badger.Store); return ok }},
		{"Badger", "badger://" + filepath.Join(dir, "badger"), func(s storage.Storage) bool { _, ok := s.(*badger.Store); return ok }},
		{"SQLite", "sqlite://" + filepath.Join(dir, "p.db"), func(s storage.Storage) bool { _, ok := s.(*sqlite.Store); return ok }},
		{"Redis", "redis://" + mr.Addr(), func(s storage.Storage) bool { _, ok := s.(*redis.Store); return ok }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Open(context.Background(), tc.url)
			if err != nil {
				t.Fatalf("Open(%q): %v", tc.url, err)
			}
			defer s.Close()
			if !tc.want(s) {
				t.Fatalf("Open(%q) returned %T", tc.url, s)
			}
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	for _, url := range []string{"", "ftp://host/x", "sqlite://"} {
		if _, err := Open(context.Background(), url); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Open(%q) = %v, want ErrInvalidInput", url, err)
		}
	}
}

func TestScheme(t *testing.T) {
	for url, want := range map[string]string{
		"POSTGRES://u@h/db": "postgres",
		"redis://h:1":       "redis",
		"/var/lib/x.json":   "file",
	} {
		if got := Scheme(url); got != want {
			t.Errorf("Scheme(%q) = %q, want %q", url, got, want)
		}
	}
}
