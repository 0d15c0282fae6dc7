// Package file stores all keys in one JSON document on disk, the way a
// browser extension's local storage area is laid out.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/alfredjeanlab/policyconf/internal/model"
	"github.com/alfredjeanlab/policyconf/internal/storage"
)

// Store is a JSON-document backed storage.Storage. Values must be JSON and
// are kept byte for byte, except for whitespace around the value.
type Store struct {
	mu   sync.Mutex
	path string
}

var (
	_ storage.Storage = (*Store)(nil)
	_ storage.Updater = (*Store)(nil)
)

// New returns a store persisted at path. The file is created on first write.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: storage file path is required", model.ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(key, value)
}

// Update is atomic against other users of this Store value only.
func (s *Store) Update(_ context.Context, key string, fn storage.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	cur, found := doc[key]
	next, err := fn([]byte(cur), found)
	if err != nil {
		return err
	}
	return s.setLocked(key, next)
}

func (s *Store) Close() error { return nil }

func (s *Store) setLocked(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("%w: value for %q is not valid JSON", model.ErrInvalidInput, key)
	}
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc[key] = append(json.RawMessage(nil), value...)
	return s.save(doc)
}

func (s *Store) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage file: %w", err)
	}
	doc := map[string]json.RawMessage{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode storage file %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *Store) save(doc map[string]json.RawMessage) error {
	data, err := encode(doc)
	if err != nil {
		return fmt.Errorf("encode storage file: %w", err)
	}
	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending storage file: %w", err)
	}
	defer pending.Cleanup() //nolint:errcheck

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write storage file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}

// encode writes one key per line with each value copied verbatim, so Get
// returns exactly the bytes passed to Set.
func encode(doc map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteString("\n  ")
		buf.Write(name)
		buf.WriteString(": ")
		buf.Write(doc[k])
	}
	if len(keys) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}
