package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

// Workspace is the on-disk copy of the live form state.
type Workspace struct {
	path string
}

// NewWorkspace returns a workspace backed by the JSON file at path.
func NewWorkspace(path string) *Workspace {
	return &Workspace{path: path}
}

// Path returns the workspace file path.
func (w *Workspace) Path() string {
	return w.path
}

// Load reads the saved state. A missing file is an empty form.
func (w *Workspace) Load() (*model.FormState, error) {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewFormState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	state, err := decodeState(data)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", w.path, err)
	}
	return state, nil
}

// Save atomically replaces the workspace file with state.
func (w *Workspace) Save(state *model.FormState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal workspace: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	pending, err := renameio.NewPendingFile(w.path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending workspace file: %w", err)
	}
	defer pending.Cleanup() //nolint:errcheck

	if _, err := pending.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write workspace: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace workspace: %w", err)
	}
	return nil
}

// FileBacked is a Form that writes its state to a Workspace after every
// change. The file is written before the in-memory state is swapped, so a
// failed write leaves the form unchanged.
type FileBacked struct {
	*Form
	ws *Workspace
	mu sync.Mutex // serializes writes
}

// OpenFileBacked loads the workspace at path into a new form over schema.
func OpenFileBacked(schema *model.Schema, path string) (*FileBacked, error) {
	b := &FileBacked{Form: New(schema), ws: NewWorkspace(path)}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Workspace returns the backing workspace.
func (b *FileBacked) Workspace() *Workspace {
	return b.ws
}

// Reload replaces the in-memory state with the workspace file contents.
func (b *FileBacked) Reload() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, err := b.ws.Load()
	if err != nil {
		return err
	}
	return b.Form.Replace(state)
}

// Unserialize persists data and then applies it.
func (b *FileBacked) Unserialize(data json.RawMessage) error {
	state, err := decodeState(data)
	if err != nil {
		return err
	}
	return b.Replace(state)
}

// Replace persists state and then sets it.
func (b *FileBacked) Replace(state *model.FormState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	clean := b.Form.restrict(state)
	if err := b.ws.Save(clean); err != nil {
		return err
	}
	return b.Form.Replace(clean)
}

// Reset persists the empty state and then clears the form.
func (b *FileBacked) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ws.Save(model.NewFormState()); err != nil {
		return err
	}
	return b.Form.Reset()
}
