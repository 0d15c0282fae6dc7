// Package form holds the live policy form: a schema plus the current state
// of its controls. It is the serializer the configuration panel saves from
// and applies to.
package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/policyconf/internal/log"
	"github.com/alfredjeanlab/policyconf/internal/model"
	"github.com/alfredjeanlab/policyconf/internal/output"
)

// Form is a schema-bound form state safe for concurrent use.
type Form struct {
	mu     sync.RWMutex
	schema *model.Schema
	state  *model.FormState
	logger zerolog.Logger
}

// New returns an empty form over schema.
func New(schema *model.Schema) *Form {
	return &Form{
		schema: schema,
		state:  model.NewFormState(),
		logger: log.WithComponent("form"),
	}
}

// Schema returns the schema the form was built from.
func (f *Form) Schema() *model.Schema {
	return f.schema
}

// Serialize returns the form state as an opaque JSON blob.
func (f *Form) Serialize() (json.RawMessage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, err := json.Marshal(f.state)
	if err != nil {
		return nil, fmt.Errorf("serialize form: %w", err)
	}
	return data, nil
}

// Unserialize replaces the form state with a blob produced by Serialize.
// State for fields the schema does not define is dropped.
func (f *Form) Unserialize(data json.RawMessage) error {
	state, err := decodeState(data)
	if err != nil {
		return err
	}
	return f.Replace(state)
}

// Replace sets the form state to a copy of state.
func (f *Form) Replace(state *model.FormState) error {
	clean := f.restrict(state)
	f.mu.Lock()
	f.state = clean
	f.mu.Unlock()
	return nil
}

// Reset clears every control.
func (f *Form) Reset() error {
	f.mu.Lock()
	f.state = model.NewFormState()
	f.mu.Unlock()
	return nil
}

// State returns a copy of the current form state.
func (f *Form) State() *model.FormState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Clone()
}

// Policies reduces the current state to the policy object.
func (f *Form) Policies() (output.Policies, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return output.Generate(f.schema, f.state)
}

// GeneratePoliciesOutput renders the current state as policies.json text.
func (f *Form) GeneratePoliciesOutput() (string, error) {
	p, err := f.Policies()
	if err != nil {
		return "", err
	}
	return p.Render()
}

func (f *Form) restrict(state *model.FormState) *model.FormState {
	out := state.Clone()
	var dropped []string
	for name := range out.Fields {
		if _, ok := f.schema.Field(name); !ok {
			delete(out.Fields, name)
			dropped = append(dropped, name)
		}
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		f.logger.Warn().
			Str("event", "form.unknown_fields").
			Strs("fields", dropped).
			Msg("dropped state for fields not in schema")
	}
	return out
}

func decodeState(data json.RawMessage) (*model.FormState, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: empty form state", model.ErrInvalidInput)
	}
	var state model.FormState
	if err := json.Unmarshal(trimmed, &state); err != nil {
		return nil, fmt.Errorf("%w: decode form state: %v", model.ErrInvalidInput, err)
	}
	if state.Fields == nil {
		state.Fields = map[string]model.FieldState{}
	}
	return &state, nil
}

// Live is the form surface the configuration panel works against. Both
// *Form and *FileBacked satisfy it.
type Live interface {
	Schema() *model.Schema
	Serialize() (json.RawMessage, error)
	Unserialize(data json.RawMessage) error
	Replace(state *model.FormState) error
	Reset() error
	State() *model.FormState
	Policies() (output.Policies, error)
	GeneratePoliciesOutput() (string, error)
}

var (
	_ Live = (*Form)(nil)
	_ Live = (*FileBacked)(nil)
)
