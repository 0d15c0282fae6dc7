package model

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind is the field-type tag that drives output generation.
type Kind string

const (
	KindArray   Kind = "array"
	KindBoolean Kind = "boolean"
	KindEnum    Kind = "enum"
	KindObject  Kind = "object"
	KindString  Kind = "string"
)

// IsValid checks whether the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case KindArray, KindBoolean, KindEnum, KindObject, KindString:
		return true
	}
	return false
}

// MemberKind identifies a control nested inside an array sub-block or an object.
type MemberKind string

const (
	MemberInput       MemberKind = "input"
	MemberEnum        MemberKind = "enum"
	MemberCheckbox    MemberKind = "checkbox"
	MemberArray       MemberKind = "array"
	MemberObjectArray MemberKind = "object-array"
)

// NullOption is the enum option value that stands for "not set".
const NullOption = "null"

// LockedKey is the key added to object policies whose lock toggle is set.
const LockedKey = "Locked"

// Field describes one top-level policy control. Kind selects which of the
// remaining attributes apply:
//
//	boolean: Inverse
//	enum:    Options
//	array:   Items (input and enum members of one repeated sub-block)
//	object:  Members, Lockable
//	string:  none
type Field struct {
	Name     string   `json:"name" toml:"name" yaml:"name"`
	Kind     Kind     `json:"kind" toml:"kind" yaml:"kind"`
	Label    string   `json:"label,omitempty" toml:"label" yaml:"label,omitempty"`
	Inverse  bool     `json:"inverse,omitempty" toml:"inverse" yaml:"inverse,omitempty"`
	Options  []string `json:"options,omitempty" toml:"options" yaml:"options,omitempty"`
	Items    []Member `json:"items,omitempty" toml:"items" yaml:"items,omitempty"`
	Members  []Member `json:"members,omitempty" toml:"members" yaml:"members,omitempty"`
	Lockable bool     `json:"lockable,omitempty" toml:"lockable" yaml:"lockable,omitempty"`
}

// Member is a control nested inside a Field. An empty Kind means input.
type Member struct {
	Name      string     `json:"name" toml:"name" yaml:"name"`
	Kind      MemberKind `json:"kind,omitempty" toml:"kind" yaml:"kind,omitempty"`
	Label     string     `json:"label,omitempty" toml:"label" yaml:"label,omitempty"`
	Mandatory bool       `json:"mandatory,omitempty" toml:"mandatory" yaml:"mandatory,omitempty"`
	Options   []string   `json:"options,omitempty" toml:"options" yaml:"options,omitempty"`
	Items     []Member   `json:"items,omitempty" toml:"items" yaml:"items,omitempty"`
}

// EffectiveKind returns the member kind with the input default applied.
func (m Member) EffectiveKind() MemberKind {
	if m.Kind == "" {
		return MemberInput
	}
	return m.Kind
}

// Schema is the ordered set of policy fields a form is built from.
type Schema struct {
	Fields []Field `json:"fields" toml:"fields" yaml:"fields"`
}

// Field returns the field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldError represents a single validation failure on a named schema path.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks the schema for structural problems and returns every
// violation aggregated in a *multierror.Error, or nil.
func (s *Schema) Validate() error {
	var result *multierror.Error
	seen := make(map[string]bool, len(s.Fields))

	for i, f := range s.Fields {
		path := f.Name
		if path == "" {
			path = fmt.Sprintf("fields[%d]", i)
			result = multierror.Append(result, &FieldError{Field: path, Message: "name is required"})
		} else if seen[f.Name] {
			result = multierror.Append(result, &FieldError{Field: path, Message: "duplicate field name"})
		}
		seen[f.Name] = true

		if !f.Kind.IsValid() {
			result = multierror.Append(result, &FieldError{Field: path, Message: fmt.Sprintf("unknown kind %q", f.Kind)})
			continue
		}

		if f.Inverse && f.Kind != KindBoolean {
			result = multierror.Append(result, &FieldError{Field: path, Message: "inverse applies to boolean fields only"})
		}
		if f.Lockable && f.Kind != KindObject {
			result = multierror.Append(result, &FieldError{Field: path, Message: "lockable applies to object fields only"})
		}

		switch f.Kind {
		case KindEnum:
			if len(f.Options) == 0 {
				result = multierror.Append(result, &FieldError{Field: path, Message: "enum requires options"})
			}
		case KindArray:
			if len(f.Items) == 0 {
				result = multierror.Append(result, &FieldError{Field: path, Message: "array requires items"})
			}
			result = validateMembers(result, path+".items", f.Items, MemberInput, MemberEnum)
		case KindObject:
			if len(f.Members) == 0 {
				result = multierror.Append(result, &FieldError{Field: path, Message: "object requires members"})
			}
			result = validateMembers(result, path+".members", f.Members,
				MemberInput, MemberEnum, MemberCheckbox, MemberArray, MemberObjectArray)
		}
	}

	return result.ErrorOrNil()
}

func validateMembers(result *multierror.Error, path string, members []Member, allowed ...MemberKind) *multierror.Error {
	seen := make(map[string]bool, len(members))
	for i, m := range members {
		mpath := fmt.Sprintf("%s[%d]", path, i)
		if m.Name == "" {
			result = multierror.Append(result, &FieldError{Field: mpath, Message: "name is required"})
		} else if seen[m.Name] {
			result = multierror.Append(result, &FieldError{Field: mpath, Message: fmt.Sprintf("duplicate member name %q", m.Name)})
		}
		seen[m.Name] = true

		kind := m.EffectiveKind()
		if !memberKindIn(kind, allowed) {
			result = multierror.Append(result, &FieldError{Field: mpath, Message: fmt.Sprintf("member kind %q not allowed here", kind)})
			continue
		}

		switch kind {
		case MemberEnum:
			if len(m.Options) == 0 {
				result = multierror.Append(result, &FieldError{Field: mpath, Message: "enum requires options"})
			}
		case MemberObjectArray:
			if len(m.Items) == 0 {
				result = multierror.Append(result, &FieldError{Field: mpath, Message: "object-array requires items"})
			}
			result = validateMembers(result, mpath+".items", m.Items, MemberInput, MemberEnum)
		}
	}
	return result
}

func memberKindIn(k MemberKind, allowed []MemberKind) bool {
	for _, a := range allowed {
		if a == k {
			return true
		}
	}
	return false
}
