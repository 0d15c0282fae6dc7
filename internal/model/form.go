package model

// FormState is the live value of every control in a policy form, keyed by
// top-level field name. Fields absent from the map are unchecked.
type FormState struct {
	Fields map[string]FieldState `json:"fields"`
}

// FieldState holds the controls of one top-level field. Which attributes are
// read depends on the field's Kind.
type FieldState struct {
	// Checked is the primary checkbox; unchecked fields produce no output.
	Checked bool `json:"checked,omitempty"`

	// Value is the text input of a string field.
	Value string `json:"value,omitempty"`
	// Selected is the raw option value of an enum field.
	Selected string `json:"selected,omitempty"`
	// Items are the repeated sub-blocks of an array field.
	Items []ItemState `json:"items,omitempty"`

	// Object members, keyed by member name.
	Locked     bool                   `json:"locked,omitempty"`
	Inputs     map[string]string      `json:"inputs,omitempty"`
	Selects    map[string]string      `json:"selects,omitempty"`
	Checkboxes map[string]bool        `json:"checkboxes,omitempty"`
	Lists      map[string][]string    `json:"lists,omitempty"`
	Rows       map[string][]ItemState `json:"rows,omitempty"`
}

// ItemState is one repeated sub-block: its text inputs and selects by name.
type ItemState struct {
	Inputs  map[string]string `json:"inputs,omitempty"`
	Selects map[string]string `json:"selects,omitempty"`
}

// NewFormState returns an empty form state.
func NewFormState() *FormState {
	return &FormState{Fields: map[string]FieldState{}}
}

// Field returns the state of the named field; the zero value when unset.
func (s *FormState) Field(name string) FieldState {
	if s == nil || s.Fields == nil {
		return FieldState{}
	}
	return s.Fields[name]
}

// Set stores the state of the named field.
func (s *FormState) Set(name string, fs FieldState) {
	if s.Fields == nil {
		s.Fields = map[string]FieldState{}
	}
	s.Fields[name] = fs
}

// Clone returns a deep copy of s.
func (s *FormState) Clone() *FormState {
	out := NewFormState()
	if s == nil {
		return out
	}
	for name, fs := range s.Fields {
		out.Fields[name] = fs.clone()
	}
	return out
}

func (fs FieldState) clone() FieldState {
	out := fs
	out.Items = cloneItems(fs.Items)
	out.Inputs = cloneStrings(fs.Inputs)
	out.Selects = cloneStrings(fs.Selects)
	if fs.Checkboxes != nil {
		out.Checkboxes = make(map[string]bool, len(fs.Checkboxes))
		for k, v := range fs.Checkboxes {
			out.Checkboxes[k] = v
		}
	}
	if fs.Lists != nil {
		out.Lists = make(map[string][]string, len(fs.Lists))
		for k, v := range fs.Lists {
			out.Lists[k] = append([]string(nil), v...)
		}
	}
	if fs.Rows != nil {
		out.Rows = make(map[string][]ItemState, len(fs.Rows))
		for k, v := range fs.Rows {
			out.Rows[k] = cloneItems(v)
		}
	}
	return out
}

func cloneItems(items []ItemState) []ItemState {
	if items == nil {
		return nil
	}
	out := make([]ItemState, len(items))
	for i, it := range items {
		out[i] = ItemState{Inputs: cloneStrings(it.Inputs), Selects: cloneStrings(it.Selects)}
	}
	return out
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
