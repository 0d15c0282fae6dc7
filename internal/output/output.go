// Package output reduces a policy form (schema plus state) to the plain policy
// object consumed by the policies.json renderer.
//
// Generate is pure: it reads the schema and the state and never mutates
// either. Every container that reduces to an empty collection is omitted, so
// no empty array or object is ever emitted.
package output

import (
	"fmt"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

// Generate walks every checked field of schema in order and returns the
// resulting policy object.
func Generate(schema *model.Schema, state *model.FormState) (Policies, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: schema is required", model.ErrInvalidInput)
	}

	policies := Policies{}
	for _, field := range schema.Fields {
		fs := state.Field(field.Name)
		if !fs.Checked {
			continue
		}

		switch field.Kind {
		case model.KindArray:
			generateArray(policies, field, fs)
		case model.KindBoolean:
			generateBoolean(policies, field)
		case model.KindEnum:
			generateEnum(policies, field, fs)
		case model.KindObject:
			generateObject(policies, field, fs)
		case model.KindString:
			policies.Add(field.Name, fs.Value)
		default:
			return nil, fmt.Errorf("%w: field %q has unknown kind %q", model.ErrInvalidInput, field.Name, field.Kind)
		}
	}
	return policies, nil
}

func generateArray(policies Policies, field model.Field, fs model.FieldState) {
	if items := collectRows(field.Items, fs.Items); len(items) > 0 {
		policies.Add(field.Name, items)
	}
}

// Presence means affirmative: an inverse boolean is left out instead of
// being written as false.
func generateBoolean(policies Policies, field model.Field) {
	if field.Inverse {
		return
	}
	policies.Add(field.Name, true)
}

func generateEnum(policies Policies, field model.Field, fs model.FieldState) {
	if v, ok := ParseEnum(selected(fs.Selected, field.Options)); ok {
		policies.Add(field.Name, v)
	}
}

func generateObject(policies Policies, field model.Field, fs model.FieldState) {
	obj := map[string]any{}

	for _, m := range membersOf(field.Members, model.MemberObjectArray) {
		if rows := collectRows(m.Items, fs.Rows[m.Name]); len(rows) > 0 {
			obj[m.Name] = rows
		}
	}

	for _, m := range membersOf(field.Members, model.MemberArray) {
		var items []any
		for _, v := range fs.Lists[m.Name] {
			if v != "" {
				items = append(items, v)
			}
		}
		if len(items) > 0 {
			obj[m.Name] = items
		}
	}

	for _, m := range membersOf(field.Members, model.MemberCheckbox) {
		if fs.Checkboxes[m.Name] {
			obj[m.Name] = true
		}
	}

	for _, m := range membersOf(field.Members, model.MemberEnum) {
		if v, ok := ParseEnum(selected(fs.Selects[m.Name], m.Options)); ok {
			obj[m.Name] = v
		}
	}

	for _, m := range membersOf(field.Members, model.MemberInput) {
		addInput(obj, m.Name, fs.Inputs[m.Name])
	}

	if field.Lockable && fs.Locked {
		obj[model.LockedKey] = true
	}

	if len(obj) > 0 {
		policies.Add(field.Name, obj)
	}
}

// collectRows turns repeated sub-blocks into objects, dropping rows with an
// unmet mandatory control and rows that reduce to nothing.
func collectRows(members []model.Member, rows []model.ItemState) []any {
	var items []any
	for _, row := range rows {
		if hasInvalidFields(members, row) {
			continue
		}

		item := map[string]any{}
		for _, m := range members {
			switch m.EffectiveKind() {
			case model.MemberInput:
				addInput(item, m.Name, row.Inputs[m.Name])
			case model.MemberEnum:
				if v, ok := ParseEnum(selected(row.Selects[m.Name], m.Options)); ok {
					item[m.Name] = v
				}
			}
		}

		if len(item) > 0 {
			items = append(items, item)
		}
	}
	return items
}

// hasInvalidFields reports whether any mandatory control of row is unmet.
func hasInvalidFields(members []model.Member, row model.ItemState) bool {
	for _, m := range members {
		if !m.Mandatory {
			continue
		}
		switch m.EffectiveKind() {
		case model.MemberInput:
			if row.Inputs[m.Name] == "" {
				return true
			}
		case model.MemberEnum:
			raw := selected(row.Selects[m.Name], m.Options)
			if raw == "" || raw == model.NullOption {
				return true
			}
		}
	}
	return false
}

func addInput(dst map[string]any, name, value string) {
	if value != "" {
		dst[name] = value
	}
}

// selected resolves an enum selection; an empty selection falls back to the
// first option, as an untouched select element would.
func selected(value string, options []string) string {
	if value == "" && len(options) > 0 {
		return options[0]
	}
	return value
}

func membersOf(members []model.Member, kind model.MemberKind) []model.Member {
	var out []model.Member
	for _, m := range members {
		if m.EffectiveKind() == kind {
			out = append(out, m)
		}
	}
	return out
}
