package output

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alfredjeanlab/policyconf/internal/model"
)

func testSchema() *model.Schema {
	return &model.Schema{Fields: []model.Field{
		{Name: "DisableAppUpdate", Kind: model.KindBoolean},
		{Name: "HardwareAcceleration", Kind: model.KindBoolean, Inverse: true},
		{Name: "DisplayBookmarksToolbar", Kind: model.KindEnum, Options: []string{"null", "always", "never"}},
		{Name: "PopupLimit", Kind: model.KindEnum, Options: []string{"5", "10"}},
		{Name: "DefaultDownloadDirectory", Kind: model.KindString},
		{Name: "Bookmarks", Kind: model.KindArray, Items: []model.Member{
			{Name: "Title", Mandatory: true},
			{Name: "URL", Mandatory: true},
			{Name: "Folder"},
			{Name: "Placement", Kind: model.MemberEnum, Options: []string{"toolbar", "menu"}},
		}},
		{Name: "Homepage", Kind: model.KindObject, Lockable: true, Members: []model.Member{
			{Name: "URL"},
			{Name: "Additional", Kind: model.MemberArray},
			{Name: "StartPage", Kind: model.MemberEnum, Options: []string{"null", "none", "homepage"}},
		}},
		{Name: "SearchEngines", Kind: model.KindObject, Members: []model.Member{
			{Name: "Add", Kind: model.MemberObjectArray, Items: []model.Member{
				{Name: "Name", Mandatory: true},
				{Name: "URLTemplate", Mandatory: true},
				{Name: "Method", Kind: model.MemberEnum, Options: []string{"GET", "POST"}},
			}},
			{Name: "Remove", Kind: model.MemberArray},
			{Name: "PreventInstalls", Kind: model.MemberCheckbox},
			{Name: "Default"},
		}},
	}}
}

func stateWith(fields map[string]model.FieldState) *model.FormState {
	return &model.FormState{Fields: fields}
}

func mustGenerate(t *testing.T, schema *model.Schema, state *model.FormState) Policies {
	t.Helper()
	p, err := Generate(schema, state)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return p
}

func TestGenerate_EmptyState(t *testing.T) {
	got := mustGenerate(t, testSchema(), model.NewFormState())
	if len(got) != 0 {
		t.Fatalf("expected no policies, got %v", got)
	}
}

func TestGenerate_UncheckedFieldsIgnored(t *testing.T) {
	got := mustGenerate(t, testSchema(), stateWith(map[string]model.FieldState{
		"DisableAppUpdate":         {Checked: false},
		"DefaultDownloadDirectory": {Checked: false, Value: "/tmp"},
	}))
	if len(got) != 0 {
		t.Fatalf("expected no policies, got %v", got)
	}
}

func TestGenerate_Boolean(t *testing.T) {
	for _, tc := range []struct {
		name  string
		field string
		state model.FieldState
		want  Policies
	}{
		{"CheckedWritesTrue", "DisableAppUpdate", model.FieldState{Checked: true}, Policies{"DisableAppUpdate": true}},
		{"UncheckedWritesNothing", "DisableAppUpdate", model.FieldState{}, Policies{}},
		{"InverseUncheckedWritesNothing", "HardwareAcceleration", model.FieldState{}, Policies{}},
		{"InverseCheckedWritesNothing", "HardwareAcceleration", model.FieldState{Checked: true}, Policies{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := mustGenerate(t, testSchema(), stateWith(map[string]model.FieldState{tc.field: tc.state}))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("policies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerate_Enum(t *testing.T) {
	for _, tc := range []struct {
		name  string
		field string
		value string
		want  Policies
	}{
		{"NullOmitted", "DisplayBookmarksToolbar", "null", Policies{}},
		{"DefaultIsFirstOption", "DisplayBookmarksToolbar", "", Policies{}},
		{"String", "DisplayBookmarksToolbar", "always", Policies{"DisplayBookmarksToolbar": "always"}},
		{"Number", "PopupLimit", "5", Policies{"PopupLimit": 5}},
		{"NumberDefault", "PopupLimit", "", Policies{"PopupLimit": 5}},
		{"Boolean", "DisplayBookmarksToolbar", "true", Policies{"DisplayBookmarksToolbar": true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := mustGenerate(t, testSchema(), stateWith(map[string]model.FieldState{
				tc.field: {Checked: true, Selected: tc.value},
			}))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("policies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerate_String(t *testing.T) {
	got := mustGenerate(t, testSchema(), stateWith(map[string]model.FieldState{
		"DefaultDownloadDirectory": {Checked: true, Value: "${home}/Downloads"},
	}))
	want := Policies{"DefaultDownloadDirectory": "${home}/Downloads"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("policies mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_Array(t *testing.T) {
	got := mustGenerate(t, testSchema(), stateWith(map[string]model.FieldState{
		"Bookmarks": {Checked: true, Items: []model.ItemState{
			{Inputs: map[string]string{"Title": "Example", "URL": "https://example.com", "Folder": ""}},
			{Inputs: map[string]string{"Title": "Missing URL"}},
			{Inputs: map[string]string{"Title": "Docs", "URL": "https://docs.example.com", "Folder": "Work"},
				Selects: map[string]string{"Placement": "menu"}},
		}},
	}))
	want := Policies{"Bookmarks": []any{
		map[string]any{"Title": "Example", "URL": "https://example.com", "Placement": "toolbar"},
		map[string]any{"Title": "Docs", "URL": "https://docs.example.com", "Folder": "Work", "Placement": "menu"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("policies mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_ArrayWithoutAcceptedRowsOmitted(t *testing.T) {
	for _, tc := range []struct {
		name  string
		items []model.ItemState
	}{
		{"NoRows", nil},
		{"AllInvalid", []model.ItemState{
			{Inputs: map[string]string{"Title": "only title"}},
			{Inputs: map[string]string{"URL": "https://only-url.example"}},
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := mustGenerate(t, testSchema(), stateWith(map[string]model.FieldState{
				"Bookmarks": {Checked: true, Items: tc.items},
			}))
			if _, ok := got["Bookmarks"]; ok {
				t.Fatalf("expected Bookmarks to be omitted, got %v", got)
			}
		})
	}
}

func TestGenerate_ArrayMandatoryEnum(t *testing.T) {
	schema := &model.Schema{Fields: []model.Field{
		{Name: "Handlers", Kind: model.KindArray, Items: []model.Member{
			{Name: "Action", Kind: model.MemberEnum, Mandatory: true, Options: []string{"null", "save", "open"}},
		}},
	}}
	got := mustGenerate(t, schema, stateWith(map[string]model.FieldState{
		"Handlers": {Checked: true, Items: []model.ItemState{
			{Selects: map[string]string{"Action": "null"}},
			{},
			{Selects: map[string]string{"Action": "save"}},
		}},
	}))
	want := Policies{"Handlers": []any{map[string]any{"Action": "save"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("policies mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_Object(t *testing.T) {
	got := mustGenerate(t, testSchema(), stateWith(map[string]model.FieldState{
		"Homepage": {
			Checked: true,
			Locked:  true,
			Inputs:  map[string]string{"URL": "https://intranet.example"},
			Lists:   map[string][]string{"Additional": {"https://a.example", "", "https://b.example"}},
			Selects: map[string]string{"StartPage": "homepage"},
		},
		"SearchEngines": {
			Checked: true,
			Rows: map[string][]model.ItemState{"Add": {
				{Inputs: map[string]string{"Name": "Intranet", "URLTemplate": "https://search.example?q={searchTerms}"},
					Selects: map[string]string{"Method": "POST"}},
				{Inputs: map[string]string{"Name": "Broken"}},
			}},
			Lists:      map[string][]string{"Remove": {"Bing"}},
			Checkboxes: map[string]bool{"PreventInstalls": true},
			Inputs:     map[string]string{"Default": ""},
		},
	}))
	want := Policies{
		"Homepage": map[string]any{
			"URL":        "https://intranet.example",
			"Additional": []any{"https://a.example", "https://b.example"},
			"StartPage":  "homepage",
			"Locked":     true,
		},
		"SearchEngines": map[string]any{
			"Add": []any{map[string]any{
				"Name":        "Intranet",
				"URLTemplate": "https://search.example?q={searchTerms}",
				"Method":      "POST",
			}},
			"Remove":          []any{"Bing"},
			"PreventInstalls": true,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("policies mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_EmptyContainersOmitted(t *testing.T) {
	got := mustGenerate(t, testSchema(), stateWith(map[string]model.FieldState{
		"Homepage": {
			Checked: true,
			Inputs:  map[string]string{"URL": ""},
			Lists:   map[string][]string{"Additional": {"", ""}},
			Selects: map[string]string{"StartPage": "null"},
		},
		"SearchEngines": {
			Checked: true,
			Rows: map[string][]model.ItemState{"Add": {
				{Inputs: map[string]string{"Name": "no template"}},
			}},
			Checkboxes: map[string]bool{"PreventInstalls": false},
		},
	}))
	if len(got) != 0 {
		t.Fatalf("expected all empty objects to be omitted, got %v", got)
	}
}

func TestGenerate_LockedOnlyWhenLockable(t *testing.T) {
	got := mustGenerate(t, testSchema(), stateWith(map[string]model.FieldState{
		"SearchEngines": {Checked: true, Locked: true},
		"Homepage":      {Checked: true, Locked: true},
	}))
	want := Policies{"Homepage": map[string]any{"Locked": true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("policies mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_UnknownKind(t *testing.T) {
	schema := &model.Schema{Fields: []model.Field{{Name: "Odd", Kind: "matrix"}}}
	_, err := Generate(schema, stateWith(map[string]model.FieldState{"Odd": {Checked: true}}))
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGenerate_NilSchema(t *testing.T) {
	if _, err := Generate(nil, model.NewFormState()); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGenerate_DoesNotMutateState(t *testing.T) {
	state := stateWith(map[string]model.FieldState{
		"Bookmarks": {Checked: true, Items: []model.ItemState{
			{Inputs: map[string]string{"Title": "a", "URL": "b"}},
		}},
	})
	before := state.Clone()
	mustGenerate(t, testSchema(), state)
	if diff := cmp.Diff(before, state); diff != "" {
		t.Errorf("state mutated (-before +after):\n%s", diff)
	}
}

func TestRender(t *testing.T) {
	p := Policies{"DisableAppUpdate": true, "PopupLimit": 5}
	text, err := p.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var doc map[string]map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("unmarshal rendered output: %v\n%s", err, text)
	}
	if doc["policies"]["DisableAppUpdate"] != true {
		t.Errorf("rendered output missing DisableAppUpdate: %s", text)
	}
	if doc["policies"]["PopupLimit"] != float64(5) {
		t.Errorf("rendered output PopupLimit = %v", doc["policies"]["PopupLimit"])
	}
}

func TestRender_Empty(t *testing.T) {
	text, err := Policies{}.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if text != "{\n  \"policies\": {}\n}" {
		t.Errorf("unexpected empty render: %q", text)
	}
}

func TestPoliciesAdd_NilSkipped(t *testing.T) {
	p := Policies{}
	p.Add("x", nil)
	if _, ok := p["x"]; ok {
		t.Error("nil value should not be added")
	}
}
