package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/policyconf/internal/export"
	"github.com/alfredjeanlab/policyconf/internal/management"
	"github.com/alfredjeanlab/policyconf/internal/model"
)

// setupLocal points the CLI at fresh local state under a temp dir.
func setupLocal(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("POLICYCONF_STORAGE_URL", filepath.Join(dir, "storage.json"))
	t.Setenv("POLICYCONF_FORM", filepath.Join(dir, "form.json"))
	t.Setenv("POLICYCONF_EXPORT_DIR", filepath.Join(dir, "Downloads"))
	t.Setenv("POLICYCONF_LOG_LEVEL", "error")
	return dir
}

// run executes pcm with args against local state and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput = false
	pcmClient = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--remote=", "--transport=http", "--grpc-server="}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("pcm %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestParseIndex(t *testing.T) {
	for _, tc := range []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"12", 12, false},
		{"-1", 0, true},
		{"one", 0, true},
		{"", 0, true},
	} {
		got, err := parseIndex(tc.arg)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("parseIndex(%q) = %d, %v", tc.arg, got, err)
		}
	}
}

func TestLocalSession(t *testing.T) {
	dir := setupLocal(t)

	state := filepath.Join(dir, "state.json")
	if err := os.WriteFile(state, []byte(`{"fields":{"DisableTelemetry":{"checked":true}}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	mustRun(t, "form", "load", state)

	var view management.ListView
	out := mustRun(t, "--json", "save", "Locked", "down")
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode save output %q: %v", out, err)
	}
	if len(view.Configurations) != 1 || view.Configurations[0].Name != "Locked down" {
		t.Fatalf("save view = %+v", view)
	}

	want := mustRun(t, "output")
	if !strings.Contains(want, "DisableTelemetry") {
		t.Errorf("output missing DisableTelemetry:\n%s", want)
	}

	mustRun(t, "form", "reset")
	if got := mustRun(t, "output"); strings.Contains(got, "DisableTelemetry") {
		t.Errorf("reset form still produces DisableTelemetry:\n%s", got)
	}
	if got := mustRun(t, "apply", "0"); got != want {
		t.Errorf("apply output = %q, want %q", got, want)
	}

	list := mustRun(t, "list")
	if !strings.Contains(list, "Locked down") || !strings.Contains(list, "export enabled: no") {
		t.Errorf("list output:\n%s", list)
	}

	if _, err := run(t, "export", "--no-prompt", "0"); !errors.Is(err, model.ErrPermissionDenied) {
		t.Errorf("export without permission = %v, want ErrPermissionDenied", err)
	}
	if _, err := run(t, "remove", "3"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("remove out of range = %v, want ErrNotFound", err)
	}

	mustRun(t, "remove", "0")
	if out := mustRun(t, "list"); !strings.Contains(out, "no saved configurations") {
		t.Errorf("list after remove:\n%s", out)
	}
}

func TestLocalImport(t *testing.T) {
	dir := setupLocal(t)

	data, err := export.Encode(model.Configuration{
		Name:          "Shared",
		Time:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Configuration: json.RawMessage(`{"fields":{}}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	artifact := filepath.Join(dir, "shared.policy")
	if err := os.WriteFile(artifact, data, 0o644); err != nil {
		t.Fatal(err)
	}

	var view management.ListView
	out := mustRun(t, "--json", "import", artifact)
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode import output: %v", err)
	}
	if len(view.Configurations) != 1 || view.Configurations[0].Name != "Shared" || view.Configurations[0].ID == "" {
		t.Errorf("import view = %+v", view)
	}

	if err := os.WriteFile(artifact, []byte("garbage!"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "import", artifact); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("import garbage = %v, want ErrInvalidInput", err)
	}
}

func TestBackupDumpRestore(t *testing.T) {
	dir := setupLocal(t)

	mustRun(t, "save", "first")
	mustRun(t, "save", "second")

	dump := filepath.Join(dir, "backup.jsonl")
	mustRun(t, "backup", "dump", dump)
	data, err := os.ReadFile(dump)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 3 {
		t.Errorf("dump has %d lines, want header + 2 records:\n%s", lines, data)
	}

	mustRun(t, "remove", "0")
	mustRun(t, "remove", "0")

	if out := mustRun(t, "backup", "restore", dump); !strings.Contains(out, "restored 2") {
		t.Errorf("restore output = %q", out)
	}
	list := mustRun(t, "list")
	if strings.Index(list, "first") > strings.Index(list, "second") || !strings.Contains(list, "first") {
		t.Errorf("restored list out of order:\n%s", list)
	}

	if _, err := run(t, "backup", "run"); err == nil {
		t.Error("backup run without destinations should fail")
	}
}

func TestInvalidIndexArgument(t *testing.T) {
	setupLocal(t)
	if _, err := run(t, "apply", "first"); err == nil || !strings.Contains(err.Error(), "invalid index") {
		t.Errorf("apply first = %v", err)
	}
}

func TestTransportFlag(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
		want string
	}{
		{"Unknown", []string{"--transport=carrier-pigeon", "list"}, `unknown transport "carrier-pigeon"`},
		{"GRPCWithoutServer", []string{"--transport=grpc", "list"}, "--grpc-server"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}
