package permission

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/alfredjeanlab/policyconf/internal/storage/memory"
)

// countingPrompter records how often it was asked.
type countingPrompter struct {
	answer bool
	err    error
	calls  int
}

func (p *countingPrompter) Prompt(context.Context, string) (bool, error) {
	p.calls++
	return p.answer, p.err
}

func TestStoredGate_DefaultNotHeld(t *testing.T) {
	g := NewStoredGate(memory.New(), Deny)
	held, err := g.Contains(context.Background())
	if err != nil || held {
		t.Fatalf("Contains = %v, %v", held, err)
	}
}

func TestStoredGate_RequestGranted(t *testing.T) {
	backend := memory.New()
	p := &countingPrompter{answer: true}
	g := NewStoredGate(backend, p)
	ctx := context.Background()

	ok, err := g.Request(ctx)
	if err != nil || !ok {
		t.Fatalf("Request = %v, %v", ok, err)
	}
	if held, _ := g.Contains(ctx); !held {
		t.Fatal("permission not held after grant")
	}

	raw, _, _ := backend.Get(ctx, Key)
	if string(raw) != `["downloads"]` {
		t.Errorf("stored %s", raw)
	}

	// A second request does not prompt again.
	if ok, _ := g.Request(ctx); !ok || p.calls != 1 {
		t.Errorf("second Request = %v, prompts = %d", ok, p.calls)
	}
}

func TestStoredGate_RequestDenied(t *testing.T) {
	g := NewStoredGate(memory.New(), &countingPrompter{answer: false})
	ctx := context.Background()
	ok, err := g.Request(ctx)
	if err != nil || ok {
		t.Fatalf("Request = %v, %v", ok, err)
	}
	if held, _ := g.Contains(ctx); held {
		t.Fatal("denied request must not grant")
	}
}

func TestStoredGate_PromptError(t *testing.T) {
	g := NewStoredGate(memory.New(), &countingPrompter{err: ErrNotInteractive})
	if _, err := g.Request(context.Background()); !errors.Is(err, ErrNotInteractive) {
		t.Fatalf("expected ErrNotInteractive, got %v", err)
	}
}

func TestStoredGate_Revoke(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	_ = backend.Set(ctx, Key, []byte(`["tabs","downloads"]`))
	g := NewStoredGate(backend, Deny)

	if held, _ := g.Contains(ctx); !held {
		t.Fatal("expected stored grant to be visible")
	}
	if err := g.Revoke(ctx); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if held, _ := g.Contains(ctx); held {
		t.Fatal("permission still held after revoke")
	}
	raw, _, _ := backend.Get(ctx, Key)
	if string(raw) != `["tabs"]` {
		t.Errorf("revoke touched other permissions: %s", raw)
	}
}

func TestStoredGate_RevokeWhenNotHeld(t *testing.T) {
	g := NewStoredGate(memory.New(), Deny)
	if err := g.Revoke(context.Background()); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
}

func TestStoredGate_CorruptData(t *testing.T) {
	backend := memory.New()
	_ = backend.Set(context.Background(), Key, []byte(`{`))
	g := NewStoredGate(backend, AutoApprove)
	if _, err := g.Contains(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	g := NewStatic(false, true)
	if held, _ := g.Contains(ctx); held {
		t.Fatal("should start not held")
	}
	if ok, _ := g.Request(ctx); !ok {
		t.Fatal("Request should grant")
	}
	_ = g.Revoke(ctx)
	if held, _ := g.Contains(ctx); held {
		t.Fatal("should be revoked")
	}

	deny := NewStatic(false, false)
	if ok, _ := deny.Request(ctx); ok {
		t.Fatal("Request should be refused")
	}
}

func TestAsk(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
		{"y", true},
		{"", false},
	} {
		var out bytes.Buffer
		got, err := ask(context.Background(), strings.NewReader(tc.input), &out, Downloads)
		if err != nil {
			t.Errorf("ask(%q) error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ask(%q) = %v, want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), `"downloads"`) {
			t.Errorf("prompt did not name the permission: %q", out.String())
		}
	}
}

func TestAsk_Cancelled(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ask(ctx, r, &bytes.Buffer{}, Downloads); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTerminalPrompter_NotInteractive(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	p := &TerminalPrompter{In: f, Out: &bytes.Buffer{}}
	if _, err := p.Prompt(context.Background(), Downloads); !errors.Is(err, ErrNotInteractive) {
		t.Fatalf("expected ErrNotInteractive, got %v", err)
	}
}
