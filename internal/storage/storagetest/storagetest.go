// Package storagetest is a conformance suite for storage.Storage backends.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/alfredjeanlab/policyconf/internal/storage"
)

// Run exercises the storage.Storage contract against backends returned by
// open. Each subtest gets a fresh backend.
func Run(t *testing.T, open func(t *testing.T) storage.Storage) {
	t.Run("GetMissing", func(t *testing.T) {
		s := open(t)
		v, found, err := s.Get(context.Background(), "configurations")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if found || v != nil {
			t.Fatalf("Get(missing) = %q, %v", v, found)
		}
	})

	t.Run("SetGet", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.Set(ctx, "configurations", []byte(`[{"name":"a"}]`)); err != nil {
			t.Fatalf("Set: %v", err)
		}
		v, found, err := s.Get(ctx, "configurations")
		if err != nil || !found {
			t.Fatalf("Get = %v, %v", found, err)
		}
		if string(v) != `[{"name":"a"}]` {
			t.Fatalf("Get = %s", v)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_ = s.Set(ctx, "k", []byte(`1`))
		if err := s.Set(ctx, "k", []byte(`2`)); err != nil {
			t.Fatalf("Set: %v", err)
		}
		v, _, _ := s.Get(ctx, "k")
		if string(v) != "2" {
			t.Fatalf("Get = %s, want 2", v)
		}
	})

	t.Run("KeysIndependent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_ = s.Set(ctx, "configurations", []byte(`[]`))
		_ = s.Set(ctx, "permissions", []byte(`["downloads"]`))
		v, _, _ := s.Get(ctx, "configurations")
		if string(v) != "[]" {
			t.Fatalf("configurations = %s", v)
		}
		v, _, _ = s.Get(ctx, "permissions")
		if string(v) != `["downloads"]` {
			t.Fatalf("permissions = %s", v)
		}
	})

	t.Run("ValueIsCopied", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		buf := []byte(`"abc"`)
		_ = s.Set(ctx, "k", buf)
		buf[1] = 'x'
		v, _, _ := s.Get(ctx, "k")
		if !bytes.Equal(v, []byte(`"abc"`)) {
			t.Fatalf("stored value aliased caller buffer: %s", v)
		}
	})

	t.Run("Update", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		err := storage.Update(ctx, s, "counter", func(cur []byte, found bool) ([]byte, error) {
			if found {
				t.Errorf("unexpected current value %s", cur)
			}
			return []byte(`1`), nil
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		v, _, _ := s.Get(ctx, "counter")
		if string(v) != "1" {
			t.Fatalf("counter = %s", v)
		}
	})

	t.Run("UpdateAbort", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_ = s.Set(ctx, "k", []byte(`"keep"`))
		boom := errors.New("boom")
		err := storage.Update(ctx, s, "k", func([]byte, bool) ([]byte, error) {
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Update error = %v, want boom", err)
		}
		v, _, _ := s.Get(ctx, "k")
		if string(v) != `"keep"` {
			t.Fatalf("aborted update wrote %s", v)
		}
	})

	t.Run("ConcurrentUpdates", func(t *testing.T) {
		s := open(t)
		if _, ok := s.(storage.Updater); !ok {
			t.Skip("backend has no atomic update")
		}
		ctx := context.Background()
		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- storage.Update(ctx, s, "counter", func(cur []byte, found bool) ([]byte, error) {
					n := 0
					if found {
						var err error
						if n, err = strconv.Atoi(string(cur)); err != nil {
							return nil, err
						}
					}
					return []byte(strconv.Itoa(n + 1)), nil
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
		}
		v, _, _ := s.Get(ctx, "counter")
		if string(v) != strconv.Itoa(writers) {
			t.Fatalf("counter = %s, want %d", v, writers)
		}
	})
}
