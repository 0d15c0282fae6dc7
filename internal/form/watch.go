package form

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/alfredjeanlab/policyconf/internal/log"
)

// DefaultDebounce is how long a Watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports edits to a single file. It watches the parent directory
// so atomic replacements (write to temp, rename over) are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
}

// NewWatcher starts watching path. The file need not exist yet.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create watch dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		watcher:  fw,
		logger:   log.WithComponent("form.watch"),
	}, nil
}

// Run calls onChange after each settled burst of writes to the file until ctx
// is cancelled. It closes the watcher before returning.
func (w *Watcher) Run(ctx context.Context, onChange func()) {
	defer w.watcher.Close() //nolint:errcheck

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().
				Str("event", "workspace.changed").
				Str("op", event.Op.String()).
				Msg("workspace file changed")

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() == nil {
					onChange()
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Str("event", "workspace.watch_error").Msg("workspace watcher error")
		}
	}
}

// Watch reloads b whenever its workspace file is edited outside the process.
func Watch(ctx context.Context, b *FileBacked, debounce time.Duration) error {
	w, err := NewWatcher(b.Workspace().Path(), debounce)
	if err != nil {
		return err
	}
	go w.Run(ctx, func() {
		if err := b.Reload(); err != nil {
			w.logger.Error().Err(err).Str("event", "workspace.reload_failed").Msg("reload workspace")
			return
		}
		w.logger.Info().Str("event", "workspace.reloaded").Str("path", w.path).Msg("workspace reloaded")
	})
	return nil
}
