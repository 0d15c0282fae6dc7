// Package sync backs up the saved configuration list as JSONL to S3 or a git
// repository, once or on a schedule.
package sync

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/policyconf/internal/metrics"
	"github.com/alfredjeanlab/policyconf/internal/store"
)

// Destination is the interface for a backup target (S3, git, etc.).
type Destination interface {
	// Name identifies the destination kind in logs and metrics.
	Name() string
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// RunOnce exports the store and writes the payload to every destination
// concurrently. Destination failures are joined.
func RunOnce(ctx context.Context, s store.Store, destinations []Destination) (int, error) {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s, &buf); err != nil {
		return 0, err
	}
	data := buf.Bytes()

	errs := make([]error, len(destinations))
	var g errgroup.Group
	for i, dest := range destinations {
		g.Go(func() error {
			err := dest.Write(ctx, data)
			metrics.RecordBackup(dest.Name(), err)
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()
	return len(data), errors.Join(errs...)
}

// Scheduler runs periodic backups to one or more destinations.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	logger       zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to the given
// destinations at the specified interval.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic backups. It runs one immediately, then on each tick,
// until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current backup (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.syncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncOnce(ctx)
		}
	}
}

func (s *Scheduler) syncOnce(ctx context.Context) {
	n, err := RunOnce(ctx, s.store, s.destinations)
	if err != nil {
		s.logger.Error().Err(err).Str("event", "backup.failed").Msg("backup failed")
		return
	}
	s.logger.Info().Str("event", "backup.completed").
		Int("destinations", len(s.destinations)).Int("bytes", n).
		Msg("backup completed")
}
