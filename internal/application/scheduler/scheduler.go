// Package scheduler runs the sync on a fixed interval, picking up where the
// last recorded run left off.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eshaffer321/itemize/internal/application/service"
	appsync "github.com/eshaffer321/itemize/internal/application/sync"
	"github.com/eshaffer321/itemize/internal/infrastructure/storage"
)

// Syncer runs one sync. *service.SyncService satisfies it.
type Syncer interface {
	RunSync(ctx context.Context, req service.SyncRequest, trigger service.Trigger) (*appsync.Result, error)
}

// Config controls the schedule
type Config struct {
	Enabled  bool
	Interval time.Duration
	// Request is sent on every scheduled run.
	Request service.SyncRequest
}

// Scheduler fires a sync every Interval. The first run waits only for
// whatever is left of the interval since the last recorded run.
type Scheduler struct {
	cfg    Config
	syncer Syncer
	runs   storage.SyncRunRepository
	logger *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New creates a scheduler. runs may be nil, in which case the first sync
// fires immediately.
func New(cfg Config, syncer Syncer, runs storage.SyncRunRepository, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		syncer: syncer,
		runs:   runs,
		logger: logger,
		now:    time.Now,
		after:  time.After,
	}
}

// NextDelay returns how long to wait before the next sync:
// max(0, interval - time since lastSync). A zero lastSync means never.
func NextDelay(interval time.Duration, lastSync, now time.Time) time.Duration {
	if lastSync.IsZero() {
		return 0
	}
	delay := interval - now.Sub(lastSync)
	if delay < 0 {
		return 0
	}
	return delay
}

// Run blocks until ctx is cancelled. It returns nil straight away when
// scheduling is disabled.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("Scheduled sync disabled")
		return nil
	}
	if s.cfg.Interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}

	delay := NextDelay(s.cfg.Interval, s.lastSync(), s.now())
	s.logger.Info("Scheduled sync enabled",
		"interval", s.cfg.Interval,
		"first_run_in", delay.Round(time.Second),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-s.after(delay):
		}

		s.fire(ctx)
		delay = s.cfg.Interval
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	s.logger.Info("Running scheduled sync")

	result, err := s.syncer.RunSync(ctx, s.cfg.Request, service.TriggerScheduled)
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		s.logger.Info("Skipping scheduled sync, another sync is running")
	case err != nil:
		s.logger.Warn("Scheduled sync failed", "error", err)
	default:
		s.logger.Info("Scheduled sync complete", "result", result)
	}
}

// lastSync returns the start time of the newest finished run
func (s *Scheduler) lastSync() time.Time {
	if s.runs == nil {
		return time.Time{}
	}
	run, err := s.runs.GetLastSyncRun()
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Failed to read last sync run", "error", err)
		}
		return time.Time{}
	}
	return run.StartedAt
}
