// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs recurring syncs on a cron schedule. Recurring
// syncs are off by default; most deployments rely on webhook triggers.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	syncpkg "reelsync/internal/sync"
)

// runTimeout bounds one scheduled sync run.
const runTimeout = 10 * time.Minute

// Runner triggers a sync run. Satisfied by *sync.Orchestrator.
type Runner interface {
	Run(ctx context.Context, force bool) (*syncpkg.Result, error)
}

// Options configures a Scheduler.
type Options struct {
	// Schedule is a standard 5-field cron expression. Empty disables
	// the scheduler entirely.
	Schedule string
	Runner   Runner
	// OnResult receives each successful run's result, nil to ignore.
	OnResult func(*syncpkg.Result)
	Logger   *slog.Logger
}

// Scheduler triggers incremental syncs on a fixed schedule.
type Scheduler struct {
	schedule string
	runner   Runner
	onResult func(*syncpkg.Result)
	cron     *cron.Cron
	logger   *slog.Logger
}

// New creates a scheduler instance.
func New(opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		schedule: opts.Schedule,
		runner:   opts.Runner,
		onResult: opts.OnResult,
		cron:     cron.New(),
		logger:   opts.Logger,
	}
}

// Enabled reports whether a schedule is configured.
func (s *Scheduler) Enabled() bool {
	return s.schedule != ""
}

// Start registers the sync job and starts the cron loop. A no-op when
// no schedule is configured.
func (s *Scheduler) Start() error {
	if !s.Enabled() {
		s.logger.Info("recurring sync disabled, no schedule configured")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runOnce); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	if !s.Enabled() {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	res, err := s.runner.Run(ctx, false)
	if err != nil {
		if errors.Is(err, syncpkg.ErrSyncInProgress) {
			s.logger.Info("scheduled sync skipped, another run in progress")
			return
		}
		s.logger.Error("scheduled sync failed", "error", err)
		return
	}

	if s.onResult != nil {
		s.onResult(res)
	}
	s.logger.Info("scheduled sync finished",
		"mode", res.Stats.Mode,
		"new", res.Stats.New,
		"changed", res.Stats.Changed,
		"deleted", res.Stats.Deleted)
}
