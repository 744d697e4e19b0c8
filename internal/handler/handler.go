// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP surface: the portfolio data
// endpoint, the sync trigger, SEO artifacts, and health.
package handler

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"reelsync/internal/snapshot"
	syncpkg "reelsync/internal/sync"
)

// Runner triggers a sync run. Satisfied by *sync.Orchestrator.
type Runner interface {
	Run(ctx context.Context, force bool) (*syncpkg.Result, error)
}

// Options holds dependencies for the Handler.
type Options struct {
	Store  snapshot.Store
	Runner Runner
	// TriggerToken gates POST /api/sync. Empty disables auth.
	TriggerToken string
	Version      string
	Logger       *slog.Logger
}

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	store        snapshot.Store
	runner       Runner
	triggerToken string
	version      string
	logger       *slog.Logger
	startTime    time.Time

	mu       gosync.Mutex
	lastMode string
	lastRun  time.Time
	stale    bool
}

// New creates a Handler.
func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		store:        opts.Store,
		runner:       opts.Runner,
		triggerToken: opts.TriggerToken,
		version:      opts.Version,
		logger:       opts.Logger,
		startTime:    time.Now(),
	}
}

// RecordResult remembers the outcome of a sync run so the data
// endpoint can report freshness. Called by the trigger handler and by
// the scheduler.
func (h *Handler) RecordResult(res *syncpkg.Result) {
	if res == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastMode = res.Stats.Mode
	h.lastRun = time.Now()
	h.stale = res.Stale
}

func (h *Handler) lastSync() (mode string, at time.Time, stale bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastMode, h.lastRun, h.stale
}

// Routes builds the router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", h.Health)
	r.Get("/sitemap.xml", h.Sitemap)

	r.Route("/api", func(r chi.Router) {
		r.Get("/portfolio", h.Portfolio)
		r.Get("/share-meta", h.ShareMeta)
		r.Get("/share-meta/{slug}", h.ShareMetaBySlug)

		r.Group(func(r chi.Router) {
			r.Use(h.requireTriggerToken)
			r.Post("/sync", h.TriggerSync)
		})
	})

	return r
}
