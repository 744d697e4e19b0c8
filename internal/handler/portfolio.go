// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"reelsync/internal/model"
	"reelsync/internal/snapshot"
)

// portfolioResponse is the public shape of one snapshot. Raw tables
// and the image mapping stay internal.
type portfolioResponse struct {
	RunID    string           `json:"runId"`
	SyncedAt time.Time        `json:"syncedAt"`
	Projects []model.Project  `json:"projects"`
	Posts    []model.Post     `json:"posts"`
	Config   model.SiteConfig `json:"config"`
}

// Portfolio serves the current snapshot.
func (h *Handler) Portfolio(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Load(r.Context())
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			w.Header().Set("Retry-After", "30")
			WriteError(w, http.StatusServiceUnavailable, "no_snapshot",
				"No snapshot available yet; trigger a sync and retry")
			return
		}
		h.logger.Error("snapshot load failed", "error", err)
		WriteInternalError(w, "Failed to load snapshot")
		return
	}

	mode, lastRun, stale := h.lastSync()
	w.Header().Set("Cache-Control", "public, max-age=60, stale-while-revalidate=600")
	if mode != "" {
		w.Header().Set("X-Sync-Mode", mode)
	}
	if !lastRun.IsZero() {
		w.Header().Set("X-Last-Synced", lastRun.UTC().Format(time.RFC3339))
	} else {
		w.Header().Set("X-Last-Synced", snap.SyncedAt.UTC().Format(time.RFC3339))
	}
	w.Header().Set("X-Data-Stale", strconv.FormatBool(stale))

	WriteJSON(w, http.StatusOK, portfolioResponse{
		RunID:    snap.RunID,
		SyncedAt: snap.SyncedAt,
		Projects: snap.Projects,
		Posts:    snap.Posts,
		Config:   snap.Config,
	})
}
