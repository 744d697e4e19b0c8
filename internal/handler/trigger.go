// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"reelsync/internal/airtable"
	"reelsync/internal/model"
	syncpkg "reelsync/internal/sync"
)

// triggerResponse reports the outcome of a triggered sync run.
type triggerResponse struct {
	Stats model.SyncStats `json:"stats"`
	Stale bool            `json:"stale"`
}

// TriggerSync runs a sync. ?full=1 forces a full refetch.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("full") == "1"

	res, err := h.runner.Run(r.Context(), force)
	if err != nil {
		switch {
		case errors.Is(err, syncpkg.ErrSyncInProgress):
			WriteError(w, http.StatusConflict, "sync_in_progress",
				"Another sync run is already in progress")
		case airtable.IsRateLimit(err):
			w.Header().Set("Retry-After", retryAfterSeconds(err))
			WriteError(w, http.StatusTooManyRequests, "rate_limited",
				"Upstream rate limit hit and no cached snapshot to fall back to")
		default:
			h.logger.Error("sync run failed", "error", err, "full", force)
			WriteInternalError(w, "Sync failed")
		}
		return
	}

	h.RecordResult(res)
	WriteJSON(w, http.StatusOK, triggerResponse{Stats: res.Stats, Stale: res.Stale})
}

// retryAfterSeconds extracts the upstream's requested wait, defaulting
// to 30s when it sent none.
func retryAfterSeconds(err error) string {
	var rl *airtable.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return strconv.Itoa(int(rl.RetryAfter / time.Second))
	}
	return "30"
}
