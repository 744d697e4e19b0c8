// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reelsync/internal/seo"
	"reelsync/internal/snapshot"
)

// Sitemap serves the persisted sitemap artifact.
func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.LoadArtifact(r.Context(), snapshot.ArtifactSitemap)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			WriteNotFound(w, "Sitemap not generated yet")
			return
		}
		h.logger.Error("sitemap load failed", "error", err)
		WriteInternalError(w, "Failed to load sitemap")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

// ShareMeta serves the full share-meta manifest.
func (h *Handler) ShareMeta(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.LoadArtifact(r.Context(), snapshot.ArtifactShareMeta)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			WriteNotFound(w, "Share metadata not generated yet")
			return
		}
		h.logger.Error("share-meta load failed", "error", err)
		WriteInternalError(w, "Failed to load share metadata")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(data)
}

// ShareMetaBySlug serves one page's share metadata.
func (h *Handler) ShareMetaBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	data, err := h.store.LoadArtifact(r.Context(), snapshot.ArtifactShareMeta)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			WriteNotFound(w, "Share metadata not generated yet")
			return
		}
		h.logger.Error("share-meta load failed", "error", err)
		WriteInternalError(w, "Failed to load share metadata")
		return
	}

	var manifest map[string]seo.ShareMeta
	if err := json.Unmarshal(data, &manifest); err != nil {
		h.logger.Error("share-meta manifest corrupt", "error", err)
		WriteInternalError(w, "Share metadata is corrupt")
		return
	}

	entry, ok := manifest[slug]
	if !ok {
		WriteNotFound(w, "No share metadata for this slug")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	WriteJSON(w, http.StatusOK, entry)
}
