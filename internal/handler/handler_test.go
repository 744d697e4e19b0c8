// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reelsync/internal/airtable"
	"reelsync/internal/model"
	"reelsync/internal/snapshot"
	syncpkg "reelsync/internal/sync"
)

type fakeRunner struct {
	res   *syncpkg.Result
	err   error
	calls int
	force []bool
}

func (f *fakeRunner) Run(_ context.Context, force bool) (*syncpkg.Result, error) {
	f.calls++
	f.force = append(f.force, force)
	return f.res, f.err
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		RunID:    "run-1",
		SyncedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Projects: []model.Project{{ID: "rec1", Title: "The Launch", Slug: "the-launch-2023"}},
		Posts:    []model.Post{{ID: "recP", Title: "Notes", Slug: "notes"}},
	}
}

func newTestHandler(t *testing.T, store snapshot.Store, runner Runner, token string) *Handler {
	t.Helper()
	if store == nil {
		store = snapshot.NewMemoryStore()
	}
	if runner == nil {
		runner = &fakeRunner{res: &syncpkg.Result{Snapshot: testSnapshot()}}
	}
	return New(Options{Store: store, Runner: runner, TriggerToken: token, Version: "test"})
}

func TestPortfolioNoSnapshot(t *testing.T) {
	h := newTestHandler(t, nil, nil, "")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestPortfolioServesSnapshot(t *testing.T) {
	store := snapshot.NewMemoryStore()
	if err := store.Save(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	h := newTestHandler(t, store, nil, "")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=60, stale-while-revalidate=600" {
		t.Errorf("Cache-Control = %q", got)
	}
	if got := rec.Header().Get("X-Data-Stale"); got != "false" {
		t.Errorf("X-Data-Stale = %q, want false", got)
	}
	if got := rec.Header().Get("X-Last-Synced"); got != "2026-08-01T12:00:00Z" {
		t.Errorf("X-Last-Synced = %q", got)
	}

	var body portfolioResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Projects) != 1 || body.Projects[0].Slug != "the-launch-2023" {
		t.Errorf("projects = %+v", body.Projects)
	}
	if strings.Contains(rec.Body.String(), "rawTables") {
		t.Error("response leaks raw tables")
	}
}

func TestPortfolioReportsLastRun(t *testing.T) {
	store := snapshot.NewMemoryStore()
	if err := store.Save(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	h := newTestHandler(t, store, nil, "")
	h.RecordResult(&syncpkg.Result{Stats: model.SyncStats{Mode: "incremental"}, Stale: true})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolio", nil))

	if got := rec.Header().Get("X-Sync-Mode"); got != "incremental" {
		t.Errorf("X-Sync-Mode = %q, want incremental", got)
	}
	if got := rec.Header().Get("X-Data-Stale"); got != "true" {
		t.Errorf("X-Data-Stale = %q, want true", got)
	}
}

func TestTriggerSync(t *testing.T) {
	runner := &fakeRunner{res: &syncpkg.Result{
		Snapshot: testSnapshot(),
		Stats:    model.SyncStats{Mode: "full", New: 2},
	}}
	h := newTestHandler(t, nil, runner, "")

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync?full=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if runner.calls != 1 || !runner.force[0] {
		t.Errorf("runner calls = %d force = %v, want one forced run", runner.calls, runner.force)
	}

	var body triggerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Stats.Mode != "full" || body.Stats.New != 2 {
		t.Errorf("stats = %+v", body.Stats)
	}
}

func TestTriggerAuth(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong token", "Bearer wrong", http.StatusUnauthorized},
		{"wrong scheme", "Basic c2VjcmV0", http.StatusUnauthorized},
		{"valid token", "Bearer secret", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, nil, nil, "secret")
			req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestTriggerConflict(t *testing.T) {
	runner := &fakeRunner{err: syncpkg.ErrSyncInProgress}
	h := newTestHandler(t, nil, runner, "")

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestTriggerRateLimited(t *testing.T) {
	runner := &fakeRunner{err: &airtable.RateLimitError{RetryAfter: 45 * time.Second}}
	h := newTestHandler(t, nil, runner, "")

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "45" {
		t.Errorf("Retry-After = %q, want 45", got)
	}
}

func TestSitemap(t *testing.T) {
	store := snapshot.NewMemoryStore()
	h := newTestHandler(t, store, nil, "")

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status before generation = %d, want 404", rec.Code)
	}

	xml := []byte(`<?xml version="1.0" encoding="UTF-8"?><urlset></urlset>`)
	if err := store.SaveArtifact(context.Background(), snapshot.ArtifactSitemap, xml); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}

	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "application/xml") {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != string(xml) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestShareMetaBySlug(t *testing.T) {
	store := snapshot.NewMemoryStore()
	manifest := `{"the-launch-2023":{"id":"rec1","slug":"the-launch-2023","kind":"project","title":"The Launch"}}`
	if err := store.SaveArtifact(context.Background(), snapshot.ArtifactShareMeta, []byte(manifest)); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}
	h := newTestHandler(t, store, nil, "")

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/share-meta/the-launch-2023", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "The Launch") {
		t.Errorf("body = %s", rec.Body)
	}

	rec = httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/share-meta/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status for unknown slug = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, nil, nil, "")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body)
	}
}
