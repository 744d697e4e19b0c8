// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"reelsync/internal/airtable"
	"reelsync/internal/cloudinary"
	"reelsync/internal/model"
	"reelsync/internal/seo"
	"reelsync/internal/snapshot"
	"reelsync/internal/transform"
	"reelsync/internal/util"
)

// ErrSyncInProgress is returned when another run holds the sync lease.
var ErrSyncInProgress = errors.New("sync: another run is in progress")

// Run modes reported in stats and response headers.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
	ModeCacheHit    = "cache-hit"
	ModeStale       = "stale"
)

// defaultLeaseTTL bounds how long a crashed run can block the next one.
const defaultLeaseTTL = 5 * time.Minute

// Options configures an Orchestrator.
type Options struct {
	Client TableClient
	Store  snapshot.Store
	// Uploader pushes images to the CDN. Nil disables uploads; the
	// site then serves source URLs directly.
	Uploader cloudinary.Uploader
	// Thumbnails resolves video poster frames. Nil disables resolution.
	Thumbnails transform.ThumbnailResolver
	// Tables defaults to DefaultTables().
	Tables TableSet
	// SiteURL is the public site origin used in the sitemap.
	SiteURL string
	// LeaseTTL defaults to 5m.
	LeaseTTL time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now is a test seam; defaults to time.Now.
	Now func() time.Time
}

// Orchestrator drives one sync run: mode selection, change detection,
// fetching, transformation, image sync, and persistence. Runs are
// serialized by a store lease.
type Orchestrator struct {
	client   TableClient
	store    snapshot.Store
	uploader cloudinary.Uploader
	thumbs   transform.ThumbnailResolver
	tables   TableSet
	siteURL  string
	leaseTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Tables == (TableSet{}) {
		opts.Tables = DefaultTables()
	}
	if opts.LeaseTTL == 0 {
		opts.LeaseTTL = defaultLeaseTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		client:   opts.Client,
		store:    opts.Store,
		uploader: opts.Uploader,
		thumbs:   opts.Thumbnails,
		tables:   opts.Tables,
		siteURL:  opts.SiteURL,
		leaseTTL: opts.LeaseTTL,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Result is the outcome of one run.
type Result struct {
	Snapshot *model.Snapshot
	Stats    model.SyncStats
	// Stale is set when the upstream rate-limited us and the previous
	// snapshot was served instead of fresh data.
	Stale bool
	// CacheHit is set when change detection found nothing to do and
	// the previous snapshot was returned verbatim.
	CacheHit bool
}

// Run executes one sync. force skips change detection and refetches
// everything. Returns ErrSyncInProgress when another run holds the
// lease, and the upstream rate-limit error when rate limited with no
// cached snapshot to fall back to.
func (o *Orchestrator) Run(ctx context.Context, force bool) (*Result, error) {
	started := o.now()
	token := uuid.NewString()

	if err := o.store.AcquireLease(ctx, token, o.leaseTTL); err != nil {
		if errors.Is(err, snapshot.ErrLeaseHeld) {
			return nil, ErrSyncInProgress
		}
		return nil, fmt.Errorf("acquiring sync lease: %w", err)
	}
	defer func() {
		if err := o.store.ReleaseLease(context.WithoutCancel(ctx), token); err != nil {
			o.logger.Warn("failed to release sync lease", "error", err)
		}
	}()

	prev, err := o.store.Load(ctx)
	if err != nil && !errors.Is(err, snapshot.ErrNotFound) {
		return nil, fmt.Errorf("loading previous snapshot: %w", err)
	}

	mode := ModeIncremental
	if force || prev == nil || len(prev.Meta) == 0 {
		mode = ModeFull
	}
	o.logger.Info("sync run starting", "run_id", token, "mode", mode)

	var raw map[string][]model.RawRecord
	var stats model.SyncStats

	switch mode {
	case ModeFull:
		raw, err = o.fetchAll(ctx)
	case ModeIncremental:
		var res *Result
		raw, stats, res, err = o.fetchIncremental(ctx, prev)
		if res != nil {
			return res, nil
		}
	}
	if err != nil {
		if airtable.IsRateLimit(err) && prev != nil {
			o.logger.Warn("upstream rate limited, serving stale snapshot", "run_id", token)
			return &Result{
				Snapshot: prev,
				Stale:    true,
				Stats:    model.SyncStats{Mode: ModeStale},
			}, nil
		}
		return nil, err
	}

	snap, uploadStats, err := o.buildSnapshot(ctx, token, raw, prev)
	if err != nil {
		return nil, err
	}

	stats.Mode = mode
	stats.Uploaded = uploadStats.uploaded
	stats.UploadFailures = uploadStats.failed
	if mode == ModeFull {
		var prevMeta model.SyncMetadata
		if prev != nil {
			prevMeta = prev.Meta
		}
		stats.New, stats.Changed, stats.Deleted = diffMetadata(prevMeta, snap.Meta)
	}
	stats.Duration = o.now().Sub(started)
	stats.DurationMS = stats.Duration.Milliseconds()

	if err := o.persist(ctx, snap); err != nil {
		return nil, err
	}

	o.logger.Info("sync run finished",
		"run_id", token,
		"mode", mode,
		"new", stats.New,
		"changed", stats.Changed,
		"deleted", stats.Deleted,
		"uploaded", stats.Uploaded,
		"upload_failures", stats.UploadFailures,
		"duration_ms", stats.DurationMS)

	return &Result{Snapshot: snap, Stats: stats}, nil
}

// fetchAll retrieves every table concurrently. The table fetches have
// no data dependencies; a rate-limit error wins over other errors so
// the caller can pick the stale fallback.
func (o *Orchestrator) fetchAll(ctx context.Context) (map[string][]model.RawRecord, error) {
	var (
		mu       gosync.Mutex
		wg       gosync.WaitGroup
		firstErr error
	)
	raw := make(map[string][]model.RawRecord, len(o.tables.All()))

	for _, table := range o.tables.All() {
		wg.Add(1)
		go func(table string) {
			defer wg.Done()
			records, err := o.client.FetchTable(ctx, table, o.tables.SortField(table))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil || airtable.IsRateLimit(err) {
					firstErr = fmt.Errorf("fetching %s: %w", table, err)
				}
				return
			}
			raw[table] = records
		}(table)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return raw, nil
}

// fetchIncremental runs change detection and assembles the
// point-in-time union of fresh and reused raw records. A non-nil
// Result short-circuits the run (cache hit).
func (o *Orchestrator) fetchIncremental(ctx context.Context, prev *model.Snapshot) (map[string][]model.RawRecord, model.SyncStats, *Result, error) {
	var stats model.SyncStats

	detector := NewDetector(o.client, o.tables, o.logger)
	changes, err := detector.Detect(ctx, prev.Meta)
	if err != nil {
		return nil, stats, nil, err
	}

	if changes.Empty() {
		o.logger.Info("no changes detected, returning cached snapshot")
		return nil, stats, &Result{
			Snapshot: prev,
			CacheHit: true,
			Stats:    model.SyncStats{Mode: ModeCacheHit},
		}, nil
	}

	stats.New, stats.Changed, stats.Deleted = changes.Counts()

	raw := make(map[string][]model.RawRecord, len(o.tables.All()))
	for _, table := range o.tables.All() {
		records, err := o.fetchTableIncremental(ctx, table, changes, prev)
		if err != nil {
			return nil, stats, nil, err
		}
		raw[table] = records
	}
	return raw, stats, nil, nil
}

// fetchTableIncremental produces one table's rows for this generation:
// full refetch for resync-marked tables, fresh rows merged over cached
// ones for changed tables, cached rows (or a fetch when the cache is
// cold) for untouched tables.
func (o *Orchestrator) fetchTableIncremental(ctx context.Context, table string, changes *ChangeSet, prev *model.Snapshot) ([]model.RawRecord, error) {
	sortField := o.tables.SortField(table)

	if changes.FullResync[table] {
		return o.client.FetchTable(ctx, table, sortField)
	}

	ids := append(append([]string{}, changes.New[table]...), changes.Changed[table]...)
	cached, haveCache := prev.RawTables[table]

	if len(ids) == 0 && len(changes.Deleted[table]) == 0 {
		if haveCache {
			return cached, nil
		}
		// Nothing changed but we have no raw rows to reuse.
		return o.client.FetchTable(ctx, table, sortField)
	}

	if !haveCache {
		return o.client.FetchTable(ctx, table, sortField)
	}

	current := changes.Current[table]

	if len(ids) == 0 {
		// Deletions only; drop the gone rows from the cache.
		kept := make([]model.RawRecord, 0, len(cached))
		for _, rec := range cached {
			if _, still := current[rec.ID]; still {
				kept = append(kept, rec)
			}
		}
		return kept, nil
	}

	fetched, err := o.client.FetchRecordsByID(ctx, table, ids, sortField)
	if err != nil {
		return nil, fmt.Errorf("fetching changed records from %s: %w", table, err)
	}

	fetchedByID := make(map[string]model.RawRecord, len(fetched))
	for _, rec := range fetched {
		fetchedByID[rec.ID] = rec
	}

	merged := make([]model.RawRecord, 0, len(cached)+len(fetched))
	seen := make(map[string]bool, len(cached))
	for _, rec := range cached {
		if _, still := current[rec.ID]; !still {
			continue // deleted upstream
		}
		if fresh, ok := fetchedByID[rec.ID]; ok {
			merged = append(merged, fresh)
		} else {
			merged = append(merged, rec)
		}
		seen[rec.ID] = true
	}
	for _, rec := range fetched {
		if !seen[rec.ID] {
			merged = append(merged, rec)
		}
	}
	return merged, nil
}

type uploadStats struct {
	uploaded int
	failed   int
}

// buildSnapshot runs image sync and transformation over the assembled
// raw rows and derives the new snapshot.
func (o *Orchestrator) buildSnapshot(ctx context.Context, runID string, raw map[string][]model.RawRecord, prev *model.Snapshot) (*model.Snapshot, uploadStats, error) {
	images, ustats := o.syncImages(ctx, raw, prev)

	resolver := func(recordID string, index int, att model.Attachment) string {
		for _, ref := range images[recordID] {
			if ref.Index == index && ref.SourceAttachmentID == att.ID && ref.URL != "" {
				return ref.URL
			}
		}
		return att.URL
	}

	transformer := transform.New(transform.Options{
		Thumbnails: o.thumbs,
		ImageURL:   resolver,
		Now:        o.now,
		Logger:     o.logger,
	})
	result := transformer.Run(ctx, transform.Tables{
		Projects: raw[o.tables.Projects],
		Posts:    raw[o.tables.Posts],
		Config:   raw[o.tables.Config],
		Awards:   raw[o.tables.Awards],
		Clients:  raw[o.tables.Clients],
	})

	if err := checkSlugs(result); err != nil {
		return nil, ustats, err
	}

	snap := &model.Snapshot{
		RunID:     runID,
		SyncedAt:  o.now(),
		Projects:  result.Projects,
		Posts:     result.Posts,
		Config:    result.Config,
		RawTables: raw,
		Images:    images,
		Meta:      metadataFrom(raw),
	}

	return snap, ustats, nil
}

// syncImages reconciles every record's attachments against the
// previous mapping. Nil uploader means images stay on their source
// URLs and no mapping is produced.
func (o *Orchestrator) syncImages(ctx context.Context, raw map[string][]model.RawRecord, prev *model.Snapshot) (map[string][]model.ImageRef, uploadStats) {
	if o.uploader == nil {
		return nil, uploadStats{}
	}

	syncer := cloudinary.NewSyncer(o.uploader, o.logger)

	var prevImages map[string][]model.ImageRef
	if prev != nil {
		prevImages = prev.Images
	}

	images := make(map[string][]model.ImageRef)
	collect := func(records []model.RawRecord, field string) {
		for _, rec := range records {
			atts := rec.Attachments(field)
			if len(atts) == 0 {
				continue
			}
			images[rec.ID] = syncer.SyncRecord(ctx, rec.ID, atts, prevImages[rec.ID])
		}
	}

	collect(raw[o.tables.Projects], "Gallery")
	collect(raw[o.tables.Posts], "Image")
	collect(raw[o.tables.Config], "Default Share Image")
	return images, uploadStats{uploaded: syncer.Uploaded(), failed: syncer.Failed()}
}

// persist saves the snapshot and its derived artifacts. Artifact
// failures degrade to warnings; the snapshot itself must land.
func (o *Orchestrator) persist(ctx context.Context, snap *model.Snapshot) error {
	if err := o.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	if sitemap, err := seo.BuildSitemap(o.siteURL, snap); err != nil {
		o.logger.Warn("sitemap generation failed", "error", err)
	} else if err := o.store.SaveArtifact(ctx, snapshot.ArtifactSitemap, sitemap); err != nil {
		o.logger.Warn("sitemap persistence failed", "error", err)
	}

	if meta, err := seo.BuildShareMeta(snap); err != nil {
		o.logger.Warn("share-meta generation failed", "error", err)
	} else if err := o.store.SaveArtifact(ctx, snapshot.ArtifactShareMeta, meta); err != nil {
		o.logger.Warn("share-meta persistence failed", "error", err)
	}
	return nil
}

// checkSlugs enforces the publish invariant: every item carries a
// non-empty, well-formed slug. Slug uniqueness is guaranteed by
// construction inside the transformer.
func checkSlugs(result transform.Result) error {
	for _, p := range result.Projects {
		if !util.IsValidSlug(p.Slug) {
			return fmt.Errorf("project %s has invalid slug %q", p.ID, p.Slug)
		}
	}
	for _, p := range result.Posts {
		if !util.IsValidSlug(p.Slug) {
			return fmt.Errorf("post %s has invalid slug %q", p.ID, p.Slug)
		}
	}
	return nil
}

// metadataFrom derives the timestamp baseline for the next run from
// the rows this run actually used.
func metadataFrom(raw map[string][]model.RawRecord) model.SyncMetadata {
	meta := make(model.SyncMetadata, len(raw))
	for table, records := range raw {
		byID := make(map[string]string, len(records))
		for _, rec := range records {
			byID[rec.ID] = rec.LastModified
		}
		meta[table] = byID
	}
	return meta
}

// diffMetadata counts record-level differences between two baselines.
func diffMetadata(prev, current model.SyncMetadata) (added, changed, deleted int) {
	for table, currentByID := range current {
		prevByID := prev[table]
		for id, ts := range currentByID {
			old, existed := prevByID[id]
			switch {
			case !existed:
				added++
			case old != ts:
				changed++
			}
		}
	}
	for table, prevByID := range prev {
		currentByID := current[table]
		for id := range prevByID {
			if _, still := currentByID[id]; !still {
				deleted++
			}
		}
	}
	return
}
