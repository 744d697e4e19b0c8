// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sync

import (
	"context"
	"log/slog"
	"sort"
	gosync "sync"

	"reelsync/internal/airtable"
	"reelsync/internal/model"
)

// ChangeSet classifies every record of every table against the
// previous run's timestamps.
type ChangeSet struct {
	New     map[string][]string
	Changed map[string][]string
	Deleted map[string][]string

	// Current holds the timestamps observed during detection, keyed
	// like model.SyncMetadata. Tables marked FullResync are absent.
	Current model.SyncMetadata

	// FullResync marks tables whose timestamp fetch failed; they must
	// be refetched wholesale rather than guessed at.
	FullResync map[string]bool
}

// Empty reports whether no table saw any change and none needs a full
// resync.
func (c *ChangeSet) Empty() bool {
	if len(c.FullResync) > 0 {
		return false
	}
	for _, m := range []map[string][]string{c.New, c.Changed, c.Deleted} {
		for _, ids := range m {
			if len(ids) > 0 {
				return false
			}
		}
	}
	return true
}

// Counts sums new/changed/deleted ids across tables.
func (c *ChangeSet) Counts() (added, changed, deleted int) {
	for _, ids := range c.New {
		added += len(ids)
	}
	for _, ids := range c.Changed {
		changed += len(ids)
	}
	for _, ids := range c.Deleted {
		deleted += len(ids)
	}
	return
}

// Detector compares current table timestamps against a stored
// baseline. Detection is independent per table; tables are probed
// concurrently.
type Detector struct {
	client TableClient
	tables TableSet
	logger *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(client TableClient, tables TableSet, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{client: client, tables: tables, logger: logger}
}

// Detect classifies each record as new, changed, deleted, or unchanged
// per table. A table whose timestamp fetch fails is marked for full
// resync; a rate-limit failure aborts detection entirely so the caller
// can fall back to the cached snapshot.
func (d *Detector) Detect(ctx context.Context, prev model.SyncMetadata) (*ChangeSet, error) {
	set := &ChangeSet{
		New:        make(map[string][]string),
		Changed:    make(map[string][]string),
		Deleted:    make(map[string][]string),
		Current:    make(model.SyncMetadata),
		FullResync: make(map[string]bool),
	}

	var (
		mu        gosync.Mutex
		wg        gosync.WaitGroup
		rateLimit error
	)

	for _, table := range d.tables.All() {
		wg.Add(1)
		go func(table string) {
			defer wg.Done()

			timestamps, err := d.client.FetchTimestamps(ctx, table)
			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if airtable.IsRateLimit(err) {
					rateLimit = err
					return
				}
				d.logger.Warn("timestamp fetch failed, scheduling full resync",
					"table", table, "error", err)
				set.FullResync[table] = true
				return
			}

			d.diffTable(set, table, prev[table], timestamps)
		}(table)
	}
	wg.Wait()

	if rateLimit != nil {
		return nil, rateLimit
	}
	return set, nil
}

// diffTable fills one table's entry in the change set. With no prior
// metadata (first-ever run) every current id comes out as new.
func (d *Detector) diffTable(set *ChangeSet, table string, prev map[string]string, current []airtable.Timestamp) {
	currentByID := make(map[string]string, len(current))
	for _, ts := range current {
		currentByID[ts.ID] = ts.LastModified
	}
	set.Current[table] = currentByID

	var added, changed, deleted []string
	for id, ts := range currentByID {
		prevTS, existed := prev[id]
		switch {
		case !existed:
			added = append(added, id)
		case prevTS != ts:
			changed = append(changed, id)
		}
	}
	for id := range prev {
		if _, still := currentByID[id]; !still {
			deleted = append(deleted, id)
		}
	}

	// Map iteration order is random; keep the output deterministic.
	sort.Strings(added)
	sort.Strings(changed)
	sort.Strings(deleted)

	set.New[table] = added
	set.Changed[table] = changed
	set.Deleted[table] = deleted
}
