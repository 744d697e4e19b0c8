// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sync

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	gosync "sync"
	"testing"

	"reelsync/internal/airtable"
	"reelsync/internal/model"
)

// fakeClient is an in-memory TableClient. Timestamps derive from the
// table data unless overridden per table.
type fakeClient struct {
	mu     gosync.Mutex
	tables map[string][]model.RawRecord

	tsErr    map[string]error
	tableErr map[string]error

	fetchTableCalls map[string]int
	fetchByIDCalls  map[string][][]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		tables:          make(map[string][]model.RawRecord),
		tsErr:           make(map[string]error),
		tableErr:        make(map[string]error),
		fetchTableCalls: make(map[string]int),
		fetchByIDCalls:  make(map[string][][]string),
	}
}

func (f *fakeClient) FetchTable(_ context.Context, table, _ string) ([]model.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchTableCalls[table]++
	if err := f.tableErr[table]; err != nil {
		return nil, err
	}
	return append([]model.RawRecord{}, f.tables[table]...), nil
}

func (f *fakeClient) FetchTimestamps(_ context.Context, table string) ([]airtable.Timestamp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.tsErr[table]; err != nil {
		return nil, err
	}
	out := make([]airtable.Timestamp, 0, len(f.tables[table]))
	for _, rec := range f.tables[table] {
		out = append(out, airtable.Timestamp{ID: rec.ID, LastModified: rec.LastModified})
	}
	return out, nil
}

func (f *fakeClient) FetchRecordsByID(_ context.Context, table string, ids []string, _ string) ([]model.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchByIDCalls[table] = append(f.fetchByIDCalls[table], append([]string{}, ids...))
	if err := f.tableErr[table]; err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.RawRecord
	for _, rec := range f.tables[table] {
		if want[rec.ID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeClient) totalFetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.fetchTableCalls {
		total += n
	}
	for _, calls := range f.fetchByIDCalls {
		total += len(calls)
	}
	return total
}

func rawRec(id, lastModified string, fields map[string]any) model.RawRecord {
	f := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		f[k] = b
	}
	return model.RawRecord{ID: id, Fields: f, LastModified: lastModified}
}

func TestDetectorFirstRun(t *testing.T) {
	client := newFakeClient()
	client.tables["Projects"] = []model.RawRecord{
		rawRec("recA", "2026-01-01T00:00:00Z", nil),
		rawRec("recB", "2026-01-02T00:00:00Z", nil),
	}

	d := NewDetector(client, DefaultTables(), nil)
	set, err := d.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if got := set.New["Projects"]; !reflect.DeepEqual(got, []string{"recA", "recB"}) {
		t.Errorf("new = %v, want [recA recB]", got)
	}
	if len(set.Changed["Projects"]) != 0 || len(set.Deleted["Projects"]) != 0 {
		t.Errorf("changed/deleted = %v/%v, want empty", set.Changed["Projects"], set.Deleted["Projects"])
	}
	if set.Empty() {
		t.Error("Empty() = true for a first run with records")
	}
}

func TestDetectorNewAndDeleted(t *testing.T) {
	client := newFakeClient()
	client.tables["Projects"] = []model.RawRecord{
		rawRec("recA", "t1", nil),
		rawRec("recC", "t3", nil),
	}

	prev := model.SyncMetadata{
		"Projects": {"recA": "t1", "recB": "t2"},
	}

	d := NewDetector(client, DefaultTables(), nil)
	set, err := d.Detect(context.Background(), prev)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if got := set.New["Projects"]; !reflect.DeepEqual(got, []string{"recC"}) {
		t.Errorf("new = %v, want [recC]", got)
	}
	if got := set.Deleted["Projects"]; !reflect.DeepEqual(got, []string{"recB"}) {
		t.Errorf("deleted = %v, want [recB]", got)
	}
	if len(set.Changed["Projects"]) != 0 {
		t.Errorf("changed = %v, want empty", set.Changed["Projects"])
	}
}

func TestDetectorChangedTimestamp(t *testing.T) {
	client := newFakeClient()
	client.tables["Posts"] = []model.RawRecord{
		rawRec("recP", "t2", nil),
	}

	prev := model.SyncMetadata{
		"Posts": {"recP": "t1"},
	}

	d := NewDetector(client, DefaultTables(), nil)
	set, err := d.Detect(context.Background(), prev)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if got := set.Changed["Posts"]; !reflect.DeepEqual(got, []string{"recP"}) {
		t.Errorf("changed = %v, want [recP]", got)
	}
}

func TestDetectorNoChanges(t *testing.T) {
	client := newFakeClient()
	client.tables["Projects"] = []model.RawRecord{rawRec("recA", "t1", nil)}

	prev := model.SyncMetadata{
		"Projects": {"recA": "t1"},
	}

	d := NewDetector(client, DefaultTables(), nil)
	set, err := d.Detect(context.Background(), prev)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !set.Empty() {
		t.Errorf("Empty() = false, set = %+v", set)
	}
}

func TestDetectorTimestampFailureMarksResync(t *testing.T) {
	client := newFakeClient()
	client.tables["Projects"] = []model.RawRecord{rawRec("recA", "t1", nil)}
	client.tsErr["Awards"] = errors.New("boom")

	d := NewDetector(client, DefaultTables(), nil)
	set, err := d.Detect(context.Background(), model.SyncMetadata{"Projects": {"recA": "t1"}})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !set.FullResync["Awards"] {
		t.Error("Awards not marked for full resync")
	}
	if set.Empty() {
		t.Error("Empty() = true despite a pending resync")
	}
}

func TestDetectorRateLimitAborts(t *testing.T) {
	client := newFakeClient()
	client.tsErr["Projects"] = &airtable.RateLimitError{}

	d := NewDetector(client, DefaultTables(), nil)
	_, err := d.Detect(context.Background(), model.SyncMetadata{})
	if !airtable.IsRateLimit(err) {
		t.Fatalf("err = %v, want rate-limit error", err)
	}
}
