// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sync coordinates one synchronization run: change detection
// against the previous snapshot, fetching, transformation, image sync,
// and persistence.
package sync

import (
	"context"

	"reelsync/internal/airtable"
	"reelsync/internal/model"
)

// TableClient is the part of the remote table client the sync pipeline
// uses. Satisfied by *airtable.Client.
type TableClient interface {
	FetchTable(ctx context.Context, table, sortField string) ([]model.RawRecord, error)
	FetchTimestamps(ctx context.Context, table string) ([]airtable.Timestamp, error)
	FetchRecordsByID(ctx context.Context, table string, ids []string, sortField string) ([]model.RawRecord, error)
}

// TableSet names the source tables of one base. Projects is the
// primary table; the rest are optional content.
type TableSet struct {
	Projects string
	Posts    string
	Config   string
	Awards   string
	Clients  string
}

// DefaultTables returns the conventional table names.
func DefaultTables() TableSet {
	return TableSet{
		Projects: "Projects",
		Posts:    "Posts",
		Config:   "Config",
		Awards:   "Awards",
		Clients:  "Clients",
	}
}

// All lists every table in a stable order.
func (t TableSet) All() []string {
	return []string{t.Projects, t.Posts, t.Config, t.Awards, t.Clients}
}

// Optional lists the tables whose absence is tolerated.
func (t TableSet) Optional() []string {
	return []string{t.Posts, t.Config, t.Awards, t.Clients}
}

// SortField returns the listing sort field for a table, empty for
// tables without a defined order.
func (t TableSet) SortField(table string) string {
	switch table {
	case t.Projects:
		return "Order"
	case t.Posts:
		return "Date"
	default:
		return ""
	}
}
