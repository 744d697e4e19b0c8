// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"
)

// RawRecord is one row from the remote tabular source, kept verbatim in
// the snapshot so unchanged records can be re-transformed without a
// refetch.
type RawRecord struct {
	ID           string                     `json:"id"`
	Fields       map[string]json.RawMessage `json:"fields"`
	LastModified string                     `json:"lastModified,omitempty"`
}

// String returns the string value of a field, or "" when the field is
// absent or not a string.
func (r RawRecord) String(field string) string {
	raw, ok := r.Fields[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Bool returns the boolean value of a field, false when absent.
func (r RawRecord) Bool(field string) bool {
	raw, ok := r.Fields[field]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

// Strings returns a string-list field. A scalar string field is wrapped
// into a one-element list, matching how the source API renders
// single-select versus multi-select columns.
func (r RawRecord) Strings(field string) []string {
	raw, ok := r.Fields[field]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	if s := r.String(field); s != "" {
		return []string{s}
	}
	return nil
}

// Attachment is one entry of an attachment-type field. The ID is stable
// across URL rotation and drives image change detection.
type Attachment struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// Attachments returns an attachment-list field, nil when absent or
// malformed.
func (r RawRecord) Attachments(field string) []Attachment {
	raw, ok := r.Fields[field]
	if !ok {
		return nil
	}
	var list []Attachment
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

// Snapshot is the complete output of one sync run: the transformed
// dataset, the raw rows it was built from, the image mapping, and the
// timestamp baseline for the next run.
type Snapshot struct {
	RunID     string                 `json:"runId"`
	SyncedAt  time.Time              `json:"syncedAt"`
	Projects  []Project              `json:"projects"`
	Posts     []Post                 `json:"posts"`
	Config    SiteConfig             `json:"config"`
	RawTables map[string][]RawRecord `json:"rawTables,omitempty"`
	Images    map[string][]ImageRef  `json:"images,omitempty"`
	Meta      SyncMetadata           `json:"meta"`
}

// FindProjectBySlug returns the project with the given slug, or nil.
func (s *Snapshot) FindProjectBySlug(slug string) *Project {
	for i := range s.Projects {
		if s.Projects[i].Slug == slug {
			return &s.Projects[i]
		}
	}
	return nil
}

// FindPostBySlug returns the post with the given slug, or nil.
func (s *Snapshot) FindPostBySlug(slug string) *Post {
	for i := range s.Posts {
		if s.Posts[i].Slug == slug {
			return &s.Posts[i]
		}
	}
	return nil
}
