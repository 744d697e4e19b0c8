// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared across the sync
// pipeline: projects, journal posts, site configuration, and the
// snapshot/bookkeeping structures persisted between runs.
package model

import "time"

// ProjectType classifies a project. Inferred from an explicit field when
// present, otherwise from keywords in free text (best effort).
type ProjectType string

// Valid project types.
const (
	TypeNarrative     ProjectType = "Narrative"
	TypeCommercial    ProjectType = "Commercial"
	TypeMusicVideo    ProjectType = "Music Video"
	TypeDocumentary   ProjectType = "Documentary"
	TypeUncategorized ProjectType = "Uncategorized"
)

// PostStatus controls journal entry visibility.
type PostStatus string

// Valid post statuses.
const (
	StatusDraft     PostStatus = "Draft"
	StatusScheduled PostStatus = "Scheduled"
	StatusPublic    PostStatus = "Public"
)

// Credit is one role/name pair in a project's ordered credit list.
type Credit struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// LinkKind distinguishes video-platform links from plain external links.
type LinkKind string

// Valid link kinds.
const (
	LinkVideo LinkKind = "video"
	LinkPlain LinkKind = "link"
)

// ExternalLink is a classified outbound link on a project.
type ExternalLink struct {
	Kind  LinkKind `json:"kind"`
	Label string   `json:"label"`
	URL   string   `json:"url"`
}

// Project is one portfolio entry, rebuilt wholesale on every sync run.
// Identity persists via the source record ID.
type Project struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Slug          string         `json:"slug"`
	Type          ProjectType    `json:"type"`
	Kinds         []string       `json:"kinds,omitempty"`
	Year          string         `json:"year,omitempty"`
	Description   string         `json:"description,omitempty"`
	HeroImage     string         `json:"heroImage,omitempty"`
	Gallery       []string       `json:"gallery,omitempty"`
	VideoURL      string         `json:"videoUrl,omitempty"`
	Credits       []Credit       `json:"credits,omitempty"`
	Awards        []string       `json:"awards,omitempty"`
	Links         []ExternalLink `json:"links,omitempty"`
	Featured      bool           `json:"featured"`
	RelatedPostID string         `json:"relatedPostId,omitempty"`
}

// Post is one journal entry.
type Post struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Date             string     `json:"date,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	Content          string     `json:"content,omitempty"`
	ContentHTML      string     `json:"contentHtml,omitempty"`
	ReadingTime      string     `json:"readingTime,omitempty"`
	ImageURL         string     `json:"imageUrl,omitempty"`
	RelatedProjectID string     `json:"relatedProjectId,omitempty"`
	Status           PostStatus `json:"status"`
	RelatedLinks     []string   `json:"relatedLinks,omitempty"`
}

// SiteConfig is the singleton settings object, one per snapshot.
type SiteConfig struct {
	ShowreelEnabled   bool     `json:"showreelEnabled"`
	ShowreelURL       string   `json:"showreelUrl,omitempty"`
	ContactEmail      string   `json:"contactEmail,omitempty"`
	Bio               string   `json:"bio,omitempty"`
	AllowedRoles      []string `json:"allowedRoles,omitempty"`
	DefaultShareImage string   `json:"defaultShareImage,omitempty"`
}

// SyncMetadata maps table name -> record ID -> last-modified timestamp,
// captured at the end of each run and used as the baseline for the next
// run's change detection.
type SyncMetadata map[string]map[string]string

// ImageRef records where one image slot of a record ended up on the CDN.
// SourceAttachmentID is the stable identifier compared across runs; an
// entry with an empty URL and a non-empty Error means the upload failed
// and renderers should fall back to SourceURL.
type ImageRef struct {
	Index              int    `json:"index"`
	PublicID           string `json:"publicId,omitempty"`
	URL                string `json:"url,omitempty"`
	SourceAttachmentID string `json:"sourceAttachmentId"`
	SourceURL          string `json:"sourceUrl"`
	Error              string `json:"error,omitempty"`
}

// SyncStats summarizes one sync run for observability.
type SyncStats struct {
	Mode           string        `json:"mode"`
	New            int           `json:"new"`
	Changed        int           `json:"changed"`
	Deleted        int           `json:"deleted"`
	Uploaded       int           `json:"uploaded"`
	UploadFailures int           `json:"uploadFailures"`
	Duration       time.Duration `json:"-"`
	DurationMS     int64         `json:"durationMs"`
}

// Total reports whether the run saw any record-level change at all.
func (s SyncStats) Total() int {
	return s.New + s.Changed + s.Deleted
}
