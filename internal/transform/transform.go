// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package transform maps raw table rows into normalized domain objects,
// resolving cross-table references, deriving slugs and hero images, and
// rendering journal markdown.
package transform

import (
	"context"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"reelsync/internal/model"
	"reelsync/internal/util"
)

// ThumbnailResolver resolves a video URL to a poster-frame image URL.
// Implementations return "" on failure; thumbnail absence is not an
// error.
type ThumbnailResolver interface {
	Resolve(ctx context.Context, videoURL string) string
}

// ImageURLFunc maps one attachment slot of a record to the URL the site
// should serve. The default keeps the source URL; the orchestrator
// injects a CDN-aware resolver.
type ImageURLFunc func(recordID string, index int, att model.Attachment) string

// Options configures a Transformer.
type Options struct {
	// Thumbnails resolves video poster frames. Nil disables resolution.
	Thumbnails ThumbnailResolver
	// ImageURL rewrites attachment URLs, typically to CDN URLs. Nil
	// keeps source URLs.
	ImageURL ImageURLFunc
	// Now supplies the current time for scheduled-post visibility.
	// Nil means time.Now.
	Now func() time.Time
	// Logger receives per-record diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Transformer converts raw records into the published dataset. One
// Transformer may be reused across runs; slug uniqueness state lives in
// each Run call.
type Transformer struct {
	thumbs   ThumbnailResolver
	imageURL ImageURLFunc
	now      func() time.Time
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

// New creates a Transformer.
func New(opts Options) *Transformer {
	if opts.ImageURL == nil {
		opts.ImageURL = func(_ string, _ int, att model.Attachment) string { return att.URL }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Transformer{
		thumbs:   opts.Thumbnails,
		imageURL: opts.ImageURL,
		now:      opts.Now,
		md: goldmark.New(
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
		logger: opts.Logger,
	}
}

// Tables groups the raw rows of one sync generation by concern.
type Tables struct {
	Projects []model.RawRecord
	Posts    []model.RawRecord
	Config   []model.RawRecord
	Awards   []model.RawRecord
	Clients  []model.RawRecord
}

// lookups carries cross-table reference maps built once per run.
type lookups struct {
	awards  map[string]string // award record ID -> display text
	clients map[string]string // client record ID -> name
}

// Result is the fully-transformed dataset of one run.
type Result struct {
	Projects []model.Project
	Posts    []model.Post
	Config   model.SiteConfig
}

// Run transforms one point-in-time union of raw records. Slugs are
// unique across the combined project+post namespace of this run.
func (t *Transformer) Run(ctx context.Context, tables Tables) Result {
	look := buildLookups(tables)
	cfg := t.transformConfig(tables.Config)
	slugs := util.NewSlugSet()

	projects := make([]model.Project, 0, len(tables.Projects))
	for _, rec := range tables.Projects {
		projects = append(projects, t.transformProject(ctx, rec, look, cfg, slugs))
	}

	posts := make([]model.Post, 0, len(tables.Posts))
	for _, rec := range tables.Posts {
		post, visible := t.transformPost(rec, slugs)
		if visible {
			posts = append(posts, post)
		}
	}

	return Result{Projects: projects, Posts: posts, Config: cfg}
}

func buildLookups(tables Tables) lookups {
	look := lookups{
		awards:  make(map[string]string, len(tables.Awards)),
		clients: make(map[string]string, len(tables.Clients)),
	}
	for _, rec := range tables.Awards {
		text := rec.String("Name")
		if festival := rec.String("Festival"); festival != "" {
			if text != "" {
				text = festival + ", " + text
			} else {
				text = festival
			}
		}
		if text != "" {
			look.awards[rec.ID] = text
		}
	}
	for _, rec := range tables.Clients {
		if name := rec.String("Name"); name != "" {
			look.clients[rec.ID] = name
		}
	}
	return look
}

// transformConfig reduces the Config table to its singleton settings
// object. The first record wins; an empty table yields zero values.
func (t *Transformer) transformConfig(records []model.RawRecord) model.SiteConfig {
	if len(records) == 0 {
		return model.SiteConfig{}
	}
	rec := records[0]

	cfg := model.SiteConfig{
		ShowreelEnabled: rec.Bool("Showreel Enabled"),
		ShowreelURL:     rec.String("Showreel URL"),
		ContactEmail:    rec.String("Contact Email"),
		Bio:             rec.String("Bio"),
		AllowedRoles:    rec.Strings("Allowed Roles"),
	}
	if atts := rec.Attachments("Default Share Image"); len(atts) > 0 {
		cfg.DefaultShareImage = t.imageURL(rec.ID, 0, atts[0])
	}
	return cfg
}
