// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultVimeoOEmbedURL is Vimeo's public oEmbed endpoint. oEmbed
// resolves thumbnails for private and unlisted videos where the plain
// thumbnail API cannot.
const DefaultVimeoOEmbedURL = "https://vimeo.com/api/oembed.json"

var (
	youtubeIDPattern = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|embed/|shorts/)|youtu\.be/)([A-Za-z0-9_-]{6,})`)
	vimeoIDPattern   = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)
	numericPattern   = regexp.MustCompile(`^\d+$`)
)

// VideoThumbnails resolves poster-frame URLs for YouTube and Vimeo
// links. All failure paths return ""; a missing thumbnail is expected,
// not an error.
type VideoThumbnails struct {
	oembedURL string
	http      *http.Client
	logger    *slog.Logger
}

// ThumbnailOptions configures a VideoThumbnails resolver.
type ThumbnailOptions struct {
	// VimeoOEmbedURL overrides the oEmbed endpoint (tests).
	VimeoOEmbedURL string
	// Timeout bounds each lookup. Defaults to 5s.
	Timeout time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewVideoThumbnails creates a resolver.
func NewVideoThumbnails(opts ThumbnailOptions) *VideoThumbnails {
	if opts.VimeoOEmbedURL == "" {
		opts.VimeoOEmbedURL = DefaultVimeoOEmbedURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &VideoThumbnails{
		oembedURL: opts.VimeoOEmbedURL,
		http:      &http.Client{Timeout: opts.Timeout},
		logger:    opts.Logger,
	}
}

// Resolve returns a thumbnail URL for a video link, or "".
func (v *VideoThumbnails) Resolve(ctx context.Context, videoURL string) string {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return ""
	}

	if id := extractYouTubeID(videoURL); id != "" {
		return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
	}
	if id := extractVimeoID(videoURL); id != "" {
		return v.resolveVimeo(ctx, videoURL, id)
	}
	return ""
}

// resolveVimeo tries oEmbed first and falls back to the public
// numeric-id thumbnail service.
func (v *VideoThumbnails) resolveVimeo(ctx context.Context, videoURL, id string) string {
	if thumb := v.vimeoOEmbed(ctx, videoURL); thumb != "" {
		return thumb
	}
	if numericPattern.MatchString(id) {
		return fmt.Sprintf("https://vumbnail.com/%s.jpg", id)
	}
	return ""
}

func (v *VideoThumbnails) vimeoOEmbed(ctx context.Context, videoURL string) string {
	endpoint := v.oembedURL + "?url=" + url.QueryEscape(videoURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	resp, err := v.http.Do(req)
	if err != nil {
		v.logger.Debug("vimeo oembed lookup failed", "url", videoURL, "error", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var payload struct {
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	return payload.ThumbnailURL
}

func extractYouTubeID(videoURL string) string {
	m := youtubeIDPattern.FindStringSubmatch(videoURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func extractVimeoID(videoURL string) string {
	m := vimeoIDPattern.FindStringSubmatch(videoURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
