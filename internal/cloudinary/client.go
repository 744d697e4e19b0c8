// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cloudinary uploads images to the CDN and builds delivery URLs
// with request-time transformations. Upload and delivery are decoupled:
// upload once, transform at request time via URL parameters.
package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultUploadURL is the Cloudinary upload API endpoint pattern; %s is
// the cloud name.
const DefaultUploadURL = "https://api.cloudinary.com/v1_1/%s/image/upload"

// Options configures a Client.
type Options struct {
	// UploadURL overrides the upload endpoint (tests). When set it is
	// used verbatim, ignoring CloudName.
	UploadURL string
	CloudName string
	APIKey    string
	APISecret string
	// Folder prefixes every public ID.
	Folder string
	// Timeout bounds each upload request. Defaults to 60s; remote-URL
	// uploads make Cloudinary fetch the source, which can be slow.
	Timeout time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// now is test seam for signature timestamps.
	now func() time.Time
}

// Client talks to the Cloudinary upload API.
type Client struct {
	uploadURL string
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	http      *http.Client
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.UploadURL == "" {
		opts.UploadURL = fmt.Sprintf(DefaultUploadURL, opts.CloudName)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	return &Client{
		uploadURL: opts.UploadURL,
		cloudName: opts.CloudName,
		apiKey:    opts.APIKey,
		apiSecret: opts.APISecret,
		folder:    strings.Trim(opts.Folder, "/"),
		http:      &http.Client{Timeout: opts.Timeout},
		logger:    opts.Logger,
		now:       opts.now,
	}
}

// UploadResult is the outcome of one upload attempt.
type UploadResult struct {
	PublicID  string
	SecureURL string
}

// UploadFromURL asks Cloudinary to fetch sourceURL and store it under
// publicID, overwriting any previous asset with that ID. The request is
// signed per the Cloudinary auth scheme.
func (c *Client) UploadFromURL(ctx context.Context, sourceURL, publicID string) (*UploadResult, error) {
	if c.folder != "" {
		publicID = c.folder + "/" + publicID
	}

	params := map[string]string{
		"public_id": publicID,
		"overwrite": "true",
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("file", sourceURL)
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(params))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", publicID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("uploading %s: status %d: %s", publicID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		PublicID  string `json:"public_id"`
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	return &UploadResult{PublicID: payload.PublicID, SecureURL: payload.SecureURL}, nil
}

// sign computes the Cloudinary request signature: SHA-1 over the sorted
// signed params joined with '&', concatenated with the API secret.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}
