// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package airtable is a minimal client for the Airtable REST API,
// covering the operations the sync pipeline needs: paginated table
// listing, timestamp-only projection reads, and by-ID record fetches.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reelsync/internal/model"
)

// DefaultBaseURL is the public Airtable API endpoint.
const DefaultBaseURL = "https://api.airtable.com/v0"

const (
	defaultTimeout = 15 * time.Second
	pageSize       = 100
	// Airtable allows 5 requests/second per base.
	requestsPerSecond = 5
	// Formula length caps how many RECORD_ID() clauses fit in one request.
	idChunkSize = 50
)

// Options configures a Client.
type Options struct {
	// BaseURL overrides the API endpoint (tests). Empty means DefaultBaseURL.
	BaseURL string
	// BaseID is the Airtable base to read from.
	BaseID string
	// Token is the bearer token for API auth.
	Token string
	// LastModifiedField is the formula field exposing each record's
	// last-modified time. Defaults to "Last Modified".
	LastModifiedField string
	// OptionalTables lists tables whose fetch failures degrade to an
	// empty result instead of propagating. Rate-limit errors always
	// propagate.
	OptionalTables []string
	// Timeout bounds each HTTP request. Defaults to 15s.
	Timeout time.Duration
	// Logger receives fetch diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client reads records from one Airtable base. All methods are safe for
// concurrent use; a shared limiter paces requests under the API's
// per-base rate limit.
type Client struct {
	baseURL           string
	baseID            string
	token             string
	lastModifiedField string
	optional          map[string]struct{}
	http              *http.Client
	limiter           *rate.Limiter
	logger            *slog.Logger
}

// New creates a Client from the given options.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.LastModifiedField == "" {
		opts.LastModifiedField = "Last Modified"
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	optional := make(map[string]struct{}, len(opts.OptionalTables))
	for _, t := range opts.OptionalTables {
		optional[t] = struct{}{}
	}

	return &Client{
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		baseID:            opts.BaseID,
		token:             opts.Token,
		lastModifiedField: opts.LastModifiedField,
		optional:          optional,
		http:              &http.Client{Timeout: opts.Timeout},
		limiter:           rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		logger:            opts.Logger,
	}
}

// Timestamp is one record's identity and last-modified time, used for
// change detection without fetching full rows.
type Timestamp struct {
	ID           string
	LastModified string
}

// FetchTable returns all records of a table, paginating until the offset
// cursor is exhausted. For tables on the optional allow-list, any
// non-rate-limit failure degrades to an empty result.
func (c *Client) FetchTable(ctx context.Context, table, sortField string) ([]model.RawRecord, error) {
	params := url.Values{}
	if sortField != "" {
		params.Set("sort[0][field]", sortField)
		params.Set("sort[0][direction]", "asc")
	}

	records, err := c.fetchAll(ctx, table, params)
	if err != nil {
		return nil, c.degradeOptional(table, err)
	}
	return records, nil
}

// FetchTimestamps returns only the ID and last-modified time of every
// record in a table, using field projection to keep the response small.
func (c *Client) FetchTimestamps(ctx context.Context, table string) ([]Timestamp, error) {
	params := url.Values{}
	params.Add("fields[]", c.lastModifiedField)

	records, err := c.fetchAll(ctx, table, params)
	if err != nil {
		return nil, err
	}

	out := make([]Timestamp, 0, len(records))
	for _, r := range records {
		out = append(out, Timestamp{ID: r.ID, LastModified: r.LastModified})
	}
	return out, nil
}

// FetchRecordsByID fetches a specific set of records using a
// RECORD_ID() filter formula, chunked to stay under formula length
// limits. Optional-table degradation applies as in FetchTable.
func (c *Client) FetchRecordsByID(ctx context.Context, table string, ids []string, sortField string) ([]model.RawRecord, error) {
	var all []model.RawRecord
	for start := 0; start < len(ids); start += idChunkSize {
		end := min(start+idChunkSize, len(ids))
		chunk := ids[start:end]

		clauses := make([]string, len(chunk))
		for i, id := range chunk {
			clauses[i] = fmt.Sprintf("RECORD_ID()='%s'", id)
		}

		params := url.Values{}
		params.Set("filterByFormula", fmt.Sprintf("OR(%s)", strings.Join(clauses, ",")))
		if sortField != "" {
			params.Set("sort[0][field]", sortField)
			params.Set("sort[0][direction]", "asc")
		}

		records, err := c.fetchAll(ctx, table, params)
		if err != nil {
			return nil, c.degradeOptional(table, err)
		}
		all = append(all, records...)
	}
	return all, nil
}

// degradeOptional converts a failure on an optional table into an empty
// result. Rate limiting still propagates so the orchestrator can choose
// the stale-cache fallback.
func (c *Client) degradeOptional(table string, err error) error {
	if IsRateLimit(err) {
		return err
	}
	if _, ok := c.optional[table]; ok {
		c.logger.Warn("optional table fetch failed, treating as empty",
			"table", table, "error", err)
		return nil
	}
	return err
}

// listResponse is one page of the Airtable list endpoint.
type listResponse struct {
	Records []apiRecord `json:"records"`
	Offset  string      `json:"offset"`
}

type apiRecord struct {
	ID          string                     `json:"id"`
	CreatedTime string                     `json:"createdTime"`
	Fields      map[string]json.RawMessage `json:"fields"`
}

func (c *Client) fetchAll(ctx context.Context, table string, params url.Values) ([]model.RawRecord, error) {
	var all []model.RawRecord
	offset := ""

	for {
		page, err := c.fetchPage(ctx, table, params, offset)
		if err != nil {
			return nil, err
		}
		for _, r := range page.Records {
			all = append(all, c.toRawRecord(r))
		}
		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

func (c *Client) fetchPage(ctx context.Context, table string, params url.Values, offset string) (*listResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("pageSize", strconv.Itoa(pageSize))
	if offset != "" {
		q.Set("offset", offset)
	}

	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.baseID, url.PathEscape(table), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", table, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, newRateLimitError(resp)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetching %s: unexpected status %d: %s", table, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", table, err)
	}
	return &page, nil
}

// toRawRecord lifts an API record into the domain shape, resolving the
// last-modified time from the configured formula field with the record
// creation time as fallback.
func (c *Client) toRawRecord(r apiRecord) model.RawRecord {
	rec := model.RawRecord{
		ID:     r.ID,
		Fields: r.Fields,
	}
	if raw, ok := r.Fields[c.lastModifiedField]; ok {
		var ts string
		if err := json.Unmarshal(raw, &ts); err == nil {
			rec.LastModified = ts
		}
	}
	if rec.LastModified == "" {
		rec.LastModified = r.CreatedTime
	}
	return rec
}
