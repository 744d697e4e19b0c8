// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package airtable

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitError signals an HTTP 429 from the upstream API. It is a
// distinguished kind so callers can choose the serve-stale fallback
// instead of failing the run.
type RateLimitError struct {
	// RetryAfter is the wait the server asked for, zero when the
	// Retry-After header was absent or unparsable.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("airtable: rate limited, retry after %s", e.RetryAfter)
	}
	return "airtable: rate limited"
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

func newRateLimitError(resp *http.Response) error {
	var retryAfter time.Duration
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
	}
	return &RateLimitError{RetryAfter: retryAfter}
}
