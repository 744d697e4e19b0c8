// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cloudinary

import (
	"fmt"
	"strconv"
	"strings"
)

// Transform describes a request-time delivery transformation. Zero
// values are omitted from the URL.
type Transform struct {
	Width   int
	Height  int
	Crop    string // e.g. "fill", "fit", "limit"
	Quality string // e.g. "auto", "80"
	Format  string // e.g. "auto", "webp"
}

// Default returns the transformation used for gallery delivery: width
// capped, automatic quality and format negotiation.
func Default(width int) Transform {
	return Transform{Width: width, Crop: "limit", Quality: "auto", Format: "auto"}
}

// DeliveryURL builds the CDN URL serving publicID with the given
// transformation applied at request time.
func DeliveryURL(cloudName, publicID string, t Transform) string {
	base := fmt.Sprintf("https://res.cloudinary.com/%s/image/upload", cloudName)
	if spec := t.spec(); spec != "" {
		return base + "/" + spec + "/" + publicID
	}
	return base + "/" + publicID
}

func (t Transform) spec() string {
	var parts []string
	if t.Width > 0 {
		parts = append(parts, "w_"+strconv.Itoa(t.Width))
	}
	if t.Height > 0 {
		parts = append(parts, "h_"+strconv.Itoa(t.Height))
	}
	if t.Crop != "" {
		parts = append(parts, "c_"+t.Crop)
	}
	if t.Quality != "" {
		parts = append(parts, "q_"+t.Quality)
	}
	if t.Format != "" {
		parts = append(parts, "f_"+t.Format)
	}
	return strings.Join(parts, ",")
}
