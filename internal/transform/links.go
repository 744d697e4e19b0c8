// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transform

import (
	"net/url"
	"strings"

	"reelsync/internal/model"
)

// platformLabels maps well-known hostnames to display labels. Hosts not
// listed here get a capitalized domain root as label.
var platformLabels = map[string]string{
	"youtube.com":    "YouTube",
	"youtu.be":       "YouTube",
	"vimeo.com":      "Vimeo",
	"instagram.com":  "Instagram",
	"imdb.com":       "IMDb",
	"letterboxd.com": "Letterboxd",
	"facebook.com":   "Facebook",
	"tiktok.com":     "TikTok",
}

// videoHosts are the hostnames classified as video-platform links.
var videoHosts = map[string]struct{}{
	"youtube.com": {},
	"youtu.be":    {},
	"vimeo.com":   {},
}

// ParseExternalLinks splits a delimited raw string into classified
// links. Delimiters are newlines and commas; entries that do not parse
// as http(s) URLs are dropped.
func ParseExternalLinks(raw string) []model.ExternalLink {
	var links []model.ExternalLink
	for _, candidate := range splitLinks(raw) {
		u, err := url.Parse(candidate)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		host := normalizeHost(u.Host)

		link := model.ExternalLink{URL: candidate}
		if _, ok := videoHosts[host]; ok {
			link.Kind = model.LinkVideo
		} else {
			link.Kind = model.LinkPlain
		}
		link.Label = hostLabel(host)
		links = append(links, link)
	}
	return links
}

// IsVideoURL reports whether a URL points at a recognized video
// platform.
func IsVideoURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	_, ok := videoHosts[normalizeHost(u.Host)]
	return ok
}

func splitLinks(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

// hostLabel maps a hostname to a link label: the platform name when
// known, otherwise the capitalized domain root ("example.com" ->
// "Example").
func hostLabel(host string) string {
	if label, ok := platformLabels[host]; ok {
		return label
	}
	root, _, _ := strings.Cut(host, ".")
	if root == "" {
		return host
	}
	return strings.ToUpper(root[:1]) + root[1:]
}
