// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose text utilities: URL slug
// generation with Unicode normalization, title normalization, and
// run-scoped slug uniqueness tracking.
package util

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// slugRegex matches non-alphanumeric characters (except hyphens)
	slugRegex = regexp.MustCompile(`[^a-z0-9-]+`)
	// multipleHyphens matches multiple consecutive hyphens
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// whitespaceRun matches any run of whitespace
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Slugify converts a string to a URL-friendly slug.
// It converts to lowercase, removes accents, replaces spaces with hyphens,
// and removes all non-alphanumeric characters except hyphens.
func Slugify(s string) string {
	// Normalize unicode characters (decompose accents)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)

	result = strings.ToLower(result)
	result = strings.ReplaceAll(result, " ", "-")
	result = slugRegex.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	return result
}

// IsValidSlug checks if a string is a valid slug format.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}

	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}

	return !strings.Contains(s, "--")
}

// NormalizeTitle collapses internal whitespace, trims, and title-cases
// each word. All-caps words keep their casing so acronyms like "TVC"
// survive.
func NormalizeTitle(s string) string {
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	if s == "" {
		return ""
	}

	words := strings.Split(s, " ")
	for i, w := range words {
		words[i] = titleCaseWord(w)
	}
	return strings.Join(words, " ")
}

func titleCaseWord(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	rest := string(r[1:])
	if len(r) > 1 && rest == strings.ToUpper(rest) && strings.ToLower(rest) != rest {
		// all-caps word, leave it alone
		return w
	}
	return string(unicode.ToUpper(r[0])) + strings.ToLower(rest)
}

// SlugSet tracks slugs handed out during one sync run and resolves
// collisions with a numeric suffix ("-2", "-3", ...). It is scoped to a
// single run and is not safe for concurrent use.
type SlugSet struct {
	used map[string]struct{}
}

// NewSlugSet returns an empty slug set.
func NewSlugSet() *SlugSet {
	return &SlugSet{used: make(map[string]struct{})}
}

// Claim returns base if it is unused, otherwise the first available
// suffixed variant. The returned slug is recorded as used.
func (s *SlugSet) Claim(base string) string {
	if base == "" {
		base = "untitled"
	}
	candidate := base
	for n := 2; ; n++ {
		if _, taken := s.used[candidate]; !taken {
			s.used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// Has reports whether a slug has been claimed in this run.
func (s *SlugSet) Has(slug string) bool {
	_, ok := s.used[slug]
	return ok
}
