package seo

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"reelsync/internal/model"
)

// descriptionLimit caps share descriptions; social cards truncate
// around this length anyway.
const descriptionLimit = 160

var stripTags = bluemonday.StrictPolicy()

// ShareMeta is one page's social-preview metadata.
type ShareMeta struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Kind        string `json:"kind"` // "project" or "post"
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// BuildShareMeta derives the share-meta manifest (keyed by slug) from a
// snapshot. Missing images fall back to the configured default.
func BuildShareMeta(snap *model.Snapshot) ([]byte, error) {
	manifest := make(map[string]ShareMeta, len(snap.Projects)+len(snap.Posts))

	for _, p := range snap.Projects {
		manifest[p.Slug] = ShareMeta{
			ID:          p.ID,
			Slug:        p.Slug,
			Kind:        "project",
			Title:       p.Title,
			Description: Truncate(p.Description, descriptionLimit),
			Image:       firstNonEmpty(p.HeroImage, snap.Config.DefaultShareImage),
		}
	}
	for _, p := range snap.Posts {
		manifest[p.Slug] = ShareMeta{
			ID:          p.ID,
			Slug:        p.Slug,
			Kind:        "post",
			Title:       p.Title,
			Description: Truncate(stripTags.Sanitize(firstNonEmpty(p.ContentHTML, p.Content)), descriptionLimit),
			Image:       firstNonEmpty(p.ImageURL, snap.Config.DefaultShareImage),
		}
	}

	return json.MarshalIndent(manifest, "", "  ")
}

// Truncate shortens s to at most limit runes, appending an ellipsis
// when it cut anything. Whitespace is collapsed first.
func Truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:limit]), " ")
	return cut + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
