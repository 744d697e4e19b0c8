package seo

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelsync/internal/model"
)

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		SyncedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Projects: []model.Project{
			{ID: "p1", Slug: "the-launch-2023", Title: "The Launch", Description: "A film about leaving.", HeroImage: "https://cdn/p1.jpg"},
		},
		Posts: []model.Post{
			{ID: "b1", Slug: "notes-from-set", Title: "Notes From Set", Content: "# Day one\n\nIt rained.", ContentHTML: "<h1>Day one</h1>\n<p>It rained.</p>"},
		},
		Config: model.SiteConfig{DefaultShareImage: "https://cdn/default.jpg"},
	}
}

func TestBuildSitemap(t *testing.T) {
	out, err := BuildSitemap("https://example.com", testSnapshot())
	require.NoError(t, err)
	s := string(out)

	for _, want := range []string{
		"<loc>https://example.com</loc>",
		"<loc>https://example.com/work</loc>",
		"<loc>https://example.com/journal</loc>",
		"<loc>https://example.com/work/the-launch-2023</loc>",
		"<loc>https://example.com/journal/notes-from-set</loc>",
		XMLNamespace,
	} {
		assert.Contains(t, s, want)
	}
	assert.True(t, strings.HasPrefix(s, "<?xml"), "sitemap missing XML header")
}

func TestBuildShareMeta(t *testing.T) {
	out, err := BuildShareMeta(testSnapshot())
	require.NoError(t, err)

	var manifest map[string]ShareMeta
	require.NoError(t, json.Unmarshal(out, &manifest))

	proj, ok := manifest["the-launch-2023"]
	require.True(t, ok, "project slug missing from manifest")
	assert.Equal(t, "project", proj.Kind)
	assert.Equal(t, "https://cdn/p1.jpg", proj.Image)

	post, ok := manifest["notes-from-set"]
	require.True(t, ok, "post slug missing from manifest")
	assert.Equal(t, "https://cdn/default.jpg", post.Image, "post without image should use default")
	assert.NotContains(t, post.Description, "<", "html tags should be stripped")
	assert.Contains(t, post.Description, "It rained.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short text", Truncate("short text", 160))

	long := strings.Repeat("ab ", 100)
	got := Truncate(long, 20)
	assert.LessOrEqual(t, len([]rune(got)), 21)
	assert.True(t, strings.HasSuffix(got, "…"), "should end with ellipsis: %q", got)
}
