// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transform

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"reelsync/internal/model"
	"reelsync/internal/util"
)

// wordsPerMinute is the fixed reading-speed constant behind the
// "N min read" estimate.
const wordsPerMinute = 200

// transformPost converts a journal row. The second return value is
// false when the post must not appear in the public snapshot: drafts
// always, scheduled posts until their date is reached.
func (t *Transformer) transformPost(rec model.RawRecord, slugs *util.SlugSet) (model.Post, bool) {
	title := util.NormalizeTitle(rec.String("Title"))
	content := rec.String("Content")

	post := model.Post{
		ID:           rec.ID,
		Title:        title,
		Slug:         slugs.Claim(util.Slugify(title)),
		Date:         strings.TrimSpace(rec.String("Date")),
		Tags:         rec.Strings("Tags"),
		Content:      content,
		ContentHTML:  t.renderMarkdown(rec.ID, content),
		ReadingTime:  readingTime(content),
		Status:       parseStatus(rec.String("Status")),
		RelatedLinks: rec.Strings("Related Links"),
	}
	if atts := rec.Attachments("Image"); len(atts) > 0 {
		post.ImageURL = t.imageURL(rec.ID, 0, atts[0])
	}
	if related := firstOf(rec.Strings("Related Project")); related != "" {
		post.RelatedProjectID = related
	}

	return post, t.isVisible(post)
}

func (t *Transformer) renderMarkdown(recordID, content string) string {
	if content == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := t.md.Convert([]byte(content), &buf); err != nil {
		t.logger.Warn("markdown render failed, serving raw content", "record", recordID, "error", err)
		return ""
	}
	return t.policy.Sanitize(buf.String())
}

func (t *Transformer) isVisible(post model.Post) bool {
	switch post.Status {
	case model.StatusPublic:
		return true
	case model.StatusScheduled:
		date, err := time.Parse("2006-01-02", post.Date)
		if err != nil {
			return false
		}
		return !date.After(t.now())
	default:
		return false
	}
}

func parseStatus(raw string) model.PostStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "public":
		return model.StatusPublic
	case "scheduled":
		return model.StatusScheduled
	default:
		return model.StatusDraft
	}
}

// readingTime estimates reading duration from the word count, rounding
// up with a minimum of one minute.
func readingTime(content string) string {
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}
