// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transform

import (
	"context"
	"strings"

	"reelsync/internal/model"
	"reelsync/internal/util"
)

// typeKeywords drives free-text type inference. First match wins, both
// across groups (in this order) and within a group's keyword list. This
// is a best-effort heuristic; ambiguous text may misclassify.
var typeKeywords = []struct {
	projectType model.ProjectType
	keywords    []string
}{
	{model.TypeNarrative, []string{"short", "feature", "narrative"}},
	{model.TypeCommercial, []string{"commercial", "tvc", "brand"}},
	{model.TypeMusicVideo, []string{"music"}},
	{model.TypeDocumentary, []string{"documentary"}},
}

func (t *Transformer) transformProject(ctx context.Context, rec model.RawRecord, look lookups, cfg model.SiteConfig, slugs *util.SlugSet) model.Project {
	title := util.NormalizeTitle(rec.String("Title"))
	year := strings.TrimSpace(rec.String("Year"))
	kinds := rec.Strings("Kind")

	p := model.Project{
		ID:          rec.ID,
		Title:       title,
		Slug:        slugs.Claim(util.Slugify(strings.TrimSpace(title + " " + year))),
		Type:        inferType(rec.String("Type"), title, rec.String("Description"), kinds),
		Kinds:       kinds,
		Year:        year,
		Description: rec.String("Description"),
		VideoURL:    strings.TrimSpace(rec.String("Video URL")),
		Featured:    rec.Bool("Featured"),
	}

	for i, att := range rec.Attachments("Gallery") {
		p.Gallery = append(p.Gallery, t.imageURL(rec.ID, i, att))
	}
	p.HeroImage = t.heroImage(ctx, p, cfg)

	p.Credits = parseCredits(rec.String("Credits"), rec.Strings("Crew"), cfg.AllowedRoles)
	p.Links = ParseExternalLinks(rec.String("Links"))

	for _, id := range rec.Strings("Awards") {
		if text, ok := look.awards[id]; ok {
			p.Awards = append(p.Awards, text)
		}
	}
	if client, ok := look.clients[firstOf(rec.Strings("Client"))]; ok && client != "" {
		// Client name rides along as a kind so the site can group by it.
		p.Kinds = append(p.Kinds, client)
	}
	if related := firstOf(rec.Strings("Related Article")); related != "" {
		p.RelatedPostID = related
	}

	return p
}

// heroImage applies the selection policy: first gallery image, then a
// resolved video thumbnail, then the configured default, then empty.
func (t *Transformer) heroImage(ctx context.Context, p model.Project, cfg model.SiteConfig) string {
	if len(p.Gallery) > 0 {
		return p.Gallery[0]
	}
	if p.VideoURL != "" && t.thumbs != nil {
		if thumb := t.thumbs.Resolve(ctx, p.VideoURL); thumb != "" {
			return thumb
		}
	}
	return cfg.DefaultShareImage
}

// inferType prefers the explicit field and falls back to keyword
// matching over the project's free text.
func inferType(explicit, title, description string, kinds []string) model.ProjectType {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case "narrative":
		return model.TypeNarrative
	case "commercial":
		return model.TypeCommercial
	case "music video":
		return model.TypeMusicVideo
	case "documentary":
		return model.TypeDocumentary
	}

	haystack := strings.ToLower(title + " " + description + " " + strings.Join(kinds, " "))
	for _, group := range typeKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(haystack, kw) {
				return group.projectType
			}
		}
	}
	return model.TypeUncategorized
}

// parseCredits builds the ordered credit list from the free-text
// "Role: Name" field followed by role-filtered structured entries. The
// two sources are concatenated without dedup.
func parseCredits(freeText string, structured, allowedRoles []string) []model.Credit {
	var credits []model.Credit

	for _, line := range strings.Split(freeText, "\n") {
		if c, ok := parseCreditLine(line); ok {
			credits = append(credits, c)
		}
	}

	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	for _, entry := range structured {
		c, ok := parseCreditLine(entry)
		if !ok {
			continue
		}
		if _, ok := allowed[strings.ToLower(c.Role)]; ok {
			credits = append(credits, c)
		}
	}

	return credits
}

func parseCreditLine(line string) (model.Credit, bool) {
	role, name, found := strings.Cut(line, ":")
	if !found {
		return model.Credit{}, false
	}
	role = strings.TrimSpace(role)
	name = strings.TrimSpace(name)
	if role == "" || name == "" {
		return model.Credit{}, false
	}
	return model.Credit{Role: role, Name: name}, true
}

func firstOf(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
