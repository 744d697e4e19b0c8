// Package seo derives the request-time SEO artifacts from a snapshot:
// the sitemap XML and the share-meta manifest used for social-preview
// injection.
package seo

import (
	"encoding/xml"
	"time"

	"reelsync/internal/model"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Valid change frequency values.
const (
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
)

// StaticRoutes are the site's fixed pages, always present in the
// sitemap ahead of per-slug entries.
var StaticRoutes = []string{"", "work", "journal", "about", "contact"}

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// BuildSitemap generates the sitemap XML for one snapshot: one entry
// per static route, one per project slug, one per post slug.
func BuildSitemap(siteURL string, snap *model.Snapshot) ([]byte, error) {
	lastMod := ""
	if !snap.SyncedAt.IsZero() {
		lastMod = snap.SyncedAt.Format(time.RFC3339)
	}

	urls := make([]SitemapURL, 0, len(StaticRoutes)+len(snap.Projects)+len(snap.Posts))
	for _, route := range StaticRoutes {
		u := SitemapURL{
			Loc:        siteURL,
			ChangeFreq: ChangeFreqWeekly,
			Priority:   "0.8",
		}
		if route != "" {
			u.Loc = siteURL + "/" + route
		} else {
			u.ChangeFreq = ChangeFreqDaily
			u.Priority = "1.0"
		}
		urls = append(urls, u)
	}
	for _, p := range snap.Projects {
		urls = append(urls, SitemapURL{
			Loc:        siteURL + "/work/" + p.Slug,
			LastMod:    lastMod,
			ChangeFreq: ChangeFreqMonthly,
			Priority:   "0.7",
		})
	}
	for _, p := range snap.Posts {
		urls = append(urls, SitemapURL{
			Loc:        siteURL + "/journal/" + p.Slug,
			LastMod:    lastMod,
			ChangeFreq: ChangeFreqMonthly,
			Priority:   "0.6",
		})
	}

	sitemap := Sitemap{XMLNS: XMLNamespace, URLs: urls}

	output := []byte(xml.Header)
	xmlBytes, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(output, xmlBytes...), nil
}
