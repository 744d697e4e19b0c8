package transform

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"reelsync/internal/model"
)

func fields(t *testing.T, m map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal field %s: %v", k, err)
		}
		out[k] = b
	}
	return out
}

func record(t *testing.T, id string, m map[string]any) model.RawRecord {
	t.Helper()
	return model.RawRecord{ID: id, Fields: fields(t, m)}
}

type staticThumbs string

func (s staticThumbs) Resolve(context.Context, string) string { return string(s) }

func TestRunProjectBasics(t *testing.T) {
	tr := New(Options{})
	res := tr.Run(context.Background(), Tables{
		Projects: []model.RawRecord{
			record(t, "p1", map[string]any{
				"Title": "the   launch",
				"Year":  "2023",
			}),
		},
	})

	if len(res.Projects) != 1 {
		t.Fatalf("got %d projects, want 1", len(res.Projects))
	}
	p := res.Projects[0]
	if p.Title != "The Launch" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Slug != "the-launch-2023" {
		t.Errorf("slug = %q, want the-launch-2023", p.Slug)
	}
	if p.Type != model.TypeUncategorized {
		t.Errorf("type = %q, want Uncategorized", p.Type)
	}
	if p.Featured {
		t.Error("featured should default to false")
	}
}

func TestRunSlugUniqueAcrossProjectsAndPosts(t *testing.T) {
	tr := New(Options{})
	res := tr.Run(context.Background(), Tables{
		Projects: []model.RawRecord{
			record(t, "p1", map[string]any{"Title": "Echo", "Year": ""}),
			record(t, "p2", map[string]any{"Title": "Echo", "Year": ""}),
		},
		Posts: []model.RawRecord{
			record(t, "b1", map[string]any{"Title": "Echo", "Status": "Public"}),
		},
	})

	seen := map[string]bool{}
	for _, p := range res.Projects {
		if p.Slug == "" || seen[p.Slug] {
			t.Errorf("project slug %q empty or duplicated", p.Slug)
		}
		seen[p.Slug] = true
	}
	for _, p := range res.Posts {
		if p.Slug == "" || seen[p.Slug] {
			t.Errorf("post slug %q empty or duplicated", p.Slug)
		}
		seen[p.Slug] = true
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		title    string
		desc     string
		kinds    []string
		want     model.ProjectType
	}{
		{name: "explicit wins", explicit: "Documentary", title: "a music short", want: model.TypeDocumentary},
		{name: "narrative keyword", title: "A Short About Home", want: model.TypeNarrative},
		{name: "commercial keyword", desc: "brand film for Nike", want: model.TypeCommercial},
		{name: "tvc keyword", kinds: []string{"TVC"}, want: model.TypeCommercial},
		{name: "music keyword", title: "Music Video for Overgrow", want: model.TypeMusicVideo},
		{name: "documentary keyword", desc: "a documentary portrait", want: model.TypeDocumentary},
		{name: "no match", title: "Untitled", want: model.TypeUncategorized},
		{name: "first match wins", title: "short documentary", want: model.TypeNarrative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inferType(tt.explicit, tt.title, tt.desc, tt.kinds)
			if got != tt.want {
				t.Errorf("inferType = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeroImagePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("gallery first", func(t *testing.T) {
		tr := New(Options{Thumbnails: staticThumbs("https://thumb")})
		res := tr.Run(ctx, Tables{
			Projects: []model.RawRecord{record(t, "p1", map[string]any{
				"Title":     "With Gallery",
				"Gallery":   []map[string]any{{"id": "att1", "url": "https://img/1.jpg"}},
				"Video URL": "https://vimeo.com/123",
			})},
		})
		if got := res.Projects[0].HeroImage; got != "https://img/1.jpg" {
			t.Errorf("hero = %q, want gallery image", got)
		}
	})

	t.Run("video thumbnail second", func(t *testing.T) {
		tr := New(Options{Thumbnails: staticThumbs("https://thumb")})
		res := tr.Run(ctx, Tables{
			Projects: []model.RawRecord{record(t, "p1", map[string]any{
				"Title":     "Video Only",
				"Video URL": "https://vimeo.com/123",
			})},
		})
		if got := res.Projects[0].HeroImage; got != "https://thumb" {
			t.Errorf("hero = %q, want thumbnail", got)
		}
	})

	t.Run("configured default third", func(t *testing.T) {
		tr := New(Options{Thumbnails: staticThumbs("")})
		res := tr.Run(ctx, Tables{
			Projects: []model.RawRecord{record(t, "p1", map[string]any{
				"Title":     "Nothing",
				"Video URL": "https://vimeo.com/123",
			})},
			Config: []model.RawRecord{record(t, "cfg", map[string]any{
				"Default Share Image": []map[string]any{{"id": "att9", "url": "https://default.jpg"}},
			})},
		})
		if got := res.Projects[0].HeroImage; got != "https://default.jpg" {
			t.Errorf("hero = %q, want default image", got)
		}
	})

	t.Run("empty last", func(t *testing.T) {
		tr := New(Options{})
		res := tr.Run(ctx, Tables{
			Projects: []model.RawRecord{record(t, "p1", map[string]any{"Title": "Bare"})},
		})
		if got := res.Projects[0].HeroImage; got != "" {
			t.Errorf("hero = %q, want empty", got)
		}
	})
}

func TestParseCredits(t *testing.T) {
	credits := parseCredits(
		"Director: Ada Vogel\nDP: Luis Marin\nnot a credit line\n: missing role",
		[]string{"Colorist: Jan Hof", "Runner: Skip Me"},
		[]string{"Colorist"},
	)

	want := []model.Credit{
		{Role: "Director", Name: "Ada Vogel"},
		{Role: "DP", Name: "Luis Marin"},
		{Role: "Colorist", Name: "Jan Hof"},
	}
	if !reflect.DeepEqual(credits, want) {
		t.Errorf("credits = %+v, want %+v", credits, want)
	}
}

func TestAwardsAndClientLookups(t *testing.T) {
	tr := New(Options{})
	res := tr.Run(context.Background(), Tables{
		Projects: []model.RawRecord{record(t, "p1", map[string]any{
			"Title":  "Looked Up",
			"Awards": []string{"aw1", "awMissing"},
			"Client": []string{"cl1"},
		})},
		Awards: []model.RawRecord{
			record(t, "aw1", map[string]any{"Name": "Best Short", "Festival": "SXSW"}),
		},
		Clients: []model.RawRecord{
			record(t, "cl1", map[string]any{"Name": "Nike"}),
		},
	})

	p := res.Projects[0]
	if len(p.Awards) != 1 || p.Awards[0] != "SXSW, Best Short" {
		t.Errorf("awards = %v", p.Awards)
	}
	found := false
	for _, k := range p.Kinds {
		if k == "Nike" {
			found = true
		}
	}
	if !found {
		t.Errorf("client name missing from kinds: %v", p.Kinds)
	}
}

func TestPostVisibility(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := New(Options{Now: func() time.Time { return now }})

	res := tr.Run(context.Background(), Tables{
		Posts: []model.RawRecord{
			record(t, "b1", map[string]any{"Title": "Public", "Status": "Public"}),
			record(t, "b2", map[string]any{"Title": "Draft", "Status": "Draft"}),
			record(t, "b3", map[string]any{"Title": "No Status"}),
			record(t, "b4", map[string]any{"Title": "Sched Past", "Status": "Scheduled", "Date": "2024-05-01"}),
			record(t, "b5", map[string]any{"Title": "Sched Future", "Status": "Scheduled", "Date": "2024-07-01"}),
		},
	})

	got := make([]string, 0, len(res.Posts))
	for _, p := range res.Posts {
		got = append(got, p.Title)
	}
	want := []string{"Public", "Sched Past"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("visible posts = %v, want %v", got, want)
	}
}

func TestPostReadingTimeAndMarkdown(t *testing.T) {
	tr := New(Options{})
	long := ""
	for i := 0; i < 450; i++ {
		long += "word "
	}

	res := tr.Run(context.Background(), Tables{
		Posts: []model.RawRecord{
			record(t, "b1", map[string]any{
				"Title":   "Long One",
				"Status":  "Public",
				"Content": long,
			}),
			record(t, "b2", map[string]any{
				"Title":   "Tiny",
				"Status":  "Public",
				"Content": "# Heading\n\nhello <script>alert(1)</script>",
			}),
		},
	})

	if res.Posts[0].ReadingTime != "3 min read" {
		t.Errorf("reading time = %q, want 3 min read", res.Posts[0].ReadingTime)
	}
	if res.Posts[1].ReadingTime != "1 min read" {
		t.Errorf("reading time = %q, want 1 min read", res.Posts[1].ReadingTime)
	}
	html := res.Posts[1].ContentHTML
	if !strings.Contains(html, "<h1") || strings.Contains(html, "<script") {
		t.Errorf("rendered html not sanitized as expected: %q", html)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	tables := Tables{
		Projects: []model.RawRecord{
			record(t, "p1", map[string]any{"Title": "Echo", "Year": "2021"}),
			record(t, "p2", map[string]any{"Title": "Echo", "Year": "2021"}),
		},
		Posts: []model.RawRecord{
			record(t, "b1", map[string]any{"Title": "Notes", "Status": "Public", "Content": "hello"}),
		},
	}

	tr := New(Options{})
	first := tr.Run(context.Background(), tables)
	second := tr.Run(context.Background(), tables)

	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over identical input produced different output")
	}
}
