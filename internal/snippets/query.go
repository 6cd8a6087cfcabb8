package snippets

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	textlang "golang.org/x/text/language"
)

type Category string

const (
	CategoryAll       Category = "all"
	CategoryFavorites Category = "favorites"
	CategoryRecent    Category = "recent"
)

// RecentWindow is how far back the recent category looks.
const RecentWindow = 7 * 24 * time.Hour

type SortKey string

const (
	SortDate     SortKey = "date"
	SortTitle    SortKey = "title"
	SortLanguage SortKey = "language"
)

func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryFavorites:
		return CategoryFavorites
	case CategoryRecent:
		return CategoryRecent
	default:
		return CategoryAll
	}
}

func ParseSortKey(s string) SortKey {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "title":
		return SortTitle
	case "language":
		return SortLanguage
	default:
		// "updated" is what the editor calls it.
		return SortDate
	}
}

type QueryParams struct {
	SearchText string
	Tags       []string
	Languages  []Language
	Category   Category
	Sort       SortKey
	// Now anchors the recent category; zero means time.Now().
	Now time.Time
}

// Query filters and orders records for display. It never mutates records or
// the input slice and always returns a new slice.
func Query(records []*Snippet, p QueryParams) []*Snippet {
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	search := strings.ToLower(p.SearchText)
	recentCutoff := now.Add(-RecentWindow)

	out := make([]*Snippet, 0, len(records))
	for _, s := range records {
		if s == nil {
			continue
		}
		if !matchesSearch(s, search) ||
			!matchesTags(s, p.Tags) ||
			!matchesLanguages(s, p.Languages) ||
			!matchesCategory(s, p.Category, recentCutoff) {
			continue
		}
		out = append(out, s)
	}

	sortSnippets(out, p.Sort)
	return out
}

func matchesSearch(s *Snippet, search string) bool {
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(s.Title), search) {
		return true
	}
	if s.Description != "" && strings.Contains(strings.ToLower(s.Description), search) {
		return true
	}
	for _, tag := range s.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

func matchesTags(s *Snippet, selected []string) bool {
	for _, want := range selected {
		if !slices.Contains(s.Tags, want) {
			return false
		}
	}
	return true
}

func matchesLanguages(s *Snippet, selected []Language) bool {
	if len(selected) == 0 {
		return true
	}
	return slices.Contains(selected, s.Language)
}

func matchesCategory(s *Snippet, c Category, recentCutoff time.Time) bool {
	switch c {
	case CategoryFavorites:
		return s.Favorite
	case CategoryRecent:
		return s.CreatedAt.After(recentCutoff)
	default:
		return true
	}
}

func sortSnippets(list []*Snippet, key SortKey) {
	switch key {
	case SortTitle:
		// Collator keeps internal buffers, one per call.
		col := collate.New(textlang.English)
		slices.SortStableFunc(list, func(a, b *Snippet) int {
			return col.CompareString(a.Title, b.Title)
		})
	case SortLanguage:
		col := collate.New(textlang.English)
		slices.SortStableFunc(list, func(a, b *Snippet) int {
			return col.CompareString(string(a.Language), string(b.Language))
		})
	default:
		slices.SortStableFunc(list, func(a, b *Snippet) int {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		})
	}
}

type Facets struct {
	Tags      []string   `json:"tags"`
	Languages []Language `json:"languages"`
}

// CollectFacets returns the distinct tags and languages present in records.
func CollectFacets(records []*Snippet) Facets {
	tagSet := map[string]struct{}{}
	langSet := map[Language]struct{}{}
	for _, s := range records {
		if s == nil {
			continue
		}
		for _, tag := range s.Tags {
			tagSet[tag] = struct{}{}
		}
		if s.Language != "" {
			langSet[s.Language] = struct{}{}
		}
	}

	f := Facets{
		Tags:      make([]string, 0, len(tagSet)),
		Languages: make([]Language, 0, len(langSet)),
	}
	for tag := range tagSet {
		f.Tags = append(f.Tags, tag)
	}
	for l := range langSet {
		f.Languages = append(f.Languages, l)
	}
	slices.Sort(f.Tags)
	slices.Sort(f.Languages)
	return f
}
