// Package archive derives the public read views of a site document: the
// chronological archive, category pages, active announcements and search.
// Views never mutate the document.
package archive

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tessera-archive/tessera/pkg/site"
)

// Fold lower-cases s with Turkish rules and trims it. Dotless ı folds to i
// so English words written in capitals (KILN, IS) still match.
func Fold(s string) string {
	return strings.ReplaceAll(cases.Lower(language.Turkish).String(strings.TrimSpace(s)), "ı", "i")
}

// Chronological returns posts newest first by CreatedAt. Legacy posts
// without a timestamp sort last and keep their stored order.
func Chronological(posts []site.Post) []site.Post {
	out := slices.Clone(posts)
	slices.SortStableFunc(out, func(a, b site.Post) int {
		return newestFirst(a.CreatedAt, b.CreatedAt)
	})
	return out
}

func newestFirst(a, b int64) int {
	switch {
	case a == b:
		return 0
	case a == 0:
		return 1
	case b == 0:
		return -1
	}
	return cmp.Compare(b, a)
}

// ByCategory returns the chronological posts whose category folds to the
// same value as category.
func ByCategory(posts []site.Post, category string) []site.Post {
	want := Fold(category)
	var out []site.Post
	for _, p := range Chronological(posts) {
		if Fold(p.Category) == want {
			out = append(out, p)
		}
	}
	return out
}

// CategoryCount is one entry of the category index.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories lists categories by post count, then name. The display name is
// the first spelling seen in chronological order.
func Categories(posts []site.Post) []CategoryCount {
	index := make(map[string]int)
	var out []CategoryCount
	for _, p := range Chronological(posts) {
		if strings.TrimSpace(p.Category) == "" {
			continue
		}
		key := Fold(p.Category)
		if i, ok := index[key]; ok {
			out[i].Count++
			continue
		}
		index[key] = len(out)
		out = append(out, CategoryCount{Name: strings.TrimSpace(p.Category), Count: 1})
	}
	slices.SortStableFunc(out, func(a, b CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(Fold(a.Name), Fold(b.Name))
	})
	return out
}

// ActiveAnnouncements returns the visible announcements, newest first.
func ActiveAnnouncements(doc *site.Document) []site.Announcement {
	var out []site.Announcement
	for _, a := range doc.Announcements {
		if a.IsActive {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b site.Announcement) int {
		return newestFirst(a.CreatedAt, b.CreatedAt)
	})
	return out
}

// UnreadCount counts messages not yet read.
func UnreadCount(messages []site.Message) int {
	n := 0
	for _, m := range messages {
		if !m.Read {
			n++
		}
	}
	return n
}

// Query selects an archive view.
type Query struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// View is everything a public archive page renders.
type View struct {
	Posts         []site.Post         `json:"posts"`
	Categories    []CategoryCount     `json:"categories"`
	Announcements []site.Announcement `json:"announcements"`
	Unread        int                 `json:"unread"`
}

// Build applies q to doc. A search ranks by relevance; otherwise posts are
// chronological. The category filter applies in both cases.
func Build(doc *site.Document, q Query) View {
	var posts []site.Post
	if strings.TrimSpace(q.Search) != "" {
		for _, hit := range Search(doc.Posts, q.Search) {
			posts = append(posts, hit.Post)
		}
	} else {
		posts = Chronological(doc.Posts)
	}

	if strings.TrimSpace(q.Category) != "" {
		want := Fold(q.Category)
		posts = slices.DeleteFunc(posts, func(p site.Post) bool {
			return Fold(p.Category) != want
		})
	}
	if q.Limit > 0 && len(posts) > q.Limit {
		posts = posts[:q.Limit]
	}
	if posts == nil {
		posts = []site.Post{}
	}

	return View{
		Posts:         posts,
		Categories:    Categories(doc.Posts),
		Announcements: ActiveAnnouncements(doc),
		Unread:        UnreadCount(doc.Messages),
	}
}
