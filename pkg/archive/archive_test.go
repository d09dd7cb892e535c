package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-archive/tessera/pkg/site"
)

func samplePosts() []site.Post {
	return []site.Post{
		{ID: "legacy", Title: "Eski Not", Category: "Saha", Content: "kazı defteri"},
		{ID: "p1", Title: "İznik çinileri", Category: "Seramik", Excerpt: "Çini atölyeleri", Content: "İznik kazısında bulunan çini parçaları", CreatedAt: 100},
		{ID: "p2", Title: "Roman glass", Category: "GLASS", Content: "The glass from the harbour", CreatedAt: 300},
		{ID: "p3", Title: "Kiln survey", Category: "seramik", Content: "A kiln and its glass slag", CreatedAt: 200},
	}
}

func ids(posts []site.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestFold_TurkishDottedI(t *testing.T) {
	assert.Equal(t, "iznik", Fold("İZNİK"))
	assert.Equal(t, "ilik", Fold("ILIK"))
	assert.Equal(t, Fold("ılık"), Fold("ILIK"))
	assert.Equal(t, "seramik", Fold("  Seramik "))
}

func TestChronological_NewestFirstLegacyLast(t *testing.T) {
	posts := samplePosts()
	got := Chronological(posts)

	assert.Equal(t, []string{"p2", "p3", "p1", "legacy"}, ids(got))
	assert.Equal(t, "legacy", posts[0].ID, "input must not be reordered")
}

func TestByCategory_CaseInsensitive(t *testing.T) {
	got := ByCategory(samplePosts(), "SERAMİK")
	assert.Equal(t, []string{"p3", "p1"}, ids(got))

	assert.Empty(t, ByCategory(samplePosts(), "unknown"))
}

func TestCategories_CountsAndOrder(t *testing.T) {
	posts := append(samplePosts(), site.Post{ID: "blank", Category: "  "})
	got := Categories(posts)

	require.Len(t, got, 3)
	assert.Equal(t, CategoryCount{Name: "seramik", Count: 2}, got[0])
	assert.Equal(t, CategoryCount{Name: "GLASS", Count: 1}, got[1])
	assert.Equal(t, CategoryCount{Name: "Saha", Count: 1}, got[2])
}

func TestActiveAnnouncements(t *testing.T) {
	doc := site.Default()
	doc.Announcements = []site.Announcement{
		{ID: "a1", IsActive: true, CreatedAt: 10},
		{ID: "a2", IsActive: false, CreatedAt: 30},
		{ID: "a3", IsActive: true, CreatedAt: 20},
	}

	got := ActiveAnnouncements(doc)
	require.Len(t, got, 2)
	assert.Equal(t, "a3", got[0].ID)
	assert.Equal(t, "a1", got[1].ID)
}

func TestUnreadCount(t *testing.T) {
	msgs := []site.Message{{ID: "1"}, {ID: "2", Read: true}, {ID: "3"}}
	assert.Equal(t, 2, UnreadCount(msgs))
	assert.Zero(t, UnreadCount(nil))
}

func TestTerms_DropsStopwords(t *testing.T) {
	assert.Equal(t, []string{"glass", "kiln"}, Terms("the Glass and a KILN glass"))
	assert.Equal(t, []string{"çini", "iznik"}, Terms("Bu çini ve İznik için"))
	assert.Empty(t, Terms("the and ve bir"))
	assert.Empty(t, Terms("IS IT IN IF"))
}

func TestSearch_RanksByWeightedHits(t *testing.T) {
	hits := Search(samplePosts(), "glass")

	require.Len(t, hits, 2)
	// p2: title 3 + category 2 + content 1
	assert.Equal(t, "p2", hits[0].Post.ID)
	assert.Equal(t, 6, hits[0].Score)
	assert.Equal(t, "p3", hits[1].Post.ID)
	assert.Equal(t, 1, hits[1].Score)
}

func TestSearch_TurkishFolding(t *testing.T) {
	hits := Search(samplePosts(), "İZNİK")
	require.Len(t, hits, 1)
	assert.Equal(t, "p1", hits[0].Post.ID)
}

func TestSearch_UppercaseEnglish(t *testing.T) {
	hits := Search(samplePosts(), "KILN")
	require.Len(t, hits, 1)
	assert.Equal(t, "p3", hits[0].Post.ID)
}

func TestSearch_OnlyStopwords(t *testing.T) {
	assert.Nil(t, Search(samplePosts(), "the ve"))
}

func TestBuild(t *testing.T) {
	doc := site.Default()
	doc.Posts = samplePosts()
	doc.Messages = []site.Message{{ID: "m1"}}

	t.Run("chronological", func(t *testing.T) {
		v := Build(doc, Query{})
		assert.Equal(t, []string{"p2", "p3", "p1", "legacy"}, ids(v.Posts))
		assert.Equal(t, 1, v.Unread)
		assert.Len(t, v.Categories, 3)
	})

	t.Run("category and limit", func(t *testing.T) {
		v := Build(doc, Query{Category: "Seramik", Limit: 1})
		assert.Equal(t, []string{"p3"}, ids(v.Posts))
	})

	t.Run("search within category", func(t *testing.T) {
		v := Build(doc, Query{Category: "seramik", Search: "glass"})
		assert.Equal(t, []string{"p3"}, ids(v.Posts))
	})

	t.Run("no match is empty not nil", func(t *testing.T) {
		v := Build(doc, Query{Search: "amphora"})
		assert.NotNil(t, v.Posts)
		assert.Empty(t, v.Posts)
	})
}
