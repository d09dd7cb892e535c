package docstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-archive/tessera/internal/config"
	"github.com/tessera-archive/tessera/internal/store"
	"github.com/tessera-archive/tessera/pkg/gateway"
	"github.com/tessera-archive/tessera/pkg/gateway/memgateway"
	"github.com/tessera-archive/tessera/pkg/site"
)

var (
	testNow = time.Date(2026, time.October, 2, 14, 5, 9, 0, time.UTC)
	docLoc  = gateway.Location{Owner: "acme", Repo: "site", Branch: "main", Path: "data/config.json"}
)

type fixture struct {
	store *Store
	gw    *memgateway.Gateway
	cache *store.MemoryStore
}

func newFixture(t *testing.T, mode config.SessionMode, mutate ...func(*Options)) *fixture {
	t.Helper()
	gw := memgateway.New()
	cache := store.NewMemoryStore()
	opts := Options{
		Mode:    mode,
		Remote:  config.RemoteConfig{Owner: "acme", Repo: "site"},
		Gateway: gw,
		Cache:   cache,
		Now:     func() time.Time { return testNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	return &fixture{store: New(opts), gw: gw, cache: cache}
}

func (f *fixture) putRemote(t *testing.T, doc *site.Document) string {
	t.Helper()
	data, err := doc.Encode()
	require.NoError(t, err)
	return f.gw.Put(docLoc, data)
}

func (f *fixture) remoteDoc(t *testing.T) *site.Document {
	t.Helper()
	data, _, ok := f.gw.Get(docLoc)
	require.True(t, ok, "remote document missing")
	doc, err := site.Parse(data)
	require.NoError(t, err)
	return doc
}

func postInput(title string) map[string]any {
	return map[string]any{
		"title": title, "excerpt": "e", "content": "c",
		"imageUrl": "", "category": "X", "readingTime": "5",
	}
}

func titled(title string) *site.Document {
	doc := site.Default()
	doc.SiteTitle = title
	return doc
}

// ============================================================================
// Init
// ============================================================================

func TestInit_AuthoringPrefersCache(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	data, _ := titled("cached").Encode()
	require.NoError(t, f.cache.Set(config.DefaultDocumentKey, string(data)))
	f.putRemote(t, titled("remote"))

	source, err := f.store.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, "cached", f.store.Document().SiteTitle)
	assert.Equal(t, 0, f.gw.Calls(memgateway.OpReadRaw))
}

func TestInit_AuthoringFallsBackToRemoteAndCachesIt(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	f.putRemote(t, titled("remote"))

	source, err := f.store.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, source)

	cached, ok, _ := f.cache.Get(config.DefaultDocumentKey)
	require.True(t, ok)
	assert.Contains(t, cached, `"siteTitle": "remote"`)
}

func TestInit_VisitorPrefersRemote(t *testing.T) {
	f := newFixture(t, config.ModeVisitor)
	data, _ := titled("stale editing session").Encode()
	require.NoError(t, f.cache.Set(config.DefaultDocumentKey, string(data)))
	f.putRemote(t, titled("published"))

	source, err := f.store.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, source)
	assert.Equal(t, "published", f.store.Document().SiteTitle)
}

func TestInit_VisitorFallsBackToCacheThenDefault(t *testing.T) {
	f := newFixture(t, config.ModeVisitor)
	data, _ := titled("cached").Encode()
	require.NoError(t, f.cache.Set(config.DefaultDocumentKey, string(data)))
	f.gw.Fail(memgateway.OpReadRaw, errors.New("offline"))

	source, err := f.store.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, "cached", f.store.Document().SiteTitle)

	empty := newFixture(t, config.ModeVisitor)
	source, err = empty.store.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, source)
	assert.Equal(t, site.Default().SiteTitle, empty.store.Document().SiteTitle)
	assert.False(t, empty.store.Dirty())
}

func TestInit_CorruptCacheFallsThrough(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	require.NoError(t, f.cache.Set(config.DefaultDocumentKey, "{not json"))
	f.putRemote(t, titled("remote"))

	source, err := f.store.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, source)
}

func TestInit_LoadsCredentialFromItsOwnKey(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	require.NoError(t, f.cache.Set(config.DefaultCredentialKey, "ghp_saved"))

	_, err := f.store.Init(context.Background())
	require.NoError(t, err)
	assert.True(t, f.store.HasCredential())
}

// ============================================================================
// Entities
// ============================================================================

func TestAddEntity_NewestFirst(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	require.Empty(t, f.store.Document().Posts)

	a, err := f.store.AddEntity(site.Posts, postInput("A"))
	require.NoError(t, err)
	b, err := f.store.AddEntity(site.Posts, postInput("B"))
	require.NoError(t, err)

	posts := f.store.Document().Posts
	require.Len(t, posts, 2)
	assert.Equal(t, "B", posts[0].Title)
	assert.Equal(t, "A", posts[1].Title)
	assert.Equal(t, b.(site.Post).ID, posts[0].ID)
	assert.Equal(t, a.(site.Post).ID, posts[1].ID)
	assert.NotEqual(t, posts[0].ID, posts[1].ID)
	for _, p := range posts {
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "02 EKİM 2026", p.Date)
		assert.Equal(t, testNow.UnixMilli(), p.CreatedAt)
		assert.Equal(t, "5", p.ReadingTime)
	}
	assert.True(t, f.store.Dirty())
}

func TestAddEntity_TenThousandDistinctIDs(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring, func(o *Options) { o.Cache = nil })

	seen := make(map[string]struct{}, 10000)
	for i := range 10000 {
		p, err := f.store.AddPost(site.Post{Title: fmt.Sprintf("p%d", i), Content: "c"})
		require.NoError(t, err)
		seen[p.ID] = struct{}{}
	}
	assert.Len(t, seen, 10000)
	assert.Len(t, f.store.Document().Posts, 10000)
}

func TestAddEntity_RegeneratesCollidingID(t *testing.T) {
	ids := []string{"dup", "dup", "dup", "fresh"}
	f := newFixture(t, config.ModeAuthoring, func(o *Options) {
		o.NewID = func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		}
	})

	first, err := f.store.AddPost(site.Post{Title: "one", Content: "c"})
	require.NoError(t, err)
	second, err := f.store.AddPost(site.Post{Title: "two", Content: "c"})
	require.NoError(t, err)

	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestAddEntity_RejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name       string
		collection site.Collection
		data       map[string]any
		field      string
	}{
		{"missing title", site.Posts, map[string]any{"content": "c"}, "title"},
		{"client id", site.Posts, map[string]any{"id": "x", "title": "t", "content": "c"}, "id"},
		{"unknown field", site.Posts, map[string]any{"title": "t", "content": "c", "tags": []string{"a"}}, ""},
		{"wrong type", site.Announcements, map[string]any{"title": "t", "content": "c", "isActive": "yes"}, "isActive"},
		{"bad email", site.Messages, map[string]any{"senderName": "n", "senderEmail": "nope", "subject": "s", "body": "b"}, "senderEmail"},
		{"missing body", site.Messages, map[string]any{"senderName": "n", "senderEmail": "a@b", "subject": "s"}, "body"},
		{"unknown collection", site.Collection("drafts"), map[string]any{"title": "t"}, "collection"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, config.ModeAuthoring)
			before := f.store.Document()

			_, err := f.store.AddEntity(tc.collection, tc.data)
			require.ErrorIs(t, err, ErrValidation)
			if tc.field != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tc.field, verr.Field)
			}
			assert.Equal(t, before, f.store.Document())
			assert.False(t, f.store.Dirty())
		})
	}
}

func TestAddMessage_ContactSubmission(t *testing.T) {
	f := newFixture(t, config.ModeVisitor)

	m, err := f.store.AddMessage(site.Message{
		SenderName: "Ayşe", SenderEmail: "ayse@example.org", Subject: "Kazı", Body: "Merhaba",
	})
	require.NoError(t, err)
	assert.False(t, m.Read)
	assert.Equal(t, "02.10.2026 14:05:09", m.ReceivedAt)
	assert.Equal(t, m, f.store.Document().Messages[0])
}

func TestAddMessage_AlwaysArrivesUnread(t *testing.T) {
	f := newFixture(t, config.ModeVisitor)

	got, err := f.store.AddEntity(site.Messages, map[string]any{
		"senderName": "Ayşe", "senderEmail": "ayse@example.org", "subject": "Kazı", "body": "Merhaba",
		"read": true,
	})
	require.NoError(t, err)
	assert.False(t, got.(site.Message).Read)
	assert.False(t, f.store.Document().Messages[0].Read)
}

func TestAddPost_DerivesReadingTime(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	p, err := f.store.AddPost(site.Post{Title: "t", Content: strings.Repeat("söz ", 401)})
	require.NoError(t, err)
	assert.Equal(t, "3", p.ReadingTime)
}

func TestUpdateEntity(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	p, err := f.store.AddPost(site.Post{Title: "draft", Content: "c", Category: "Saha"})
	require.NoError(t, err)

	later := testNow.Add(48 * time.Hour)
	f.store.now = func() time.Time { return later }

	got, err := f.store.UpdateEntity(site.Posts, p.ID, map[string]any{
		"title": "final", "id": "hijack", "date": "01 OCAK 1970",
	})
	require.NoError(t, err)

	updated := got.(site.Post)
	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, p.ID, updated.ID)
	assert.Equal(t, p.Date, updated.Date)
	assert.Equal(t, p.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Saha", updated.Category)
	assert.Equal(t, updated, f.store.Document().Posts[0])
}

func TestUpdateEntity_MissingIDIsNotFoundAndClean(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)

	_, err := f.store.UpdateEntity(site.Announcements, "ghost", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.False(t, f.store.Dirty())
}

func TestUpdateEntity_MessageNeverUnread(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	m, err := f.store.AddMessage(site.Message{SenderName: "n", SenderEmail: "a@b", Subject: "s", Body: "b"})
	require.NoError(t, err)
	require.True(t, f.store.MarkMessageRead(m.ID))

	got, err := f.store.UpdateEntity(site.Messages, m.ID, map[string]any{"read": false, "subject": "re"})
	require.NoError(t, err)
	assert.True(t, got.(site.Message).Read)
	assert.Equal(t, "re", got.(site.Message).Subject)
}

func TestDeleteEntity_MissingIsNoop(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	a, err := f.store.AddPost(site.Post{Title: "A", Content: "c"})
	require.NoError(t, err)
	require.True(t, f.store.DeleteEntity(site.Posts, a.ID))

	f.store.mu.Lock()
	f.store.dirty = false
	f.store.mu.Unlock()
	before := f.store.Document()

	assert.False(t, f.store.DeleteEntity(site.Posts, a.ID))
	assert.Equal(t, before, f.store.Document())
	assert.False(t, f.store.Dirty())
}

func TestMarkMessageRead(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	m, err := f.store.AddMessage(site.Message{SenderName: "n", SenderEmail: "a@b", Subject: "s", Body: "b"})
	require.NoError(t, err)

	assert.True(t, f.store.MarkMessageRead(m.ID))
	assert.True(t, f.store.Document().Messages[0].Read)
	assert.False(t, f.store.MarkMessageRead(m.ID))
	assert.False(t, f.store.MarkMessageRead("ghost"))
}

// TestEntityOps_ReplayMatchesModel applies random add/update/delete
// sequences and checks the collection against a plain model.
func TestEntityOps_ReplayMatchesModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	f := newFixture(t, config.ModeAuthoring, func(o *Options) { o.Cache = nil })

	type entry struct{ id, title string }
	var model []entry

	for step := range 2000 {
		switch op := rng.Intn(4); {
		case op <= 1 || len(model) == 0:
			title := fmt.Sprintf("t%d", step)
			p, err := f.store.AddPost(site.Post{Title: title, Content: "c"})
			require.NoError(t, err)
			model = append([]entry{{p.ID, title}}, model...)
		case op == 2:
			i := rng.Intn(len(model))
			title := fmt.Sprintf("u%d", step)
			_, err := f.store.UpdateEntity(site.Posts, model[i].id, map[string]any{"title": title})
			require.NoError(t, err)
			model[i].title = title
		default:
			i := rng.Intn(len(model))
			require.True(t, f.store.DeleteEntity(site.Posts, model[i].id))
			model = append(model[:i], model[i+1:]...)
			// Deleting again is always a no-op.
			require.False(t, f.store.DeleteEntity(site.Posts, "missing"))
		}
	}

	posts := f.store.Document().Posts
	require.Len(t, posts, len(model))
	for i, p := range posts {
		assert.Equal(t, model[i].id, p.ID)
		assert.Equal(t, model[i].title, p.Title)
	}
}

// ============================================================================
// Fields
// ============================================================================

func TestUpdateFields(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)

	require.NoError(t, f.store.UpdateFields(map[string]any{
		"siteTitle":   "TESSERA MİRAS",
		"fontFamily":  "Space Grotesk",
		"socialLinks": map[string]any{"instagram": "https://instagram.com/tessera"},
	}))

	doc := f.store.Document()
	assert.Equal(t, "TESSERA MİRAS", doc.SiteTitle)
	assert.Equal(t, site.FontSpaceGrotesk, doc.FontFamily)
	assert.Equal(t, "https://instagram.com/tessera", doc.SocialLinks.Instagram)
	assert.True(t, f.store.Dirty())

	cached, ok, _ := f.cache.Get(config.DefaultDocumentKey)
	require.True(t, ok)
	assert.Contains(t, cached, "TESSERA MİRAS")
}

func TestUpdateFields_Rejects(t *testing.T) {
	cases := map[string]map[string]any{
		"credential":     {"githubToken": "ghp_x"},
		"credential alt": {"api_key": "x"},
		"collection":     {"posts": []any{}},
		"unknown":        {"theme": "dark"},
		"bad font":       {"fontFamily": "Comic Sans"},
		"wrong type":     {"siteTitle": 42},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, config.ModeAuthoring)
			before := f.store.Document()

			err := f.store.UpdateFields(fields)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, before, f.store.Document())
			assert.False(t, f.store.Dirty())
		})
	}
}

func TestCacheFailureDoesNotBlockMutation(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	f.cache.FailWrites = errors.New("quota exceeded")

	_, err := f.store.AddPost(site.Post{Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.Len(t, f.store.Document().Posts, 1)
	assert.True(t, f.store.Dirty())
}

func TestCredential(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)

	assert.ErrorIs(t, f.store.SetCredential("   "), ErrValidation)
	require.NoError(t, f.store.SetCredential(" ghp_token "))
	assert.True(t, f.store.HasCredential())

	stored, ok, _ := f.cache.Get(config.DefaultCredentialKey)
	assert.True(t, ok)
	assert.Equal(t, "ghp_token", stored)

	cachedDoc, _, _ := f.cache.Get(config.DefaultDocumentKey)
	assert.NotContains(t, cachedDoc, "ghp_token")

	f.store.ClearCredential()
	assert.False(t, f.store.HasCredential())
	_, ok, _ = f.cache.Get(config.DefaultCredentialKey)
	assert.False(t, ok)
}

func TestHistoryAndRestore(t *testing.T) {
	sqlite, err := store.NewSQLiteStoreWithOptions(store.SQLiteOptions{HistoryLimit: 10})
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	f := newFixture(t, config.ModeAuthoring, func(o *Options) { o.Cache = sqlite })
	require.NoError(t, f.store.UpdateFields(map[string]any{"siteTitle": "first"}))
	require.NoError(t, f.store.UpdateFields(map[string]any{"siteTitle": "second"}))

	versions, err := f.store.History()
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "update fields", versions[0].ChangeReason)

	doc, err := f.store.Restore(1)
	require.NoError(t, err)
	assert.Equal(t, "first", doc.SiteTitle)
	assert.Equal(t, "first", f.store.Document().SiteTitle)
	assert.True(t, f.store.Dirty())

	versions, err = f.store.History()
	require.NoError(t, err)
	assert.Len(t, versions, 3)

	memOnly := newFixture(t, config.ModeAuthoring)
	_, err = memOnly.store.History()
	assert.ErrorIs(t, err, ErrHistoryUnsupported)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, config.ModeAuthoring)
	_, err := f.store.AddPost(site.Post{Title: "t", Content: "c"})
	require.NoError(t, err)

	st := f.store.Status()
	assert.Equal(t, config.ModeAuthoring, st.Mode)
	assert.True(t, st.Dirty)
	assert.True(t, st.Configured)
	assert.Equal(t, docLoc.String(), st.Location)
	assert.Equal(t, 1, st.Posts)
	assert.False(t, st.HasCredential)

	unconfigured := newFixture(t, config.ModeAuthoring, func(o *Options) { o.Remote = config.RemoteConfig{} })
	assert.False(t, unconfigured.store.Status().Configured)
}
