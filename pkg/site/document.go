package site

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Parse decodes a stored or fetched document and normalizes it.
// Unknown keys (including a legacy "githubToken") are dropped.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("site: decode document: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}

// Encode serializes the document with the two-space indentation used in the
// published file, so diffs in the remote repository stay readable.
func (d *Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Normalize repairs a loaded document once, at load time: absent collections
// become empty, duplicate ids keep their first occurrence, and an unknown
// font falls back to the default.
func (d *Document) Normalize() {
	if d.Posts == nil {
		d.Posts = []Post{}
	}
	if d.Announcements == nil {
		d.Announcements = []Announcement{}
	}
	if d.Messages == nil {
		d.Messages = []Message{}
	}
	if d.FocusAreas == nil {
		d.FocusAreas = []FocusArea{}
	}
	if d.GitHubProjects == nil {
		d.GitHubProjects = []GitHubProject{}
	}
	if !slices.Contains(Fonts, d.FontFamily) {
		d.FontFamily = FontInter
	}

	d.Posts = dedupe(d.Posts)
	d.Announcements = dedupe(d.Announcements)
	d.Messages = dedupe(d.Messages)
}

func dedupe[T Entity](items []T) []T {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, dup := seen[item.Key()]; dup {
			continue
		}
		seen[item.Key()] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Clone returns a deep copy. Entities hold only value fields, so copying the
// slices is enough.
func (d *Document) Clone() *Document {
	c := *d
	c.FocusAreas = slices.Clone(d.FocusAreas)
	c.GitHubProjects = slices.Clone(d.GitHubProjects)
	c.Posts = slices.Clone(d.Posts)
	c.Announcements = slices.Clone(d.Announcements)
	c.Messages = slices.Clone(d.Messages)
	c.Normalize()
	return &c
}

// Connection holds the fields naming where the document is published.
type Connection struct {
	Owner     string
	Repo      string
	Email     string
	ImagePath string
}

// Connection returns the document's connection fields.
func (d *Document) Connection() Connection {
	return Connection{
		Owner:     d.GitHubUsername,
		Repo:      d.GitHubRepo,
		Email:     d.GitHubEmail,
		ImagePath: d.GitHubImagePath,
	}
}

// SetConnection overwrites the connection fields.
func (d *Document) SetConnection(c Connection) {
	d.GitHubUsername = c.Owner
	d.GitHubRepo = c.Repo
	d.GitHubEmail = c.Email
	d.GitHubImagePath = c.ImagePath
}

// Default is the built-in document used when neither the cache nor the
// remote store can provide one.
func Default() *Document {
	doc := &Document{
		SiteTitle:        "TESSERA",
		AccentColor:      "#c2410c",
		FontFamily:       FontInter,
		HeroText:         "KAZI ALANINDAN NOTLAR",
		HeroSubtext:      "Arkeoloji, kültürel miras ve dijital arşivleme üzerine kayıtlar.",
		AuthorName:       "Tessera",
		AuthorTitle:      "Arkeolog",
		AuthorPhilosophy: "Her parça bir bütünün hafızasını taşır.",
		FocusAreas: []FocusArea{
			{ID: "fa-1", Title: "Saha Arkeolojisi", Desc: "Kazı belgeleme ve stratigrafi."},
			{ID: "fa-2", Title: "Dijital Arşiv", Desc: "Buluntuların sayısal kaydı."},
		},
		GitHubImagePath: "images",
	}
	doc.Normalize()
	return doc
}
