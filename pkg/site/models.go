// Package site defines the published site document: the single JSON blob the
// admin console edits and the public pages render.
package site

// FontOption is one of the typefaces the public theme ships.
type FontOption string

const (
	FontInter           FontOption = "Inter"
	FontSpaceGrotesk    FontOption = "Space Grotesk"
	FontJetBrainsMono   FontOption = "JetBrains Mono"
	FontPlayfairDisplay FontOption = "Playfair Display"
)

// Fonts lists every accepted FontOption.
var Fonts = []FontOption{FontInter, FontSpaceGrotesk, FontJetBrainsMono, FontPlayfairDisplay}

// Document is the root entity and the unit of persistence.
// It has no credential field: the write token lives in a separate slot.
type Document struct {
	SiteTitle        string      `json:"siteTitle"`
	AccentColor      string      `json:"accentColor"`
	FontFamily       FontOption  `json:"fontFamily"`
	HeroText         string      `json:"heroText"`
	HeroSubtext      string      `json:"heroSubtext"`
	HeroImageURL     string      `json:"heroImageUrl"`
	AuthorName       string      `json:"authorName"`
	AuthorTitle      string      `json:"authorTitle"`
	AuthorBio        string      `json:"authorBio"`
	AuthorImage      string      `json:"authorImage"`
	AuthorPhilosophy string      `json:"authorPhilosophy"`
	FocusAreas       []FocusArea `json:"focusAreas"`

	// Connection fields. Pull keeps the local values of these.
	GitHubUsername  string `json:"githubUsername"`
	GitHubEmail     string `json:"githubEmail"`
	GitHubRepo      string `json:"githubRepo"`
	GitHubImagePath string `json:"githubImagePath"`

	GitHubProjects []GitHubProject `json:"githubProjects"`
	SocialLinks    SocialLinks     `json:"socialLinks"`

	Posts         []Post         `json:"posts"`
	Announcements []Announcement `json:"announcements"`
	Messages      []Message      `json:"messages"`
}

// FocusArea is a research area shown on the author page.
type FocusArea struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

// GitHubProject is a repository card shown on the author page.
type GitHubProject struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Language    string `json:"language"`
	Stars       int    `json:"stars"`
	UpdatedAt   string `json:"updatedAt"`
}

// SocialLinks holds profile links.
type SocialLinks struct {
	Instagram string `json:"instagram"`
	LinkedIn  string `json:"linkedin"`
}

// Post is an archive entry.
// Date is the display string assigned at creation; CreatedAt (Unix ms) is
// the ordering key. Entries written before CreatedAt existed carry 0.
type Post struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	Content     string `json:"content"`
	ImageURL    string `json:"imageUrl"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	ReadingTime string `json:"readingTime"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
}

// Announcement is a notice; IsActive gates public visibility.
type Announcement struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	ImageURL  string `json:"imageUrl"`
	Date      string `json:"date"`
	IsActive  bool   `json:"isActive"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// Message is a contact submission. Read only ever goes false -> true.
type Message struct {
	ID          string `json:"id"`
	SenderName  string `json:"senderName"`
	SenderEmail string `json:"senderEmail"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	ReceivedAt  string `json:"receivedAt"`
	Read        bool   `json:"read"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
}

// Entity is the constraint satisfied by every collection element.
type Entity interface {
	Post | Announcement | Message
	Key() string
}

// Key returns the post id.
func (p Post) Key() string { return p.ID }

// Key returns the announcement id.
func (a Announcement) Key() string { return a.ID }

// Key returns the message id.
func (m Message) Key() string { return m.ID }
