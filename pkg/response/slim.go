// Package response provides slim JSON payloads for list views. Bodies are
// left out so a listing stays small regardless of post length.
package response

import (
	"encoding/json"

	"github.com/tessera-archive/tessera/pkg/archive"
	"github.com/tessera-archive/tessera/pkg/site"
)

// SlimPost is a post row without its content.
type SlimPost struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	ReadingTime string `json:"readingTime,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// SlimAnnouncement is an announcement row without its content.
type SlimAnnouncement struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	IsActive bool   `json:"isActive"`
}

// SlimMessage is an inbox row without its body.
type SlimMessage struct {
	ID         string `json:"id"`
	SenderName string `json:"senderName"`
	Subject    string `json:"subject"`
	ReceivedAt string `json:"receivedAt"`
	Read       bool   `json:"read"`
}

// SlimListing is every collection of a document in row form.
type SlimListing struct {
	Posts         []SlimPost         `json:"posts"`
	Announcements []SlimAnnouncement `json:"announcements"`
	Messages      []SlimMessage      `json:"messages"`
	Unread        int                `json:"unread"`
}

// SlimArchive is an archive view in row form.
type SlimArchive struct {
	Posts         []SlimPost              `json:"posts"`
	Categories    []archive.CategoryCount `json:"categories"`
	Announcements []SlimAnnouncement      `json:"announcements"`
	Unread        int                     `json:"unread"`
}

// FromPosts converts posts to rows, keeping order.
func FromPosts(posts []site.Post) []SlimPost {
	out := make([]SlimPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, SlimPost{
			ID:          p.ID,
			Title:       p.Title,
			Category:    p.Category,
			Date:        p.Date,
			ReadingTime: p.ReadingTime,
			ImageURL:    p.ImageURL,
		})
	}
	return out
}

// FromAnnouncements converts announcements to rows, keeping order.
func FromAnnouncements(items []site.Announcement) []SlimAnnouncement {
	out := make([]SlimAnnouncement, 0, len(items))
	for _, a := range items {
		out = append(out, SlimAnnouncement{ID: a.ID, Title: a.Title, Date: a.Date, IsActive: a.IsActive})
	}
	return out
}

// FromMessages converts messages to rows, keeping order.
func FromMessages(items []site.Message) []SlimMessage {
	out := make([]SlimMessage, 0, len(items))
	for _, m := range items {
		out = append(out, SlimMessage{
			ID:         m.ID,
			SenderName: m.SenderName,
			Subject:    m.Subject,
			ReceivedAt: m.ReceivedAt,
			Read:       m.Read,
		})
	}
	return out
}

// FromDocument builds the listing of doc in stored order.
func FromDocument(doc *site.Document) *SlimListing {
	if doc == nil {
		return nil
	}
	return &SlimListing{
		Posts:         FromPosts(doc.Posts),
		Announcements: FromAnnouncements(doc.Announcements),
		Messages:      FromMessages(doc.Messages),
		Unread:        archive.UnreadCount(doc.Messages),
	}
}

// FromArchive converts an archive view.
func FromArchive(v archive.View) *SlimArchive {
	cats := v.Categories
	if cats == nil {
		cats = []archive.CategoryCount{}
	}
	return &SlimArchive{
		Posts:         FromPosts(v.Posts),
		Categories:    cats,
		Announcements: FromAnnouncements(v.Announcements),
		Unread:        v.Unread,
	}
}

// MarshalListing creates the slim listing JSON for doc.
func MarshalListing(doc *site.Document) ([]byte, error) {
	return json.Marshal(FromDocument(doc))
}

// MarshalArchive creates the slim archive JSON for q over doc.
func MarshalArchive(doc *site.Document, q archive.Query) ([]byte, error) {
	return json.Marshal(FromArchive(archive.Build(doc, q)))
}
