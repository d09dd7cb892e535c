package site

import (
	"fmt"
	"strings"
)

// Collection names one of the ordered entity sequences of a Document.
type Collection string

const (
	Posts         Collection = "posts"
	Announcements Collection = "announcements"
	Messages      Collection = "messages"
)

// Collections lists every collection in document order.
var Collections = []Collection{Posts, Announcements, Messages}

// ParseCollection accepts the plural JSON name or its singular form.
func ParseCollection(name string) (Collection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "posts", "post":
		return Posts, nil
	case "announcements", "announcement":
		return Announcements, nil
	case "messages", "message":
		return Messages, nil
	}
	return "", fmt.Errorf("unknown collection %q", name)
}

// Len returns the number of entities in collection c.
func (d *Document) Len(c Collection) int {
	switch c {
	case Posts:
		return len(d.Posts)
	case Announcements:
		return len(d.Announcements)
	case Messages:
		return len(d.Messages)
	}
	return 0
}

// IDs returns the ids of collection c in order.
func (d *Document) IDs(c Collection) []string {
	switch c {
	case Posts:
		return keys(d.Posts)
	case Announcements:
		return keys(d.Announcements)
	case Messages:
		return keys(d.Messages)
	}
	return nil
}

// Has reports whether collection c contains id.
func (d *Document) Has(c Collection, id string) bool {
	switch c {
	case Posts:
		return IndexOf(d.Posts, id) >= 0
	case Announcements:
		return IndexOf(d.Announcements, id) >= 0
	case Messages:
		return IndexOf(d.Messages, id) >= 0
	}
	return false
}

func keys[T Entity](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Key()
	}
	return out
}

// IndexOf returns the position of the first entity with id, or -1.
func IndexOf[T Entity](items []T, id string) int {
	for i, item := range items {
		if item.Key() == id {
			return i
		}
	}
	return -1
}
