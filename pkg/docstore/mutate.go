package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tessera-archive/tessera/internal/logger"
	"github.com/tessera-archive/tessera/pkg/site"
)

// maxIDAttempts bounds regeneration when a fresh id collides.
const maxIDAttempts = 8

// ============================================================================
// Scalar fields
// ============================================================================

// UpdateFields shallow-merges scalar configuration fields into the
// document. Keys use the document's JSON names. Credential-shaped keys,
// collection keys and unknown keys are rejected before anything changes.
func (s *Store) UpdateFields(fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	for key, value := range fields {
		if s.redactor.IsCredentialField(key) {
			return invalid(key, "credentials are held in the credential slot, not the document")
		}
		if slices.Contains(site.Collections, site.Collection(key)) {
			return invalid(key, "collections change through entity operations")
		}
		if key == "fontFamily" {
			if font, ok := value.(string); !ok || !slices.Contains(site.Fonts, site.FontOption(font)) {
				return invalid(key, fmt.Sprintf("must be one of %v", site.Fonts))
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := overlay(*s.doc, fields)
	if err != nil {
		return err
	}
	updated.Normalize()
	s.doc = &updated
	s.touchLocked("update fields")
	return nil
}

// ============================================================================
// Entities
// ============================================================================

// AddEntity decodes data into the collection's entity type and adds it.
// The store assigns id and creation time; supplying "id" is rejected.
func (s *Store) AddEntity(c site.Collection, data map[string]any) (any, error) {
	if _, ok := data["id"]; ok {
		return nil, invalid("id", "assigned by the store")
	}
	switch c {
	case site.Posts:
		p, err := overlay(site.Post{}, data)
		if err != nil {
			return nil, err
		}
		return s.AddPost(p)
	case site.Announcements:
		a, err := overlay(site.Announcement{}, data)
		if err != nil {
			return nil, err
		}
		return s.AddAnnouncement(a)
	case site.Messages:
		m, err := overlay(site.Message{}, data)
		if err != nil {
			return nil, err
		}
		return s.AddMessage(m)
	}
	return nil, invalid("collection", fmt.Sprintf("unknown collection %q", c))
}

// AddPost prepends a post. ReadingTime is derived from Content when empty.
func (s *Store) AddPost(p site.Post) (site.Post, error) {
	if err := validatePost(p); err != nil {
		return site.Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.newIDLocked(site.Posts)
	if err != nil {
		return site.Post{}, err
	}
	now := s.now()
	p.ID = id
	p.Date = site.DisplayDate(now)
	p.CreatedAt = now.UnixMilli()
	if isBlank(p.ReadingTime) {
		p.ReadingTime = site.ReadingTime(p.Content)
	}

	s.doc.Posts = slices.Insert(s.doc.Posts, 0, p)
	s.touchLocked("add post " + id)
	s.log.Debug("Post added", logger.String("id", id))
	return p, nil
}

// AddAnnouncement prepends an announcement.
func (s *Store) AddAnnouncement(a site.Announcement) (site.Announcement, error) {
	if err := validateAnnouncement(a); err != nil {
		return site.Announcement{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.newIDLocked(site.Announcements)
	if err != nil {
		return site.Announcement{}, err
	}
	now := s.now()
	a.ID = id
	a.Date = site.DisplayDate(now)
	a.CreatedAt = now.UnixMilli()

	s.doc.Announcements = slices.Insert(s.doc.Announcements, 0, a)
	s.touchLocked("add announcement " + id)
	s.log.Debug("Announcement added", logger.String("id", id))
	return a, nil
}

// AddMessage prepends a contact submission. This is also the path the
// public contact form takes, so every field is required.
func (s *Store) AddMessage(m site.Message) (site.Message, error) {
	if err := validateMessage(m); err != nil {
		return site.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.newIDLocked(site.Messages)
	if err != nil {
		return site.Message{}, err
	}
	now := s.now()
	m.ID = id
	m.ReceivedAt = site.DisplayDateTime(now)
	m.CreatedAt = now.UnixMilli()
	m.Read = false

	s.doc.Messages = slices.Insert(s.doc.Messages, 0, m)
	s.touchLocked("add message " + id)
	s.log.Debug("Message added", logger.String("id", id))
	return m, nil
}

// UpdateEntity merges patch into the entity with id. Identity and creation
// fields are preserved and a message never goes back to unread. A missing
// id returns ErrEntityNotFound and leaves the document clean.
func (s *Store) UpdateEntity(c site.Collection, id string, patch map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		updated any
		err     error
	)
	switch c {
	case site.Posts:
		updated, err = updateIn(s.doc.Posts, id, patch, func(old, p site.Post) (site.Post, error) {
			p.ID, p.Date, p.CreatedAt = old.ID, old.Date, old.CreatedAt
			return p, validatePost(p)
		})
	case site.Announcements:
		updated, err = updateIn(s.doc.Announcements, id, patch, func(old, a site.Announcement) (site.Announcement, error) {
			a.ID, a.Date, a.CreatedAt = old.ID, old.Date, old.CreatedAt
			return a, validateAnnouncement(a)
		})
	case site.Messages:
		updated, err = updateIn(s.doc.Messages, id, patch, func(old, m site.Message) (site.Message, error) {
			m.ID, m.ReceivedAt, m.CreatedAt = old.ID, old.ReceivedAt, old.CreatedAt
			m.Read = m.Read || old.Read
			return m, validateMessage(m)
		})
	default:
		return nil, invalid("collection", fmt.Sprintf("unknown collection %q", c))
	}
	if err != nil {
		return nil, err
	}

	s.touchLocked(fmt.Sprintf("update %s %s", c, id))
	return updated, nil
}

// updateIn replaces the first entity with id in place.
func updateIn[T site.Entity](items []T, id string, patch map[string]any, fix func(old, updated T) (T, error)) (T, error) {
	var zero T
	i := site.IndexOf(items, id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	merged, err := overlay(items[i], patch)
	if err != nil {
		return zero, err
	}
	merged, err = fix(items[i], merged)
	if err != nil {
		return zero, err
	}
	items[i] = merged
	return merged, nil
}

// DeleteEntity removes the first entity with id. It reports false, and
// leaves the dirty flag alone, when nothing matched.
func (s *Store) DeleteEntity(c site.Collection, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed bool
	switch c {
	case site.Posts:
		s.doc.Posts, removed = removeFirst(s.doc.Posts, id)
	case site.Announcements:
		s.doc.Announcements, removed = removeFirst(s.doc.Announcements, id)
	case site.Messages:
		s.doc.Messages, removed = removeFirst(s.doc.Messages, id)
	}
	if !removed {
		return false
	}

	s.touchLocked(fmt.Sprintf("delete %s %s", c, id))
	return true
}

func removeFirst[T site.Entity](items []T, id string) ([]T, bool) {
	i := site.IndexOf(items, id)
	if i < 0 {
		return items, false
	}
	return slices.Delete(items, i, i+1), true
}

// MarkMessageRead flips a message to read. It reports false when the
// message is absent or already read.
func (s *Store) MarkMessageRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := site.IndexOf(s.doc.Messages, id)
	if i < 0 || s.doc.Messages[i].Read {
		return false
	}
	s.doc.Messages[i].Read = true
	s.touchLocked("read message " + id)
	return true
}

// newIDLocked draws ids until one is unused in collection c.
func (s *Store) newIDLocked(c site.Collection) (string, error) {
	for range maxIDAttempts {
		id := s.newID()
		if id != "" && !s.doc.Has(c, id) {
			return id, nil
		}
		s.log.Warn("Generated id collided, retrying", logger.String("collection", string(c)))
	}
	return "", fmt.Errorf("docstore: no unused %s id after %d attempts", c, maxIDAttempts)
}

// ============================================================================
// Validation and decoding
// ============================================================================

func validatePost(p site.Post) error {
	if isBlank(p.Title) {
		return invalid("title", "required")
	}
	if isBlank(p.Content) {
		return invalid("content", "required")
	}
	return nil
}

func validateAnnouncement(a site.Announcement) error {
	if isBlank(a.Title) {
		return invalid("title", "required")
	}
	if isBlank(a.Content) {
		return invalid("content", "required")
	}
	return nil
}

func validateMessage(m site.Message) error {
	switch {
	case isBlank(m.SenderName):
		return invalid("senderName", "required")
	case isBlank(m.SenderEmail):
		return invalid("senderEmail", "required")
	case !strings.Contains(m.SenderEmail, "@"):
		return invalid("senderEmail", "must be an email address")
	case isBlank(m.Subject):
		return invalid("subject", "required")
	case isBlank(m.Body):
		return invalid("body", "required")
	}
	return nil
}

// overlay applies patch (JSON field names) on top of base. Unknown fields
// and mistyped values become validation errors.
func overlay[T any](base T, patch map[string]any) (T, error) {
	var zero T

	raw, err := json.Marshal(base)
	if err != nil {
		return zero, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, invalid("", err.Error())
	}

	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	var out T
	if err := dec.Decode(&out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return zero, invalid(typeErr.Field, "expected "+typeErr.Type.String())
		}
		return zero, invalid("", err.Error())
	}
	return out, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
