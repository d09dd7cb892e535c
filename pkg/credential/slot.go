// Package credential holds the remote write token outside the site document.
// The token is persisted under its own cache key and is never serialized
// together with content.
package credential

import (
	"strings"
	"sync"
)

// Backend is the key-value slot the token is persisted to.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Slot is the in-memory credential plus its persistence key.
type Slot struct {
	mu      sync.RWMutex
	token   string
	key     string
	backend Backend
}

// NewSlot creates a slot persisted under key. backend may be nil, in which
// case the token only lives for the session.
func NewSlot(backend Backend, key string) *Slot {
	return &Slot{backend: backend, key: key}
}

// Load reads a previously stored token. An absent entry is not an error.
func (s *Slot) Load() error {
	if s.backend == nil {
		return nil
	}
	token, ok, err := s.backend.Get(s.key)
	if err != nil {
		return err
	}
	if ok {
		s.mu.Lock()
		s.token = strings.TrimSpace(token)
		s.mu.Unlock()
	}
	return nil
}

// Token returns the current token, or "" when none is held.
func (s *Slot) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Present reports whether a token is held.
func (s *Slot) Present() bool {
	return s.Token() != ""
}

// Set replaces the token in memory, then persists it. The in-memory value is
// updated even if persisting fails.
func (s *Slot) Set(token string) error {
	token = strings.TrimSpace(token)
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	if token == "" {
		return s.backend.Delete(s.key)
	}
	return s.backend.Set(s.key, token)
}

// Clear forgets the token.
func (s *Slot) Clear() error {
	return s.Set("")
}
