package docstore

import (
	"fmt"

	"github.com/tessera-archive/tessera/internal/logger"
	"github.com/tessera-archive/tessera/internal/store"
	"github.com/tessera-archive/tessera/pkg/site"
)

// History lists the cached document snapshots, newest first.
func (s *Store) History() ([]*store.Entry, error) {
	h, ok := s.cache.(store.Historian)
	if !ok {
		return nil, ErrHistoryUnsupported
	}
	return h.ListVersions(s.docKey)
}

// Restore makes a cached snapshot the current document. The restored
// document is unpublished, so the Store becomes dirty.
func (s *Store) Restore(version int) (*site.Document, error) {
	h, ok := s.cache.(store.Historian)
	if !ok {
		return nil, ErrHistoryUnsupported
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := h.GetVersion(s.docKey, version)
	if err != nil {
		return nil, err
	}
	doc, err := site.Parse([]byte(old.Value))
	if err != nil {
		return nil, fmt.Errorf("docstore: snapshot v%d: %w", version, err)
	}
	if _, err := h.Restore(s.docKey, version); err != nil {
		return nil, err
	}

	s.doc = doc
	s.dirty = true
	s.generation++
	s.log.Info("Snapshot restored", logger.Int("version", version))
	return doc.Clone(), nil
}
