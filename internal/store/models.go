// Package store provides the local cache backends for Tessera: SQLite with
// snapshot history, Redis, browser localStorage and an in-memory map.
package store

import "errors"

// ErrVersionNotFound is returned when a requested snapshot does not exist.
var ErrVersionNotFound = errors.New("store: version not found")

// Cache is a string key-value cache. Every backend satisfies it; the
// document store writes the serialized document and the credential under
// separate keys.
type Cache interface {
	// Get returns the value and whether the key was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Entry is one stored version of a key.
// Uses the temporal table pattern: exactly one version per key is current.
type Entry struct {
	Key     string `json:"key"`
	Version int    `json:"version"`
	Value   string `json:"value"`

	ValidFrom    int64  `json:"validFrom"`
	ValidTo      *int64 `json:"validTo,omitempty"`
	IsCurrent    bool   `json:"isCurrent"`
	ChangeReason string `json:"changeReason,omitempty"`
}

// Historian is implemented by caches that retain previous versions.
type Historian interface {
	// ListVersions returns versions newest first.
	ListVersions(key string) ([]*Entry, error)
	GetVersion(key string, version int) (*Entry, error)
	// Restore makes an old version current again by writing it as a new
	// version, so history only grows forward.
	Restore(key string, version int) (*Entry, error)
}

// Snapshotter is implemented by caches whose contents the host persists
// itself (the in-memory SQLite database in the browser build).
type Snapshotter interface {
	Export() ([]byte, error)
	Import(data []byte) error
}
