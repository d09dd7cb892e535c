// Package gateway defines the Remote Content Gateway: a content-addressed
// file API where every write is an atomic whole-file replace, optionally
// conditioned on the revision the writer last saw.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the file (or repository) does not exist.
	ErrNotFound = errors.New("gateway: not found")
	// ErrConflict means the remote revision moved since it was read.
	ErrConflict = errors.New("gateway: revision conflict")
	// ErrUnauthorized means the credential is missing, invalid or lacks access.
	ErrUnauthorized = errors.New("gateway: unauthorized")
)

// Location addresses one file in one repository branch.
type Location struct {
	Owner  string
	Repo   string
	Branch string
	Path   string
}

func (l Location) String() string {
	return fmt.Sprintf("%s/%s@%s:%s", l.Owner, l.Repo, l.Branch, l.Path)
}

// File is decoded file content plus its revision tag.
type File struct {
	Content  []byte
	Revision string
}

// WriteOptions carries the commit message and the revision precondition.
// An empty ExpectedRevision means "create": the write fails with
// ErrConflict if the file already exists.
type WriteOptions struct {
	Message          string
	ExpectedRevision string
}

// WriteResult is the outcome of a successful write.
type WriteResult struct {
	Revision string
}

// Gateway is the contract the document store depends on. Implementations
// own the transport encoding (base64 for GitHub); callers only see bytes.
type Gateway interface {
	// ReadFile returns content and revision, or ErrNotFound.
	ReadFile(ctx context.Context, loc Location) (*File, error)
	// WriteFile replaces the file, or fails with ErrConflict or ErrUnauthorized.
	WriteFile(ctx context.Context, loc Location, content []byte, opts WriteOptions) (*WriteResult, error)
	// ReadRaw fetches content only, bypassing caches, or returns ErrNotFound.
	ReadRaw(ctx context.Context, loc Location) ([]byte, error)
	// RawURL is the stable public retrieval URL of loc.
	RawURL(loc Location) string
}

// StatusError is an unexpected HTTP outcome that maps to none of the
// sentinel errors.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gateway: %s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("gateway: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// ConflictError carries both revisions of a rejected conditional write.
type ConflictError struct {
	Location         Location
	ExpectedRevision string
	CurrentRevision  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("gateway: revision conflict at %s: expected %q, remote is %q",
		e.Location, e.ExpectedRevision, e.CurrentRevision)
}

// Is makes errors.Is(err, ErrConflict) true for a *ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
