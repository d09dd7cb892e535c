package docstore

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("docstore: invalid input")
	// ErrEntityNotFound is returned by UpdateEntity for an unknown id.
	ErrEntityNotFound = errors.New("docstore: entity not found")
	// ErrUnauthorized means no credential is held; no request was made.
	ErrUnauthorized = errors.New("docstore: no write credential")
	// ErrNotConfigured means the remote owner or repository is unknown.
	ErrNotConfigured = errors.New("docstore: remote location not configured")
	// ErrPushRejected means the remote refused the write: the revision moved
	// or the credential was refused.
	ErrPushRejected = errors.New("docstore: push rejected")
	// ErrPushFailed covers every other push failure.
	ErrPushFailed = errors.New("docstore: push failed")
	// ErrPullFailed means the remote document could not be fetched or parsed.
	ErrPullFailed = errors.New("docstore: pull failed")
	// ErrUploadFailed means the asset write did not complete.
	ErrUploadFailed = errors.New("docstore: upload failed")
	// ErrHistoryUnsupported means the configured cache keeps no versions.
	ErrHistoryUnsupported = errors.New("docstore: cache keeps no history")
)

// ValidationError names the offending field of a rejected mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("docstore: invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("docstore: invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, "validation"},
	{ErrEntityNotFound, "not_found"},
	{ErrUnauthorized, "unauthorized"},
	{ErrNotConfigured, "not_configured"},
	{ErrPushRejected, "push_rejected"},
	{ErrPushFailed, "push_failed"},
	{ErrPullFailed, "pull_failed"},
	{ErrUploadFailed, "upload_failed"},
	{ErrHistoryUnsupported, "history_unsupported"},
}

// Kind names the store error class of err for hosts that only pass strings
// across, or "internal" when err is none of them.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
