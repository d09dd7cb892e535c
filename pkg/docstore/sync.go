package docstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/tessera-archive/tessera/internal/config"
	"github.com/tessera-archive/tessera/internal/logger"
	"github.com/tessera-archive/tessera/pkg/gateway"
	"github.com/tessera-archive/tessera/pkg/site"
)

// Fetch sources reported by PullResult.
const (
	FetchAPI = "api"
	FetchRaw = "raw"
)

// PullResult describes a completed pull.
type PullResult struct {
	Fetch    string     `json:"fetch"`
	Revision string     `json:"revision,omitempty"`
	Forced   bool       `json:"forced"`
	Stats    MergeStats `json:"stats"`
	Dirty    bool       `json:"dirty"`
}

// PushResult describes a completed push.
type PushResult struct {
	Revision string `json:"revision"`
	Bytes    int    `json:"bytes"`
	// Redacted lists credential-shaped paths stripped from the payload.
	Redacted []string `json:"redacted,omitempty"`
}

// Asset is an uploaded binary object.
type Asset struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// ============================================================================
// Pull
// ============================================================================

// Pull fetches the remote document and integrates it through the merge
// policy (or overwrites everything when force is set). An authoring pull
// resets the baseline, so dirty clears unless local entities were kept;
// a visitor pull never touches dirty. On failure nothing changes.
func (s *Store) Pull(ctx context.Context, force bool) (*PullResult, error) {
	loc, err := s.location(s.remote.DocumentPath)
	if err != nil {
		return nil, err
	}

	remote, rev, fetch, err := s.fetchRemote(ctx, loc)
	if err != nil {
		s.log.Warn("Pull failed", logger.String("location", loc.String()), logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPullFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged, stats := Merge(s.doc, remote, s.policy, force)
	s.doc = merged
	s.generation++
	if rev != "" {
		s.revision = rev
	}
	if s.mode == config.ModeAuthoring {
		s.dirty = stats.LocalWins()
	}
	s.persistLocked("pull")

	s.log.Info("Pulled remote document",
		logger.String("fetch", fetch),
		logger.Bool("forced", force),
		logger.Int("retained", stats.Retained),
		logger.Bool("dirty", s.dirty),
	)
	return &PullResult{Fetch: fetch, Revision: rev, Forced: force, Stats: stats, Dirty: s.dirty}, nil
}

// fetchRemote reads through the authenticated API when a credential is
// held (which also yields the revision) and through the raw host otherwise.
func (s *Store) fetchRemote(ctx context.Context, loc gateway.Location) (*site.Document, string, string, error) {
	if s.gw == nil || loc.Owner == "" || loc.Repo == "" {
		return nil, "", "", ErrNotConfigured
	}

	var (
		content []byte
		rev     string
		fetch   string
	)
	if s.credential.Present() {
		f, err := s.gw.ReadFile(ctx, loc)
		if err != nil {
			return nil, "", "", err
		}
		content, rev, fetch = f.Content, f.Revision, FetchAPI
	} else {
		raw, err := s.gw.ReadRaw(ctx, loc)
		if err != nil {
			return nil, "", "", err
		}
		content, fetch = raw, FetchRaw
	}

	doc, err := site.Parse(content)
	if err != nil {
		return nil, "", "", err
	}
	return doc, rev, fetch, nil
}

// ============================================================================
// Push
// ============================================================================

// Push writes the whole document to the remote, conditioned on the
// revision read immediately before. A stale revision or a refused
// credential fails with ErrPushRejected and is never retried. Dirty clears
// only if no mutation landed while the push was in flight.
func (s *Store) Push(ctx context.Context) (*PushResult, error) {
	if !s.credential.Present() {
		return nil, ErrUnauthorized
	}
	if s.gw == nil {
		return nil, ErrNotConfigured
	}

	s.mu.RLock()
	loc, err := s.locationLocked(s.remote.DocumentPath)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	data, encErr := s.doc.Encode()
	generation := s.generation
	s.mu.RUnlock()
	if encErr != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrPushFailed, encErr)
	}

	payload, report, err := s.redactor.JSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	if !report.Empty() {
		s.log.Warn("Credential-shaped content stripped from push",
			logger.Int("fields", len(report.Fields)),
			logger.Int("values", report.Values),
		)
	}

	var expected string
	current, err := s.gw.ReadFile(ctx, loc)
	switch {
	case err == nil:
		expected = current.Revision
	case errors.Is(err, gateway.ErrNotFound):
		// First publish: create the file.
	default:
		return nil, s.pushError(loc, err)
	}

	res, err := s.gw.WriteFile(ctx, loc, payload, gateway.WriteOptions{
		Message:          s.remote.CommitMessage,
		ExpectedRevision: expected,
	})
	if err != nil {
		return nil, s.pushError(loc, err)
	}

	s.mu.Lock()
	s.revision = res.Revision
	if s.generation == generation {
		s.dirty = false
	}
	stillDirty := s.dirty
	s.mu.Unlock()

	s.log.Info("Pushed document",
		logger.String("location", loc.String()),
		logger.String("revision", res.Revision),
		logger.Int("bytes", len(payload)),
		logger.Bool("dirty", stillDirty),
	)
	return &PushResult{Revision: res.Revision, Bytes: len(payload), Redacted: report.Fields}, nil
}

func (s *Store) pushError(loc gateway.Location, err error) error {
	if errors.Is(err, gateway.ErrConflict) || errors.Is(err, gateway.ErrUnauthorized) {
		s.log.Warn("Push rejected", logger.String("location", loc.String()), logger.Error(err))
		return fmt.Errorf("%w: %w", ErrPushRejected, err)
	}
	s.log.Error("Push failed", logger.String("location", loc.String()), logger.Error(err))
	return fmt.Errorf("%w: %w", ErrPushFailed, err)
}

// ============================================================================
// Assets
// ============================================================================

// UploadAsset writes data as a new file under the image path, named
// "{unix ms}-{name}", and returns its public URL. The write is immediate
// and independent of the document's dirty/push cycle: an asset whose
// referencing edit is never pushed stays in the repository.
func (s *Store) UploadAsset(ctx context.Context, data []byte, name string) (*Asset, error) {
	if !s.credential.Present() {
		return nil, ErrUnauthorized
	}
	if len(data) == 0 {
		return nil, invalid("data", "empty asset")
	}
	if s.gw == nil {
		return nil, ErrNotConfigured
	}

	s.mu.RLock()
	fileName := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + SanitizeFileName(name)
	loc, err := s.locationLocked(path.Join(s.imagePathLocked(), fileName))
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if _, err := s.gw.WriteFile(ctx, loc, data, gateway.WriteOptions{
		Message: "Upload image: " + fileName,
	}); err != nil {
		s.log.Warn("Upload failed", logger.String("path", loc.Path), logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	url := s.gw.RawURL(loc)
	s.log.Info("Asset uploaded", logger.String("path", loc.Path), logger.Int("bytes", len(data)))
	return &Asset{Path: loc.Path, URL: url}, nil
}

// SanitizeFileName keeps the base name, turns whitespace runs and path
// separators into "-" and drops control characters.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	dash := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			if !dash {
				b.WriteByte('-')
				dash = true
			}
			continue
		case unicode.IsControl(r):
			continue
		}
		b.WriteRune(r)
		dash = false
	}
	if out := strings.Trim(b.String(), "-"); out != "" && out != "." && out != ".." {
		return out
	}
	return "asset"
}
