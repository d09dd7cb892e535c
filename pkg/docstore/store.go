// Package docstore is the Document Store: it owns the session's site
// document, mirrors it to the local cache, and synchronizes it with the
// remote gateway.
//
// Mutations are synchronous against memory. Only Pull, Push and UploadAsset
// touch the network. The Store does not serialize concurrent pushes; the
// gateway's revision check is the only backstop.
package docstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-archive/tessera/internal/config"
	"github.com/tessera-archive/tessera/internal/logger"
	"github.com/tessera-archive/tessera/internal/store"
	"github.com/tessera-archive/tessera/pkg/credential"
	"github.com/tessera-archive/tessera/pkg/gateway"
	"github.com/tessera-archive/tessera/pkg/redact"
	"github.com/tessera-archive/tessera/pkg/site"
)

// InitSource records where the initial document came from.
type InitSource string

const (
	SourceCache   InitSource = "cache"
	SourceRemote  InitSource = "remote"
	SourceDefault InitSource = "default"
)

// Options wires a Store. Gateway is required; everything else has a default.
type Options struct {
	Mode    config.SessionMode
	Remote  config.RemoteConfig
	Gateway gateway.Gateway

	// Cache mirrors the document. Nil disables mirroring.
	Cache         store.Cache
	DocumentKey   string
	CredentialKey string
	// Credential overrides the slot built from Cache and CredentialKey.
	Credential *credential.Slot

	Policy MergePolicy
	Logger logger.Logger
	Now    func() time.Time
	NewID  func() string
}

// Store holds the document, its dirty flag and the credential.
// Thread-safe for concurrent WASM callbacks.
type Store struct {
	mu         sync.RWMutex
	doc        *site.Document
	dirty      bool
	generation uint64
	revision   string
	source     InitSource

	mode       config.SessionMode
	remote     config.RemoteConfig
	gw         gateway.Gateway
	cache      store.Cache
	docKey     string
	credential *credential.Slot
	policy     MergePolicy
	redactor   *redact.Redactor
	log        logger.Logger
	now        func() time.Time
	newID      func() string
}

// New creates a Store holding the built-in default document. Call Init to
// load the session's real starting point.
func New(opts Options) *Store {
	if opts.Mode == "" {
		opts.Mode = config.ModeAuthoring
	}
	if opts.Remote.Branch == "" {
		opts.Remote.Branch = config.DefaultBranch
	}
	if opts.Remote.DocumentPath == "" {
		opts.Remote.DocumentPath = config.DefaultDocumentPath
	}
	if opts.Remote.ImagePath == "" {
		opts.Remote.ImagePath = config.DefaultImagePath
	}
	if opts.Remote.CommitMessage == "" {
		opts.Remote.CommitMessage = config.DefaultCommitMessage
	}
	if opts.DocumentKey == "" {
		opts.DocumentKey = config.DefaultDocumentKey
	}
	if opts.CredentialKey == "" {
		opts.CredentialKey = config.DefaultCredentialKey
	}
	if opts.Credential == nil {
		var backend credential.Backend
		if opts.Cache != nil {
			backend = opts.Cache
		}
		opts.Credential = credential.NewSlot(backend, opts.CredentialKey)
	}
	if opts.Policy == nil {
		opts.Policy = DefaultMergePolicy()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Store{
		doc:        site.Default(),
		source:     SourceDefault,
		mode:       opts.Mode,
		remote:     opts.Remote,
		gw:         opts.Gateway,
		cache:      opts.Cache,
		docKey:     opts.DocumentKey,
		credential: opts.Credential,
		policy:     opts.Policy,
		redactor:   redact.MustNew(),
		log:        opts.Logger.With(logger.String("component", "docstore")),
		now:        opts.Now,
		newID:      opts.NewID,
	}
}

// Open is New followed by Init.
func Open(ctx context.Context, opts Options) (*Store, error) {
	s := New(opts)
	if _, err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Init chooses the starting document. An authoring session prefers the
// local cache so unsaved edits survive a reload; a visitor session always
// asks the remote first. Both fall back to the other source and finally
// to the built-in default, so Init only fails when ctx is done.
func (s *Store) Init(ctx context.Context) (InitSource, error) {
	if err := s.credential.Load(); err != nil {
		s.log.Warn("Credential slot unreadable", logger.Error(err))
	}

	order := []InitSource{SourceCache, SourceRemote}
	if s.mode == config.ModeVisitor {
		order = []InitSource{SourceRemote, SourceCache}
	}

	for _, source := range order {
		var (
			doc *site.Document
			rev string
			err error
		)
		switch source {
		case SourceCache:
			doc, err = s.loadCached()
		case SourceRemote:
			doc, rev, _, err = s.fetchRemote(ctx, s.fallbackLocation())
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			s.log.Info("Init source unavailable", logger.String("source", string(source)), logger.Error(err))
			continue
		}

		s.mu.Lock()
		s.doc = doc
		s.revision = rev
		s.source = source
		if source == SourceRemote {
			s.persistLocked("init from remote")
		}
		s.mu.Unlock()

		s.log.Info("Document initialized", logger.String("source", string(source)), logger.String("mode", string(s.mode)))
		return source, nil
	}

	s.log.Info("Document initialized", logger.String("source", string(SourceDefault)), logger.String("mode", string(s.mode)))
	return SourceDefault, nil
}

var errCacheMiss = errors.New("no cached document")

func (s *Store) loadCached() (*site.Document, error) {
	if s.cache == nil {
		return nil, errCacheMiss
	}
	raw, ok, err := s.cache.Get(s.docKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, errCacheMiss
	}
	return site.Parse([]byte(raw))
}

// ============================================================================
// Read access
// ============================================================================

// Document returns a deep copy of the current document.
func (s *Store) Document() *site.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Dirty reports whether the document diverged from the last pushed or
// pulled baseline.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Status is a point-in-time summary for hosts.
type Status struct {
	Mode          config.SessionMode `json:"mode"`
	Source        InitSource         `json:"source"`
	Dirty         bool               `json:"dirty"`
	HasCredential bool               `json:"hasCredential"`
	Configured    bool               `json:"configured"`
	Location      string             `json:"location,omitempty"`
	Revision      string             `json:"revision,omitempty"`
	Posts         int                `json:"posts"`
	Announcements int                `json:"announcements"`
	Messages      int                `json:"messages"`
}

// Status reports the Store's state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Mode:          s.mode,
		Source:        s.source,
		Dirty:         s.dirty,
		HasCredential: s.credential.Present(),
		Revision:      s.revision,
		Posts:         len(s.doc.Posts),
		Announcements: len(s.doc.Announcements),
		Messages:      len(s.doc.Messages),
	}
	if loc, err := s.locationLocked(s.remote.DocumentPath); err == nil {
		st.Configured = true
		st.Location = loc.String()
	}
	return st
}

// ============================================================================
// Credential
// ============================================================================

// SetCredential stores the write token in its own slot. Persisting the
// slot is best-effort.
func (s *Store) SetCredential(token string) error {
	if isBlank(token) {
		return invalid("token", "must not be empty")
	}
	if err := s.credential.Set(token); err != nil {
		s.log.Warn("Credential not persisted", logger.Error(err))
	}
	return nil
}

// ClearCredential forgets the write token.
func (s *Store) ClearCredential() {
	if err := s.credential.Clear(); err != nil {
		s.log.Warn("Credential not removed from cache", logger.Error(err))
	}
}

// HasCredential reports whether a write token is held.
func (s *Store) HasCredential() bool {
	return s.credential.Present()
}

// Token returns the held token for gateway clients. It is never part of
// the document.
func (s *Store) Token() string {
	return s.credential.Token()
}

// ============================================================================
// Location and cache mirroring
// ============================================================================

// locationLocked resolves owner and repo from the document's connection
// fields, falling back to configuration.
func (s *Store) locationLocked(path string) (gateway.Location, error) {
	conn := s.doc.Connection()
	owner := firstNonEmpty(conn.Owner, s.remote.Owner)
	repo := firstNonEmpty(conn.Repo, s.remote.Repo)
	if owner == "" || repo == "" {
		return gateway.Location{}, ErrNotConfigured
	}
	return gateway.Location{Owner: owner, Repo: repo, Branch: s.remote.Branch, Path: path}, nil
}

func (s *Store) location(path string) (gateway.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locationLocked(path)
}

// fallbackLocation is used before any document is loaded.
func (s *Store) fallbackLocation() gateway.Location {
	return gateway.Location{
		Owner:  s.remote.Owner,
		Repo:   s.remote.Repo,
		Branch: s.remote.Branch,
		Path:   s.remote.DocumentPath,
	}
}

func (s *Store) imagePathLocked() string {
	return firstNonEmpty(s.doc.Connection().ImagePath, s.remote.ImagePath)
}

// reasonSetter is implemented by caches that label their versions.
type reasonSetter interface {
	SetWithReason(key, value, reason string) error
}

// persistLocked mirrors the document to the cache. Failures are logged and
// swallowed; the in-memory mutation has already happened.
func (s *Store) persistLocked(reason string) {
	if s.cache == nil {
		return
	}
	data, err := s.doc.Encode()
	if err != nil {
		s.log.Warn("Document not cached", logger.String("reason", reason), logger.Error(err))
		return
	}
	if rs, ok := s.cache.(reasonSetter); ok {
		err = rs.SetWithReason(s.docKey, string(data), reason)
	} else {
		err = s.cache.Set(s.docKey, string(data))
	}
	if err != nil {
		s.log.Warn("Document not cached", logger.String("reason", reason), logger.Error(err))
	}
}

// touchLocked records a mutation.
func (s *Store) touchLocked(reason string) {
	s.dirty = true
	s.generation++
	s.persistLocked(reason)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if !isBlank(v) {
			return v
		}
	}
	return ""
}
