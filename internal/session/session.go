// Package session wires a configured Document Store: cache, credential
// slot, GitHub gateway and the optional insight service. Both the CLI and
// the WASM bridge start here.
package session

import (
	"context"
	"fmt"

	"github.com/tessera-archive/tessera/internal/config"
	"github.com/tessera-archive/tessera/internal/logger"
	"github.com/tessera-archive/tessera/internal/store"
	"github.com/tessera-archive/tessera/pkg/credential"
	"github.com/tessera-archive/tessera/pkg/docstore"
	"github.com/tessera-archive/tessera/pkg/gateway"
	"github.com/tessera-archive/tessera/pkg/gateway/github"
	"github.com/tessera-archive/tessera/pkg/insight"
)

// Session is an initialized store plus the services around it.
type Session struct {
	Config  *config.Config
	Log     logger.Logger
	Cache   store.Cache
	Store   *docstore.Store
	Insight *insight.Service
	Source  docstore.InitSource
}

type options struct {
	log     logger.Logger
	gateway gateway.Gateway
	cache   store.Cache
	insight *insight.Service
}

// Option customizes Open.
type Option func(*options)

// WithLogger uses log instead of building one from cfg.Log.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithCache uses c instead of opening cfg.Cache.
func WithCache(c store.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithGateway replaces the GitHub client.
func WithGateway(gw gateway.Gateway) Option {
	return func(o *options) { o.gateway = gw }
}

// WithInsight replaces the service built from cfg.Insight.
func WithInsight(svc *insight.Service) Option {
	return func(o *options) { o.insight = svc }
}

// Open validates cfg, opens the cache and initializes the store.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	log := o.log
	if log == nil {
		var err error
		if log, err = logger.New(cfg.Log); err != nil {
			return nil, fmt.Errorf("session: logger: %w", err)
		}
	}

	cache := o.cache
	if cache == nil {
		var err error
		if cache, err = store.Open(cfg.Cache); err != nil {
			return nil, fmt.Errorf("session: cache: %w", err)
		}
	}

	slot := credential.NewSlot(cache, cfg.Cache.CredentialKey)

	gw := o.gateway
	if gw == nil {
		gw = github.New(github.Config{
			APIBaseURL: cfg.Remote.APIBaseURL,
			RawBaseURL: cfg.Remote.RawBaseURL,
			Timeout:    cfg.Remote.Timeout,
		}, slot)
	}

	st := docstore.New(docstore.Options{
		Mode:          cfg.Session.Mode,
		Remote:        cfg.Remote,
		Gateway:       gw,
		Cache:         cache,
		DocumentKey:   cfg.Cache.DocumentKey,
		CredentialKey: cfg.Cache.CredentialKey,
		Credential:    slot,
		Logger:        log,
	})
	source, err := st.Init(ctx)
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("session: init: %w", err)
	}

	svc := o.insight
	if svc == nil {
		svc = insight.New(cfg.Insight, cfg.Remote.Timeout)
	}

	log.Info("Session ready",
		logger.String("mode", string(cfg.Session.Mode)),
		logger.String("cache", string(cfg.Cache.Driver)),
		logger.String("source", string(source)),
	)

	return &Session{
		Config:  cfg,
		Log:     log,
		Cache:   cache,
		Store:   st,
		Insight: svc,
		Source:  source,
	}, nil
}

// Close flushes the logger and closes the cache.
func (s *Session) Close() error {
	_ = s.Log.Sync()
	return s.Cache.Close()
}
