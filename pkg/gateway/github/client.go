// Package github implements gateway.Gateway over the GitHub contents API
// and raw.githubusercontent.com.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tessera-archive/tessera/internal/httpclient"
	"github.com/tessera-archive/tessera/pkg/gateway"
)

const (
	// DefaultAPIBaseURL is the public GitHub REST endpoint.
	DefaultAPIBaseURL = "https://api.github.com"
	// DefaultRawBaseURL serves unauthenticated raw file content.
	DefaultRawBaseURL = "https://raw.githubusercontent.com"

	apiVersion   = "2022-11-28"
	mediaType    = "application/vnd.github+json"
	maxErrorBody = 4 << 10
)

// Doer sends one HTTP request. *http.Client satisfies it; under js/wasm the
// default is a browser fetch adapter.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource yields the current write credential, or "" when none is held.
type TokenSource interface {
	Token() string
}

// Config holds the endpoints. Zero values fall back to the public GitHub hosts.
type Config struct {
	APIBaseURL string
	RawBaseURL string
	Timeout    time.Duration
}

// Client talks to one GitHub-compatible host.
type Client struct {
	apiBase string
	rawBase string
	doer    Doer
	tokens  TokenSource
	now     func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithDoer replaces the HTTP transport.
func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithClock replaces the clock used for cache-busting raw reads.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client. tokens may be nil for read-only use.
func New(cfg Config, tokens TokenSource, opts ...Option) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.RawBaseURL == "" {
		cfg.RawBaseURL = DefaultRawBaseURL
	}
	c := &Client{
		apiBase: strings.TrimRight(cfg.APIBaseURL, "/"),
		rawBase: strings.TrimRight(cfg.RawBaseURL, "/"),
		tokens:  tokens,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = httpclient.NewDoer(httpclient.Config{Timeout: cfg.Timeout})
	}
	return c
}

// ============================================================================
// Wire types
// ============================================================================

type contentResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Type     string `json:"type"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// ============================================================================
// gateway.Gateway
// ============================================================================

// ReadFile fetches content and blob SHA through the contents API.
func (c *Client) ReadFile(ctx context.Context, loc gateway.Location) (*gateway.File, error) {
	endpoint := c.contentsURL(loc) + "?ref=" + url.QueryEscape(loc.Branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("github: build read request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Cache-Control", "no-cache")

	body, err := c.do(req, "read")
	if err != nil {
		return nil, err
	}

	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("github: parse read response: %w", err)
	}
	if resp.Type != "" && resp.Type != "file" {
		return nil, fmt.Errorf("github: %s is a %s, not a file", loc, resp.Type)
	}

	var content []byte
	switch resp.Encoding {
	case "base64":
		content, err = decodeContent(resp.Content)
		if err != nil {
			return nil, fmt.Errorf("github: decode content: %w", err)
		}
	default:
		// Files over 1 MB come back without inline content.
		content, err = c.ReadRaw(ctx, loc)
		if err != nil {
			return nil, err
		}
	}

	return &gateway.File{Content: content, Revision: resp.SHA}, nil
}

// WriteFile replaces the file with a single commit. The SHA precondition is
// sent only when opts.ExpectedRevision is set.
func (c *Client) WriteFile(ctx context.Context, loc gateway.Location, content []byte, opts gateway.WriteOptions) (*gateway.WriteResult, error) {
	if c.token() == "" {
		return nil, fmt.Errorf("%w: no credential", gateway.ErrUnauthorized)
	}

	payload, err := json.Marshal(putRequest{
		Message: opts.Message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     opts.ExpectedRevision,
		Branch:  loc.Branch,
	})
	if err != nil {
		return nil, fmt.Errorf("github: marshal write request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(loc), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("github: build write request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "write")
	if err != nil {
		if errors.Is(err, gateway.ErrConflict) {
			return nil, &gateway.ConflictError{Location: loc, ExpectedRevision: opts.ExpectedRevision}
		}
		return nil, err
	}

	var resp putResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("github: parse write response: %w", err)
	}
	return &gateway.WriteResult{Revision: resp.Content.SHA}, nil
}

// ReadRaw fetches the raw file with a timestamp query so intermediate
// caches never serve a stale copy. The request carries no custom headers:
// the raw host answers simple CORS requests but not preflights.
func (c *Client) ReadRaw(ctx context.Context, loc gateway.Location) ([]byte, error) {
	endpoint := c.RawURL(loc) + "?t=" + strconv.FormatInt(c.now().UnixMilli(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("github: build raw request: %w", err)
	}
	return c.do(req, "raw read")
}

// RawURL returns {raw}/{owner}/{repo}/{branch}/{path}.
func (c *Client) RawURL(loc gateway.Location) string {
	return c.rawBase + "/" + escapePath(loc.Owner) + "/" + escapePath(loc.Repo) + "/" +
		escapePath(loc.Branch) + "/" + escapePath(loc.Path)
}

// ============================================================================
// Helpers
// ============================================================================

func (c *Client) contentsURL(loc gateway.Location) string {
	return c.apiBase + "/repos/" + escapePath(loc.Owner) + "/" + escapePath(loc.Repo) +
		"/contents/" + escapePath(loc.Path)
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Accept", mediaType)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// do sends req and maps non-2xx statuses onto gateway errors.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("github: %s: read body: %w", op, err)
		}
		return body, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := &gateway.StatusError{Op: op, StatusCode: resp.StatusCode, Body: apiMessage(snippet)}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", gateway.ErrNotFound, statusErr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %w", gateway.ErrUnauthorized, statusErr)
	case http.StatusConflict, http.StatusUnprocessableEntity, http.StatusPreconditionFailed:
		return nil, fmt.Errorf("%w: %w", gateway.ErrConflict, statusErr)
	default:
		return nil, statusErr
	}
}

// apiMessage extracts the "message" field of a GitHub error body.
func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

// decodeContent decodes base64 that GitHub wraps at 60 columns.
func decodeContent(s string) ([]byte, error) {
	s = strings.NewReplacer("\n", "", "\r", "").Replace(s)
	return base64.StdEncoding.DecodeString(s)
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

var _ gateway.Gateway = (*Client)(nil)
