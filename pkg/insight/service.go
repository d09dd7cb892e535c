// Package insight rewrites archive drafts in a curatorial register using the
// Google Generative Language API.
//
// The service is optional and sits outside the document sync cycle: it
// returns text and the caller decides whether to store it.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tessera-archive/tessera/internal/config"
	"github.com/tessera-archive/tessera/internal/httpclient"
)

// DefaultBaseURL is the public Generative Language endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

const (
	temperature  = 0.8
	topP         = 0.95
	maxErrorBody = 4 << 10
)

var (
	ErrNotConfigured = errors.New("insight: api key not configured")
	ErrEmptyInput    = errors.New("insight: title and content are required")
	ErrEmptyResponse = errors.New("insight: empty response")
)

// Service handles enhancement requests.
type Service struct {
	apiKey  string
	model   string
	baseURL string
	doer    httpclient.Doer
}

// Option customizes a Service.
type Option func(*Service)

// WithDoer replaces the HTTP transport.
func WithDoer(d httpclient.Doer) Option {
	return func(s *Service) { s.doer = d }
}

// WithBaseURL points the service at another host.
func WithBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = strings.TrimRight(u, "/") }
}

// New creates a service from config.
func New(cfg config.InsightConfig, timeout time.Duration, opts ...Option) *Service {
	s := &Service{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: DefaultBaseURL,
	}
	if s.model == "" {
		s.model = config.DefaultInsightModel
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.doer == nil {
		s.doer = httpclient.NewDoer(httpclient.Config{Timeout: timeout})
	}
	return s
}

// IsConfigured reports whether an API key is set.
func (s *Service) IsConfigured() bool {
	return s.apiKey != ""
}

// Model returns the model requests are sent to.
func (s *Service) Model() string {
	return s.model
}

// ============================================================================
// Wire types
// ============================================================================

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"topP,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ============================================================================
// Enhance
// ============================================================================

const systemPrompt = "Sen TESSERA arşivinin küratörüsün. Arkeolojik kayıtları profesyonel, " +
	"küratöryel bir dille ve bilimsel bir gizem havasıyla yeniden yazarsın. " +
	"Arkeolojik terminolojiyi doğru kullan. Yanıt yalnızca Türkçe metin olmalı."

func userPrompt(title, body string) string {
	return fmt.Sprintf("Başlık: %s\nHam kayıt: %s\n\nYalnızca geliştirilmiş metni döndür.", title, body)
}

// Enhance returns a rewritten version of a post's content.
func (s *Service) Enhance(ctx context.Context, title, body string) (string, error) {
	if !s.IsConfigured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(body) == "" {
		return "", ErrEmptyInput
	}

	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: userPrompt(title, body)}},
		}},
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
		GenerationConfig:  &generationConfig{Temperature: temperature, TopP: topP},
	})
	if err != nil {
		return "", fmt.Errorf("insight: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.baseURL, url.PathEscape(s.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("insight: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.doer.Do(req)
	if err != nil {
		return "", fmt.Errorf("insight: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("insight: read response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("insight: status %d: %s", resp.StatusCode, truncate(raw))
		}
		return "", fmt.Errorf("insight: parse response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("insight: api error %d: %s", out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("insight: status %d", resp.StatusCode)
	}

	if len(out.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return strings.TrimSpace(string(b))
}
