// Package gemini provides a streaming LLM adapter for the Gemini API.
package gemini

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

	"github.com/custodia-labs/specforge/internal/adapters/driven/llm/streaming"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.GenerationService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"

	// DefaultConnectTimeout bounds the wait for response headers. The body
	// of a streaming response has no deadline other than the context.
	DefaultConnectTimeout = 30 * time.Second

	providerName = "gemini"
)

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://generativelanguage.googleapis.com).
	BaseURL string

	// Model is the model to use (default: gemini-2.0-flash).
	Model string

	// ConnectTimeout bounds the wait for response headers (default: 30s).
	ConnectTimeout time.Duration
}

// LLMService streams completions from Gemini.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// generateRequest is the streamGenerateContent request body.
type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// generateChunk is one SSE payload of a streamGenerateContent response.
type generateChunk struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	return &LLMService{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: cfg.ConnectTimeout,
			},
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Stream starts a streamGenerateContent call.
func (s *LLMService) Stream(ctx context.Context, req driven.GenerationRequest) (driven.TextStream, error) {
	model := req.Model
	if model == "" {
		model = s.model
	}

	body := generateRequest{
		Contents: make([]content, 0, len(req.History)+1),
		GenerationConfig: generationConfig{
			Temperature:     &req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}
	for _, turn := range req.History {
		body.Contents = append(body.Contents, content{Role: roleFor(turn.Role), Parts: []part{{Text: turn.Text}}})
	}
	body.Contents = append(body.Contents, content{Role: "user", Parts: []part{{Text: req.Message}}})

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", s.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if err := streaming.CheckResponse(providerName, resp); err != nil {
		return nil, err
	}

	events := streaming.NewSSEReader(resp.Body)
	finished := false
	return streaming.NewBodyStream(ctx, resp.Body, func() (string, error) {
		ev, err := events.Next()
		if err != nil {
			if errors.Is(err, io.EOF) && !finished {
				return "", streaming.ErrUnexpectedEOF
			}
			return "", err
		}
		var chunk generateChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return "", fmt.Errorf("decode chunk: %w", err)
		}
		if chunk.Error != nil {
			return "", fmt.Errorf("gemini error (%s): %s", chunk.Error.Status, chunk.Error.Message)
		}
		var text strings.Builder
		for _, c := range chunk.Candidates {
			for _, p := range c.Content.Parts {
				text.WriteString(p.Text)
			}
			if c.FinishReason != "" {
				finished = true
			}
		}
		return text.String(), nil
	}), nil
}

// ModelName returns the name of the model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by fetching the configured model's metadata.
func (s *LLMService) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s", s.baseURL, url.PathEscape(s.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("gemini: failed to create ping request: %w", err)
	}
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	if err := streaming.CheckResponse(providerName, resp); err != nil {
		return err
	}
	return resp.Body.Close()
}

// Close releases resources.
func (s *LLMService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func roleFor(r domain.Role) string {
	if r == domain.RoleModel {
		return "model"
	}
	return "user"
}
