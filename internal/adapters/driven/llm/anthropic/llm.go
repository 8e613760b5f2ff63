// Package anthropic provides a streaming LLM adapter for the Anthropic API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
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
	DefaultBaseURL        = "https://api.anthropic.com"
	DefaultModel          = "claude-3-5-sonnet-latest"
	DefaultConnectTimeout = 30 * time.Second

	// defaultMaxTokens is used when the request sets no limit; the API requires one.
	defaultMaxTokens = 8192

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"

	providerName = "anthropic"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// ConnectTimeout bounds the wait for response headers (default: 30s).
	ConnectTimeout time.Duration
}

// LLMService streams completions from the Anthropic Messages API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature"`
	Stream      bool              `json:"stream"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamEvent covers the event payloads the adapter reads.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
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

// Stream starts a streaming /v1/messages call.
func (s *LLMService) Stream(ctx context.Context, req driven.GenerationRequest) (driven.TextStream, error) {
	model := req.Model
	if model == "" {
		model = s.model
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]messagesMessage, 0, len(req.History)+1)
	for _, turn := range req.History {
		messages = append(messages, messagesMessage{Role: roleFor(turn.Role), Content: turn.Text})
	}
	messages = append(messages, messagesMessage{Role: "user", Content: req.Message})

	jsonBody, err := json.Marshal(messagesRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		System:      req.SystemInstruction,
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-api-key", s.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if err := streaming.CheckResponse(providerName, resp); err != nil {
		return nil, err
	}

	events := streaming.NewSSEReader(resp.Body)
	return streaming.NewBodyStream(ctx, resp.Body, func() (string, error) {
		ev, err := events.Next()
		if errors.Is(err, io.EOF) {
			return "", streaming.ErrUnexpectedEOF
		}
		if err != nil {
			return "", err
		}
		var payload streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return "", fmt.Errorf("decode event: %w", err)
		}
		switch payload.Type {
		case "content_block_delta":
			if payload.Delta.Type == "text_delta" {
				return payload.Delta.Text, nil
			}
		case "message_stop":
			return "", io.EOF
		case "error":
			if payload.Error != nil {
				return "", fmt.Errorf("anthropic error (%s): %s", payload.Error.Type, payload.Error.Message)
			}
			return "", errors.New("anthropic error")
		}
		return "", nil
	}), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /v1/models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
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
		return "assistant"
	}
	return "user"
}
