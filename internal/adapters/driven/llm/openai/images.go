package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/specforge/internal/adapters/driven/llm/streaming"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// Ensure ImageService implements the interface.
var _ driven.ImageGenerator = (*ImageService)(nil)

// Image defaults.
const (
	DefaultImageModel   = "dall-e-3"
	DefaultImageSize    = "1024x1024"
	DefaultImageTimeout = 2 * time.Minute
)

// ImageConfig holds configuration for the image service.
type ImageConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string

	// Timeout bounds one generation request (default: 2m).
	Timeout time.Duration
}

// ImageService renders images with the /images/generations endpoint.
type ImageService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	size    string
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

// NewImageService creates a new image service.
func NewImageService(cfg ImageConfig) (*ImageService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultImageModel
	}
	if cfg.Size == "" {
		cfg.Size = DefaultImageSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultImageTimeout
	}

	return &ImageService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		size:    cfg.Size,
	}, nil
}

// Generate returns a data: URL with the rendered PNG, or the hosted URL when
// the endpoint returns one instead.
func (s *ImageService) Generate(ctx context.Context, prompt string) (string, error) {
	jsonBody, err := json.Marshal(imageRequest{
		Model:          s.model,
		Prompt:         prompt,
		N:              1,
		Size:           s.size,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/images/generations", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	if err := streaming.CheckResponse(providerName, resp); err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openai error: %s", out.Error.Message)
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("openai: no image returned")
	}

	if img := out.Data[0]; img.B64JSON != "" {
		return "data:image/png;base64," + img.B64JSON, nil
	} else if img.URL != "" {
		return img.URL, nil
	}
	return "", fmt.Errorf("openai: empty image payload")
}
