// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/specforge/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/specforge/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/specforge/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/specforge/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/specforge/internal/adapters/driven/llm/streaming"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	LLMService     driven.GenerationService
	ImageGenerator driven.ImageGenerator // Nil unless images are enabled and supported.
	Warnings       []string              // Non-fatal issues.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates the generation and image services for settings. A missing
// or unusable LLM configuration is not an error: the result carries a nil
// LLMService and a warning, and callers surface ErrLLMUnavailable per call.
func Init(settings *domain.AppSettings) *InitResult {
	result := &InitResult{}

	svc, err := CreateLLMService(&settings.LLM)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
	case svc == nil:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("LLM provider %s is not configured. Run 'specforge settings llm' to fix", settings.LLM.Provider))
	default:
		result.LLMService = streaming.WithRateLimit(svc, settings.Generation.RequestsPerMinute)
	}

	if settings.Images.Enabled {
		gen, err := CreateImageGenerator(&settings.LLM, &settings.Images)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("images disabled: %v", err))
		} else {
			result.ImageGenerator = gen
		}
	}

	return result
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.GenerationService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'specforge settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'specforge settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// This is intended for use in the settings command to validate credentials on configuration.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.GenerationService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return geminillm.NewLLMService(geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateImageGenerator creates an image generator. Only providers with an
// image endpoint are supported.
func CreateImageGenerator(llm *domain.LLMSettings, images *domain.ImageSettings) (driven.ImageGenerator, error) {
	if !llm.Provider.SupportsImages() {
		return nil, fmt.Errorf("%s does not support image generation, use openai", llm.Provider)
	}
	return openaillm.NewImageService(openaillm.ImageConfig{
		APIKey:  llm.APIKey,
		BaseURL: llm.BaseURL,
		Model:   images.Model,
	})
}
