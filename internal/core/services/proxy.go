package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// Ensure ProxyService implements the interface.
var _ driving.ProxyService = (*ProxyService)(nil)

// ProxyService streams stateless chat and verify requests. The caller owns
// all state and does its own parsing.
type ProxyService struct {
	llm      driven.GenerationService
	prompts  *PromptBuilder
	settings domain.GenerationSettings
}

// NewProxyService creates a proxy service.
func NewProxyService(llm driven.GenerationService, prompts *PromptBuilder, settings domain.GenerationSettings) *ProxyService {
	return &ProxyService{llm: llm, prompts: prompts, settings: settings}
}

// Chat streams a reply given the caller's history and documents.
func (p *ProxyService) Chat(ctx context.Context, req driving.ChatRequest, onChunk driving.ChunkFunc) error {
	if p.llm == nil {
		return domain.ErrLLMUnavailable
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}

	system, err := p.prompts.SystemInstruction(req.ExistingDocs, req.VerifyReport)
	if err != nil {
		return err
	}

	history := make([]driven.Turn, 0, len(req.History))
	for _, h := range req.History {
		var text strings.Builder
		for _, part := range h.Parts {
			text.WriteString(part.Text)
		}
		history = append(history, driven.Turn{Role: h.Role, Text: text.String()})
	}

	return p.stream(ctx, driven.GenerationRequest{
		SystemInstruction: system,
		Temperature:       p.settings.Temperature,
		MaxOutputTokens:   p.settings.MaxOutputTokens,
		History:           history,
		Message:           req.Message,
	}, onChunk)
}

// Verify streams a verify or harmonize response.
func (p *ProxyService) Verify(ctx context.Context, req driving.VerifyRequest, onChunk driving.ChunkFunc) error {
	if p.llm == nil {
		return domain.ErrLLMUnavailable
	}

	var (
		system, message string
		err             error
	)
	switch req.Mode {
	case driving.VerifyModeVerify, "":
		if len(req.Documents) < domain.MinVerifyDocuments {
			return domain.ErrInsufficientDocuments
		}
		system, message, err = p.prompts.VerifyPrompt(req.Documents)
	case driving.VerifyModeHarmonize:
		if strings.TrimSpace(req.Report) == "" {
			return fmt.Errorf("%w: report is required for harmonize", domain.ErrInvalidInput)
		}
		system, message, err = p.prompts.HarmonizePrompt(req.Documents, req.Report)
	default:
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, req.Mode)
	}
	if err != nil {
		return err
	}

	return p.stream(ctx, driven.GenerationRequest{
		SystemInstruction: system,
		Temperature:       p.settings.VerifyTemperature,
		MaxOutputTokens:   p.settings.MaxOutputTokens,
		Message:           message,
	}, onChunk)
}

func (p *ProxyService) stream(ctx context.Context, req driven.GenerationRequest, onChunk driving.ChunkFunc) error {
	_, outcome, err := collect(ctx, p.llm, req, nil, onChunk)
	if outcome == streamFailed {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if outcome == streamCancelled {
		return ctx.Err()
	}
	return nil
}
