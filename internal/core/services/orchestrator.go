package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/specforge/internal/blocks"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
	"github.com/custodia-labs/specforge/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.GenerationOrchestrator = (*Orchestrator)(nil)

// ConnectionErrorMessage is the model turn recorded when the generation
// service cannot be reached.
const ConnectionErrorMessage = "Connection error: the model could not be reached. Please try again."

// Orchestrator runs chat and document generation round trips and folds the
// result back into the session.
type Orchestrator struct {
	sessions *SessionService
	llm      driven.GenerationService
	prompts  *PromptBuilder
	images   *ImageRenderer
	settings domain.GenerationSettings
	gate     *generationGate
}

// NewOrchestrator creates a generation orchestrator. images may be nil.
// gate is shared with the verification engine so only one stream touches a
// session at a time.
func NewOrchestrator(
	sessions *SessionService,
	llm driven.GenerationService,
	prompts *PromptBuilder,
	images *ImageRenderer,
	settings domain.GenerationSettings,
	gate *generationGate,
) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		llm:      llm,
		prompts:  prompts,
		images:   images,
		settings: settings,
		gate:     gate,
	}
}

// turnKind selects how a round trip treats guided mode.
type turnKind int

const (
	turnChat     turnKind = iota // keeps the current mode
	turnDocument                 // leaves guided mode
	turnGuided                   // enters guided mode for req.DocType
)

// Send appends a user message and streams the model's answer. While the
// session is guided the interview instruction is kept in the system prompt.
func (o *Orchestrator) Send(ctx context.Context, req driving.TurnRequest, onChunk driving.ChunkFunc) (*domain.TurnResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	return o.run(ctx, req, req.Message, turnChat, onChunk)
}

// GenerateDocument asks for req.DocType with a directive chosen by what exists.
// It ends any guided interview.
func (o *Orchestrator) GenerateDocument(ctx context.Context, req driving.TurnRequest, onChunk driving.ChunkFunc) (*domain.TurnResult, error) {
	docType := strings.TrimSpace(req.DocType)
	if docType == "" {
		return nil, fmt.Errorf("%w: document type is required", domain.ErrInvalidInput)
	}
	session, err := o.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	req.DocType = docType
	return o.run(ctx, req, o.prompts.DocumentDirective(docType, session.Documents), turnDocument, onChunk)
}

// StartGuided begins a topic-by-topic interview for req.DocType.
func (o *Orchestrator) StartGuided(ctx context.Context, req driving.TurnRequest, onChunk driving.ChunkFunc) (*domain.TurnResult, error) {
	req.DocType = strings.TrimSpace(req.DocType)
	_, opener, err := o.prompts.GuidedInstruction(req.DocType)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, req, opener, turnGuided, onChunk)
}

// StopGuided leaves guided mode without a model call.
func (o *Orchestrator) StopGuided(ctx context.Context, sessionID string) (bool, error) {
	var stopped bool
	_, err := o.sessions.mutate(ctx, sessionID, func(s *domain.Session, now time.Time) error {
		stopped = s.StopGuided(now)
		return nil
	})
	if err != nil {
		return false, err
	}
	if stopped {
		logger.Info("guided mode ended for session %s", sessionID)
	}
	return stopped, nil
}

// Progress parses the guided self-report from the latest model turn.
func (o *Orchestrator) Progress(ctx context.Context, sessionID string) (domain.GuidedProgress, bool, error) {
	session, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.GuidedProgress{}, false, err
	}
	msg, ok := session.LastModelMessage()
	if !ok {
		return domain.GuidedProgress{}, false, nil
	}
	p, ok := blocks.ParseProgress(msg.Content)
	return p, ok, nil
}

// Cancel stops the session's in-flight generation.
func (o *Orchestrator) Cancel(sessionID string) bool {
	ok := o.gate.cancel(sessionID)
	if ok {
		logger.Info("cancelling generation for session %s", sessionID)
	}
	return ok
}

// Live returns the text accumulated so far by the in-flight generation.
func (o *Orchestrator) Live(sessionID string) (string, bool) {
	text, _, ok := o.gate.live(sessionID)
	return text, ok
}

// run performs one round trip. The gate is held until finalization is done.
func (o *Orchestrator) run(
	ctx context.Context,
	req driving.TurnRequest,
	message string,
	kind turnKind,
	onChunk driving.ChunkFunc,
) (*domain.TurnResult, error) {
	if o.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	runCtx, release, err := o.gate.acquire(ctx, req.SessionID, "generate")
	if err != nil {
		return nil, err
	}
	defer release()
	defer logger.Elapsed("generation "+req.SessionID, time.Now())

	// Finalization must outlive a cancelled request.
	finalCtx := context.WithoutCancel(ctx)

	var genReq driven.GenerationRequest
	_, err = o.sessions.mutate(finalCtx, req.SessionID, func(s *domain.Session, now time.Time) error {
		system, err := o.prompts.SystemInstruction(s.Documents, req.VerifyReport)
		if err != nil {
			return err
		}
		guided, err := o.guidedMode(s, req.DocType, kind, now)
		if err != nil {
			return err
		}
		if guided != "" {
			system += "\n\n" + guided
		}
		genReq = driven.GenerationRequest{
			SystemInstruction: system,
			Temperature:       o.settings.Temperature,
			MaxOutputTokens:   o.settings.MaxOutputTokens,
			History:           historyOf(s.Messages),
			Message:           message,
		}
		s.AppendMessage(domain.Message{
			ID:        uuid.NewString(),
			Role:      domain.RoleUser,
			Content:   message,
			CreatedAt: now,
		}, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	text, outcome, streamErr := collect(runCtx, o.llm, genReq,
		func(chunk string) { o.gate.append(req.SessionID, chunk) }, onChunk)

	result := &domain.TurnResult{}
	switch outcome {
	case streamCancelled:
		logger.Info("generation cancelled for session %s after %d bytes", req.SessionID, len(text))
		result.Cancelled = true
	case streamFailed:
		logger.Warn("generation failed for session %s: %v", req.SessionID, streamErr)
		if strings.TrimSpace(text) == "" {
			return o.recordFailure(finalCtx, req.SessionID)
		}
		result.Interrupted = true
	}

	if strings.TrimSpace(text) == "" {
		return result, nil
	}
	if err := o.finalize(finalCtx, req.SessionID, text, result); err != nil {
		return nil, err
	}
	return result, nil
}

// guidedMode applies kind to the session's guided state and returns the
// interview instruction to append, if any. A session whose docType lost its
// topic checklist drops out of guided mode. The session is only changed
// once nothing can fail.
func (o *Orchestrator) guidedMode(s *domain.Session, docType string, kind turnKind, now time.Time) (string, error) {
	target := s.GuidedDocType
	switch kind {
	case turnDocument:
		target = ""
	case turnGuided:
		target = docType
	}

	var system string
	if target != "" {
		instruction, _, err := o.prompts.GuidedInstruction(target)
		switch {
		case errors.Is(err, domain.ErrGuidedUnavailable) && kind == turnChat:
			logger.Warn("session %s: %v, leaving guided mode", s.ID, err)
			target = ""
		case err != nil:
			return "", err
		default:
			system = instruction
		}
	}

	switch {
	case target == s.GuidedDocType:
	case target == "":
		s.StopGuided(now)
	default:
		s.StartGuided(target, now)
	}
	return system, nil
}

// finalize parses the accumulated text, merges documents, appends the model
// turn and renders images. It runs once per round trip.
func (o *Orchestrator) finalize(ctx context.Context, sessionID, text string, result *domain.TurnResult) error {
	parsed := blocks.ParseDocumentBlocks(text)

	msg := domain.Message{
		ID:      uuid.NewString(),
		Role:    domain.RoleModel,
		Content: parsed.CleanText,
	}
	_, err := o.sessions.mutate(ctx, sessionID, func(s *domain.Session, now time.Time) error {
		result.Changed = s.ApplyChanges(parsed.Documents, domain.SourceGenerated, now)
		msg.CreatedAt = now
		s.AppendMessage(msg, now)
		return nil
	})
	if err != nil {
		return fmt.Errorf("finalize generation: %w", err)
	}
	if len(result.Changed) > 0 {
		logger.Info("session %s: updated %s", sessionID, strings.Join(result.Changed, ", "))
	}

	if prompts := blocks.ParseImageMarkers(parsed.CleanText); len(prompts) > 0 && o.images != nil {
		msg.Images = o.images.Render(ctx, prompts)
		_, err := o.sessions.mutate(ctx, sessionID, func(s *domain.Session, now time.Time) error {
			for i := range s.Messages {
				if s.Messages[i].ID == msg.ID {
					s.Messages[i].Images = msg.Images
				}
			}
			return nil
		})
		if err != nil {
			logger.Warn("attach images to session %s: %v", sessionID, err)
		}
	}

	result.Message = msg
	return nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, sessionID string) (*domain.TurnResult, error) {
	msg := domain.Message{
		ID:      uuid.NewString(),
		Role:    domain.RoleModel,
		Content: ConnectionErrorMessage,
	}
	_, err := o.sessions.mutate(ctx, sessionID, func(s *domain.Session, now time.Time) error {
		msg.CreatedAt = now
		s.AppendMessage(msg, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &domain.TurnResult{Message: msg, Failed: true}, nil
}

func historyOf(messages []domain.Message) []driven.Turn {
	turns := make([]driven.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, driven.Turn{Role: m.Role, Text: m.Content})
	}
	return turns
}
