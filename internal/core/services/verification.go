package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/custodia-labs/specforge/internal/blocks"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
	"github.com/custodia-labs/specforge/internal/logger"
)

// Ensure VerificationEngine implements the interface.
var _ driving.VerificationService = (*VerificationEngine)(nil)

// errNoHarmonizedDocs is recorded when a harmonize stream held no ~~~doc blocks.
var errNoHarmonizedDocs = errors.New("harmonize returned no documents")

// VerificationEngine cross-checks a session's documents and applies fixes.
// It keeps no report state; VerifierState is owned by the caller.
type VerificationEngine struct {
	sessions *SessionService
	llm      driven.GenerationService
	prompts  *PromptBuilder
	settings domain.GenerationSettings
	gate     *generationGate
}

// NewVerificationEngine creates a verification engine.
func NewVerificationEngine(
	sessions *SessionService,
	llm driven.GenerationService,
	prompts *PromptBuilder,
	settings domain.GenerationSettings,
	gate *generationGate,
) *VerificationEngine {
	return &VerificationEngine{
		sessions: sessions,
		llm:      llm,
		prompts:  prompts,
		settings: settings,
		gate:     gate,
	}
}

// CanVerify reports whether the session has enough documents.
func (e *VerificationEngine) CanVerify(ctx context.Context, sessionID string) (bool, error) {
	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return len(session.Documents) >= domain.MinVerifyDocuments, nil
}

// Verify analyzes the current document set.
// Transport failures return phase idle with LastError set and a nil error.
func (e *VerificationEngine) Verify(
	ctx context.Context,
	sessionID string,
	state domain.VerifierState,
	onChunk driving.ChunkFunc,
) (domain.VerifierState, error) {
	if e.llm == nil {
		return state, domain.ErrLLMUnavailable
	}
	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return state, err
	}
	if len(session.Documents) < domain.MinVerifyDocuments {
		return state, domain.ErrInsufficientDocuments
	}

	runCtx, release, err := e.gate.acquire(ctx, sessionID, "verify")
	if err != nil {
		return state, err
	}
	defer release()
	defer logger.Elapsed("verify "+sessionID, time.Now())

	state = state.Reset()
	state.Phase = domain.PhaseVerifying

	system, message, err := e.prompts.VerifyPrompt(session.Documents)
	if err != nil {
		return state.Reset(), err
	}

	text, outcome, streamErr := collect(runCtx, e.llm, driven.GenerationRequest{
		SystemInstruction: system,
		Temperature:       e.settings.VerifyTemperature,
		MaxOutputTokens:   e.settings.MaxOutputTokens,
		Message:           message,
	}, func(chunk string) { e.gate.append(sessionID, chunk) }, onChunk)

	if outcome != streamCompleted {
		logger.Warn("verify for session %s did not complete: %v", sessionID, streamErr)
		failed := state.Reset()
		failed.LastError = errorText(outcome, streamErr)
		return failed, nil
	}

	issues, parseErr := blocks.ExtractIssues(text)
	if parseErr != nil {
		logger.Warn("verify for session %s: issues block unusable: %v", sessionID, parseErr)
	}

	state.Phase = domain.PhaseReady
	state.Issues = issues
	state.Summary = blocks.ParseSummary(text)
	state.RawReport = text
	logger.Info("verify for session %s found %d issues", sessionID, len(issues))
	return state, nil
}

// ApplyFix harmonizes the documents against one issue.
func (e *VerificationEngine) ApplyFix(
	ctx context.Context,
	sessionID string,
	state domain.VerifierState,
	issueID string,
	onChunk driving.ChunkFunc,
) (domain.VerifierState, error) {
	if !state.HasReport() {
		return state, domain.ErrVerifierNotReady
	}
	issue, ok := state.Issue(issueID)
	if !ok {
		return state, fmt.Errorf("%w: %s", domain.ErrIssueNotFound, issueID)
	}
	return e.harmonize(ctx, sessionID, state, []domain.VerifierIssue{issue}, onChunk)
}

// ApplyAll harmonizes against every outstanding non-informational issue in
// a single request. With nothing outstanding the state is returned as is.
func (e *VerificationEngine) ApplyAll(
	ctx context.Context,
	sessionID string,
	state domain.VerifierState,
	onChunk driving.ChunkFunc,
) (domain.VerifierState, error) {
	if !state.HasReport() {
		return state, domain.ErrVerifierNotReady
	}
	issues := state.Outstanding()
	if len(issues) == 0 {
		return state, nil
	}
	return e.harmonize(ctx, sessionID, state, issues, onChunk)
}

// Dismiss hides an issue for the lifetime of the current report.
func (e *VerificationEngine) Dismiss(state domain.VerifierState, issueID string) (domain.VerifierState, error) {
	if _, ok := state.Issue(issueID); !ok {
		return state, fmt.Errorf("%w: %s", domain.ErrIssueNotFound, issueID)
	}
	return state.Dismiss(issueID), nil
}

// harmonize snapshots the whole current document set once, then streams a
// correction and merges the returned documents without further snapshots.
// On failure the previous report is returned in phase ready for retry.
func (e *VerificationEngine) harmonize(
	ctx context.Context,
	sessionID string,
	state domain.VerifierState,
	issues []domain.VerifierIssue,
	onChunk driving.ChunkFunc,
) (domain.VerifierState, error) {
	if e.llm == nil {
		return state, domain.ErrLLMUnavailable
	}

	runCtx, release, err := e.gate.acquire(ctx, sessionID, "harmonize")
	if err != nil {
		return state, err
	}
	defer release()
	defer logger.Elapsed("harmonize "+sessionID, time.Now())

	finalCtx := context.WithoutCancel(ctx)
	retry := state.Clone()
	retry.Phase = domain.PhaseReady

	var docs map[string]string
	_, err = e.sessions.mutate(finalCtx, sessionID, func(s *domain.Session, now time.Time) error {
		docs = maps.Clone(s.Documents)
		s.SnapshotVersions(docs, domain.SourceHarmonized, now)
		return nil
	})
	if err != nil {
		return retry, err
	}

	system, message, err := e.prompts.HarmonizePrompt(docs, FormatIssueReport(issues))
	if err != nil {
		return retry, err
	}

	text, outcome, streamErr := collect(runCtx, e.llm, driven.GenerationRequest{
		SystemInstruction: system,
		Temperature:       e.settings.VerifyTemperature,
		MaxOutputTokens:   e.settings.MaxOutputTokens,
		Message:           message,
	}, func(chunk string) { e.gate.append(sessionID, chunk) }, onChunk)

	parsed := blocks.ParseDocumentBlocks(text)
	if len(parsed.Documents) == 0 {
		if outcome == streamCompleted {
			streamErr = errNoHarmonizedDocs
		}
		logger.Warn("harmonize for session %s: %v", sessionID, streamErr)
		retry.LastError = errorText(outcome, streamErr)
		return retry, nil
	}

	_, err = e.sessions.mutate(finalCtx, sessionID, func(s *domain.Session, now time.Time) error {
		s.MergeDocuments(parsed.Documents, now)
		return nil
	})
	if err != nil {
		return retry, err
	}

	ids := make([]string, len(issues))
	for i, issue := range issues {
		ids[i] = issue.ID
	}
	done := state.MarkApplied(ids...)
	done.Phase = domain.PhaseDone
	done.LastError = ""
	logger.Info("harmonize for session %s applied %v, rewrote %v", sessionID, ids, domain.SortedKeys(parsed.Documents))
	return done, nil
}

func errorText(outcome streamOutcome, err error) string {
	switch {
	case outcome == streamCancelled:
		return "cancelled"
	case err != nil:
		return err.Error()
	default:
		return ""
	}
}
