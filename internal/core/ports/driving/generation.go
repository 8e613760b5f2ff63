package driving

import (
	"context"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

// ChunkFunc receives each streamed text delta as it arrives.
type ChunkFunc func(delta string)

// TurnRequest starts one generation round trip for a session.
type TurnRequest struct {
	SessionID string

	// Message is the user's text. Ignored by GenerateDocument and StartGuided.
	Message string

	// DocType is the target document for GenerateDocument and StartGuided.
	DocType string

	// VerifyReport is the raw text of the session's latest verification,
	// appended to the system instruction as grounding.
	VerifyReport string
}

// GenerationOrchestrator drives chat and document generation.
// At most one generation runs per session at a time.
type GenerationOrchestrator interface {
	// Send appends a user message and streams the model's answer.
	// Transport failures are reported in the result, not as an error.
	Send(ctx context.Context, req TurnRequest, onChunk ChunkFunc) (*domain.TurnResult, error)

	// GenerateDocument asks the model to produce or revise req.DocType.
	GenerateDocument(ctx context.Context, req TurnRequest, onChunk ChunkFunc) (*domain.TurnResult, error)

	// StartGuided begins a topic-by-topic interview for req.DocType. The
	// session stays in guided mode, so later Send calls keep the interview
	// instruction, until GenerateDocument or StopGuided.
	StartGuided(ctx context.Context, req TurnRequest, onChunk ChunkFunc) (*domain.TurnResult, error)

	// StopGuided leaves guided mode. Returns false when the session was not
	// guided.
	StopGuided(ctx context.Context, sessionID string) (bool, error)

	// Progress parses the guided self-report from the latest model turn.
	// It is a display hint only.
	Progress(ctx context.Context, sessionID string) (domain.GuidedProgress, bool, error)

	// Cancel stops the session's in-flight generation. Partial output is
	// still finalized. Returns false when nothing was running.
	Cancel(sessionID string) bool

	// Live returns the text accumulated so far by the in-flight generation.
	Live(sessionID string) (string, bool)
}

// VerificationService runs the cross-document verifier. It holds no report
// state; callers pass the current state in and keep the returned copy.
type VerificationService interface {
	// CanVerify reports whether the session has enough documents.
	CanVerify(ctx context.Context, sessionID string) (bool, error)

	// Verify resets the state and analyzes the current document set.
	// Returns domain.ErrInsufficientDocuments without calling the model when
	// fewer than two documents exist.
	Verify(ctx context.Context, sessionID string, state domain.VerifierState, onChunk ChunkFunc) (domain.VerifierState, error)

	// ApplyFix harmonizes the documents against one issue.
	ApplyFix(ctx context.Context, sessionID string, state domain.VerifierState, issueID string, onChunk ChunkFunc) (domain.VerifierState, error)

	// ApplyAll harmonizes the documents against every outstanding
	// non-informational issue in one request.
	ApplyAll(ctx context.Context, sessionID string, state domain.VerifierState, onChunk ChunkFunc) (domain.VerifierState, error)

	// Dismiss hides an issue for the lifetime of the current report.
	Dismiss(state domain.VerifierState, issueID string) (domain.VerifierState, error)
}

// ProxyService is the stateless chat and verify proxy: the caller supplies
// the whole context and receives the raw stream.
type ProxyService interface {
	// Chat streams a reply given the history and existing documents.
	Chat(ctx context.Context, req ChatRequest, onChunk ChunkFunc) error

	// Verify streams a verify or harmonize response.
	Verify(ctx context.Context, req VerifyRequest, onChunk ChunkFunc) error
}

// ChatRequest is the stateless chat payload.
type ChatRequest struct {
	Message      string            `json:"message"`
	History      []HistoryTurn     `json:"history"`
	ExistingDocs map[string]string `json:"existingDocs"`
	VerifyReport string            `json:"verifyReport,omitempty"`
}

// HistoryTurn is one prior turn in the stateless wire format.
type HistoryTurn struct {
	Role  domain.Role `json:"role"`
	Parts []TextPart  `json:"parts"`
}

// TextPart is a text fragment of a turn.
type TextPart struct {
	Text string `json:"text"`
}

// VerifyMode selects analysis or correction.
type VerifyMode string

// Available verify modes.
const (
	VerifyModeVerify    VerifyMode = "verify"
	VerifyModeHarmonize VerifyMode = "harmonize"
)

// VerifyRequest is the stateless verify payload.
type VerifyRequest struct {
	Documents map[string]string `json:"documents"`
	Mode      VerifyMode        `json:"mode"`
	Report    string            `json:"report,omitempty"`
}
