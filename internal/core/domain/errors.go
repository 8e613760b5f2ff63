package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMUnavailable indicates the generation service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrGenerationInProgress indicates a generation is already streaming for the session.
	// Only one generation or verification may be in flight per session.
	ErrGenerationInProgress = errors.New("generation in progress")

	// ErrInsufficientDocuments indicates verification was requested with fewer
	// than MinVerifyDocuments documents.
	ErrInsufficientDocuments = errors.New("at least two documents are required")

	// ErrGuidedUnavailable indicates the document type has no guided checklist.
	ErrGuidedUnavailable = errors.New("guided mode unavailable for document type")

	// ErrIssueNotFound indicates an issue id is not part of the current report
	// or was already dismissed or applied.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrVerifierNotReady indicates a fix was requested before a report exists.
	ErrVerifierNotReady = errors.New("verification report not ready")
)
