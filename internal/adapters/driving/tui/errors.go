package tui

import "errors"

// ErrMissingSessionService is returned when the session service is not provided.
var ErrMissingSessionService = errors.New("tui: session service is required")

// ErrMissingGenerationService is returned when the orchestrator is not provided.
var ErrMissingGenerationService = errors.New("tui: generation service is required")

// ErrMissingVerificationService is returned when the verifier is not provided.
var ErrMissingVerificationService = errors.New("tui: verification service is required")
