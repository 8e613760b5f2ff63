// Package tui provides an interactive terminal workspace for planning
// sessions: a session list, a streaming chat, a document viewer and the
// cross-document verifier.
package tui

import (
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	Sessions     driving.SessionService
	Generation   driving.GenerationOrchestrator
	Verification driving.VerificationService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Sessions == nil {
		return ErrMissingSessionService
	}
	if p.Generation == nil {
		return ErrMissingGenerationService
	}
	if p.Verification == nil {
		return ErrMissingVerificationService
	}
	return nil
}
