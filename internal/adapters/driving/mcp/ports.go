package mcp

import (
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server uses.
type Ports struct {
	// Sessions reads sessions and documents.
	Sessions driving.SessionService

	// Verification runs cross-document checks. Optional; without it the
	// verify_session tool reports that no model is configured.
	Verification driving.VerificationService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Sessions == nil {
		return ErrMissingSessionService
	}
	return nil
}
