// Package mcp exposes SpecForge sessions to AI assistants over the Model
// Context Protocol.
package mcp

import "errors"

// ErrMissingSessionService is returned when the session service is not provided.
var ErrMissingSessionService = errors.New("mcp: session service is required")
