package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

// ListSessionsInput is the input schema for list_sessions.
type ListSessionsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of sessions to return, most recent first (default 20)"`
}

// ListSessionsOutput is the output schema for list_sessions.
type ListSessionsOutput struct {
	Sessions []domain.SessionSummary `json:"sessions"`
	Count    int                     `json:"count"`
}

// ReadDocumentInput is the input schema for read_document.
type ReadDocumentInput struct {
	SessionID string `json:"session_id" jsonschema:"the session id"`
	DocType   string `json:"doc_type,omitempty" jsonschema:"document type such as PRD; omit to list the session's documents"`
}

// ReadDocumentOutput is the output schema for read_document.
type ReadDocumentOutput struct {
	SessionName string   `json:"session_name"`
	DocType     string   `json:"doc_type,omitempty"`
	Content     string   `json:"content,omitempty"`
	Available   []string `json:"available"`
}

// VerifySessionInput is the input schema for verify_session.
type VerifySessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session whose documents are cross-checked"`
}

// VerifySessionOutput is the output schema for verify_session.
type VerifySessionOutput struct {
	Summary string                 `json:"summary"`
	Issues  []domain.VerifierIssue `json:"issues"`
	Error   string                 `json:"error,omitempty"`
}

const defaultListLimit = 20

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List planning sessions, most recently updated first",
	}, s.handleListSessions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "read_document",
		Description: "Read a planning document (PRD, Architecture, ...) from a session",
	}, s.handleReadDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "verify_session",
		Description: "Cross-check a session's documents for contradictions and gaps",
	}, s.handleVerifySession)
}

func (s *Server) handleListSessions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListSessionsInput,
) (*mcp.CallToolResult, ListSessionsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	sessions, err := s.ports.Sessions.List(ctx)
	if err != nil {
		return nil, ListSessionsOutput{}, fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	if sessions == nil {
		sessions = []domain.SessionSummary{}
	}
	return nil, ListSessionsOutput{Sessions: sessions, Count: len(sessions)}, nil
}

func (s *Server) handleReadDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReadDocumentInput,
) (*mcp.CallToolResult, ReadDocumentOutput, error) {
	session, err := s.ports.Sessions.Get(ctx, input.SessionID)
	if err != nil {
		return nil, ReadDocumentOutput{}, fmt.Errorf("reading session: %w", err)
	}

	out := ReadDocumentOutput{
		SessionName: session.Name,
		Available:   domain.SortedKeys(session.Documents),
	}
	if input.DocType == "" {
		return nil, out, nil
	}

	content, ok := session.Documents[input.DocType]
	if !ok {
		return nil, ReadDocumentOutput{}, fmt.Errorf("%w: document %q in session %s", domain.ErrNotFound, input.DocType, input.SessionID)
	}
	out.DocType = input.DocType
	out.Content = content
	return nil, out, nil
}

func (s *Server) handleVerifySession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input VerifySessionInput,
) (*mcp.CallToolResult, VerifySessionOutput, error) {
	if s.ports.Verification == nil {
		return nil, VerifySessionOutput{}, domain.ErrLLMUnavailable
	}

	state, err := s.ports.Verification.Verify(ctx, input.SessionID, domain.NewVerifierState(), nil)
	if err != nil {
		return nil, VerifySessionOutput{}, fmt.Errorf("verifying session: %w", err)
	}

	issues := state.Issues
	if issues == nil {
		issues = []domain.VerifierIssue{}
	}
	return nil, VerifySessionOutput{
		Summary: state.Summary,
		Issues:  issues,
		Error:   state.LastError,
	}, nil
}
