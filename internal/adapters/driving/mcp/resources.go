package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for SpecForge resources.
const uriScheme = "specforge://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sessions",
		Name:        "sessions",
		Description: "All planning sessions",
		MIMEType:    "application/json",
	}, s.handleSessionsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sessions/{sessionId}/documents/{docType}",
		Name:        "session-document",
		Description: "Markdown of one document in a session",
		MIMEType:    "text/markdown",
	}, s.handleDocumentResource)
}

func (s *Server) handleSessionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sessions, err := s.ports.Sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling sessions: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sessionID, docType := parseDocumentURI(req.Params.URI)
	if sessionID == "" || docType == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	session, err := s.ports.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	content, ok := session.Documents[docType]
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     content,
		}},
	}, nil
}

// parseDocumentURI splits specforge://sessions/{id}/documents/{docType}.
// The document type may be percent-encoded.
func parseDocumentURI(uri string) (sessionID, docType string) {
	const prefix = uriScheme + "sessions/"
	const marker = "/documents/"

	rest, ok := strings.CutPrefix(uri, prefix)
	if !ok {
		return "", ""
	}
	sessionID, encoded, ok := strings.Cut(rest, marker)
	if !ok || sessionID == "" || strings.Contains(sessionID, "/") {
		return "", ""
	}
	docType, err := url.PathUnescape(encoded)
	if err != nil {
		return "", ""
	}
	return sessionID, docType
}
