package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

type createSessionRequest struct {
	Name string `json:"name"`
}

type renameRequest struct {
	Name string `json:"name" binding:"required"`
}

type editDocumentRequest struct {
	Content string `json:"content"`
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

type docTypeRequest struct {
	DocType string `json:"docType" binding:"required"`
}

// bind decodes the JSON body, answering 400 on failure.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abortWithError(c, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
		return false
	}
	return true
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: version index must be a number", domain.ErrInvalidInput))
		return 0, false
	}
	return index, true
}

// Proxy handlers

func (s *Server) handleProxyChat(c *gin.Context) {
	var req driving.ChatRequest
	if !bind(c, &req) {
		return
	}
	stream(c, func(onChunk driving.ChunkFunc) (any, error) {
		return nil, s.ports.Proxy.Chat(c.Request.Context(), req, onChunk)
	})
}

func (s *Server) handleProxyVerify(c *gin.Context) {
	var req driving.VerifyRequest
	if !bind(c, &req) {
		return
	}
	stream(c, func(onChunk driving.ChunkFunc) (any, error) {
		return nil, s.ports.Proxy.Verify(c.Request.Context(), req, onChunk)
	})
}

func (s *Server) handleDocTypes(c *gin.Context) {
	var docs map[string]string
	if id := c.Query("session"); id != "" {
		session, err := s.ports.Sessions.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		docs = session.Documents
	}
	c.JSON(http.StatusOK, gin.H{"docTypes": s.ports.Catalog.DocTypes(docs)})
}

// Session handlers

func (s *Server) handleListSessions(c *gin.Context) {
	sessions, err := s.ports.Sessions.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if sessions == nil {
		sessions = []domain.SessionSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	// An empty body creates an unnamed session.
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	session, err := s.ports.Sessions.Create(c.Request.Context(), req.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, err := s.ports.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleRenameSession(c *gin.Context) {
	var req renameRequest
	if !bind(c, &req) {
		return
	}
	if err := s.ports.Sessions.Rename(c.Request.Context(), c.Param("id"), req.Name); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	s.ports.Generation.Cancel(id)
	if err := s.ports.Sessions.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	s.states.drop(id)
	c.Status(http.StatusNoContent)
}

// Document handlers

func (s *Server) handleEditDocument(c *gin.Context) {
	var req editDocumentRequest
	if !bind(c, &req) {
		return
	}
	session, err := s.ports.Sessions.EditDocument(c.Request.Context(), c.Param("id"), c.Param("type"), req.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleHistory(c *gin.Context) {
	versions, err := s.ports.Sessions.History(c.Request.Context(), c.Param("id"), c.Param("type"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if versions == nil {
		versions = []domain.DocVersion{}
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (s *Server) handleCompare(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	diff, err := s.ports.Sessions.CompareVersion(c.Request.Context(), c.Param("id"), c.Param("type"), index)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, diff)
}

func (s *Server) handleRestore(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	session, err := s.ports.Sessions.RestoreVersion(c.Request.Context(), c.Param("id"), c.Param("type"), index)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Generation handlers

func (s *Server) handleSend(c *gin.Context) {
	var req messageRequest
	if !bind(c, &req) {
		return
	}
	id := c.Param("id")
	s.streamTurn(c, s.ports.Generation.Send, driving.TurnRequest{
		SessionID:    id,
		Message:      req.Message,
		VerifyReport: s.states.report(id),
	})
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req docTypeRequest
	if !bind(c, &req) {
		return
	}
	id := c.Param("id")
	s.streamTurn(c, s.ports.Generation.GenerateDocument, driving.TurnRequest{
		SessionID:    id,
		DocType:      req.DocType,
		VerifyReport: s.states.report(id),
	})
}

func (s *Server) handleStartGuided(c *gin.Context) {
	var req docTypeRequest
	if !bind(c, &req) {
		return
	}
	s.streamTurn(c, s.ports.Generation.StartGuided, driving.TurnRequest{
		SessionID: c.Param("id"),
		DocType:   req.DocType,
	})
}

type turnFunc func(ctx context.Context, req driving.TurnRequest, onChunk driving.ChunkFunc) (*domain.TurnResult, error)

func (s *Server) streamTurn(c *gin.Context, run turnFunc, req driving.TurnRequest) {
	stream(c, func(onChunk driving.ChunkFunc) (any, error) {
		result, err := run(c.Request.Context(), req, onChunk)
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

func (s *Server) handleGuidedProgress(c *gin.Context) {
	progress, ok, err := s.ports.Generation.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"reported": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reported":    true,
		"covered":     progress.Covered,
		"total":       progress.Total,
		"percent":     progress.Percent(),
		"canGenerate": progress.CanGenerate(),
		"ready":       progress.Ready(),
	})
}

func (s *Server) handleStopGuided(c *gin.Context) {
	stopped, err := s.ports.Generation.StopGuided(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": stopped})
}

func (s *Server) handleCancel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": s.ports.Generation.Cancel(c.Param("id"))})
}

func (s *Server) handleLive(c *gin.Context) {
	text, ok := s.ports.Generation.Live(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"streaming": ok, "text": text})
}

// Verifier handlers

func (s *Server) handleVerifierState(c *gin.Context) {
	id := c.Param("id")
	can, err := s.ports.Verification.CanVerify(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"canVerify": can,
		"state":     s.states.get(id),
	})
}

func (s *Server) handleVerify(c *gin.Context) {
	id := c.Param("id")
	s.streamVerifier(c, id, func(state domain.VerifierState, onChunk driving.ChunkFunc) (domain.VerifierState, error) {
		return s.ports.Verification.Verify(c.Request.Context(), id, state, onChunk)
	})
}

func (s *Server) handleApplyFix(c *gin.Context) {
	id := c.Param("id")
	issue := c.Param("issue")
	s.streamVerifier(c, id, func(state domain.VerifierState, onChunk driving.ChunkFunc) (domain.VerifierState, error) {
		return s.ports.Verification.ApplyFix(c.Request.Context(), id, state, issue, onChunk)
	})
}

func (s *Server) handleApplyAll(c *gin.Context) {
	id := c.Param("id")
	s.streamVerifier(c, id, func(state domain.VerifierState, onChunk driving.ChunkFunc) (domain.VerifierState, error) {
		return s.ports.Verification.ApplyAll(c.Request.Context(), id, state, onChunk)
	})
}

type verifierFunc func(state domain.VerifierState, onChunk driving.ChunkFunc) (domain.VerifierState, error)

// streamVerifier runs op against the stored state and keeps the result.
// A second verifier stream for the same session is rejected.
func (s *Server) streamVerifier(c *gin.Context, id string, op verifierFunc) {
	stream(c, func(onChunk driving.ChunkFunc) (any, error) {
		state, err := s.states.tryUpdate(id, func(state domain.VerifierState) (domain.VerifierState, error) {
			return op(state, onChunk)
		})
		if err != nil {
			return nil, err
		}
		return state, nil
	})
}

// handleDismiss waits for a running verifier stream so the dismissal
// applies to its result.
func (s *Server) handleDismiss(c *gin.Context) {
	id := c.Param("id")
	issue := c.Param("issue")
	state, err := s.states.update(c.Request.Context(), id, func(state domain.VerifierState) (domain.VerifierState, error) {
		return s.ports.Verification.Dismiss(state, issue)
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
