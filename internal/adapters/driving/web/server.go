package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/specforge/internal/logger"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// maxBodySize caps request bodies. Document sets are sent whole.
const maxBodySize = 8 << 20

// Server is the SpecForge HTTP server.
type Server struct {
	ports  *Ports
	router *gin.Engine
	states verifierStates
}

// NewServer creates a server exposing ports.
func NewServer(ports *Ports) (*Server, error) {
	if ports == nil || ports.Sessions == nil || ports.Generation == nil ||
		ports.Verification == nil || ports.Proxy == nil || ports.Catalog == nil {
		return nil, errors.New("web: all ports are required")
	}

	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), limitBody(maxBodySize))

	s := &Server{ports: ports, router: router}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	api := s.router.Group("/api")
	{
		api.POST("/chat", s.handleProxyChat)
		api.POST("/verify", s.handleProxyVerify)
		api.GET("/doctypes", s.handleDocTypes)

		api.GET("/sessions", s.handleListSessions)
		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions/:id", s.handleGetSession)
		api.PATCH("/sessions/:id", s.handleRenameSession)
		api.DELETE("/sessions/:id", s.handleDeleteSession)

		api.PUT("/sessions/:id/documents/:type", s.handleEditDocument)
		api.GET("/sessions/:id/documents/:type/history", s.handleHistory)
		api.GET("/sessions/:id/documents/:type/history/:index/diff", s.handleCompare)
		api.POST("/sessions/:id/documents/:type/history/:index/restore", s.handleRestore)

		api.POST("/sessions/:id/messages", s.handleSend)
		api.POST("/sessions/:id/generate", s.handleGenerate)
		api.POST("/sessions/:id/guided", s.handleStartGuided)
		api.GET("/sessions/:id/guided", s.handleGuidedProgress)
		api.DELETE("/sessions/:id/guided", s.handleStopGuided)
		api.POST("/sessions/:id/cancel", s.handleCancel)
		api.GET("/sessions/:id/live", s.handleLive)

		api.GET("/sessions/:id/verifier", s.handleVerifierState)
		api.POST("/sessions/:id/verifier", s.handleVerify)
		api.POST("/sessions/:id/verifier/apply", s.handleApplyAll)
		api.POST("/sessions/:id/verifier/issues/:issue/apply", s.handleApplyFix)
		api.POST("/sessions/:id/verifier/issues/:issue/dismiss", s.handleDismiss)
	}
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
