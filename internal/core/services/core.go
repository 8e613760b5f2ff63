package services

import (
	"context"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// Deps are the driven adapters the core services run on.
type Deps struct {
	Store     driven.SessionStore
	Prompts   driven.PromptStore
	Templates driven.TemplateStore

	// LLM may be nil; generation then fails with domain.ErrLLMUnavailable.
	LLM driven.GenerationService

	// Images may be nil; image markers are then left unrendered.
	Images driven.ImageGenerator

	Settings domain.AppSettings
}

// Core bundles the services behind the driving ports. The orchestrator and
// the verification engine share one generation gate.
type Core struct {
	Persister    *Persister
	Sessions     *SessionService
	Orchestrator *Orchestrator
	Verification *VerificationEngine
	Proxy        *ProxyService
	Catalog      *CatalogService
	Prompts      *PromptBuilder
}

// NewCore wires the core services.
func NewCore(d Deps) *Core {
	persister := NewPersister(d.Store, d.Settings.Storage.TrimPolicy(), d.Settings.Storage.Debounce)
	sessions := NewSessionService(d.Store, persister)
	prompts := NewPromptBuilder(d.Prompts, d.Templates)
	gate := newGenerationGate()
	images := NewImageRenderer(d.Images, d.Settings.Images.Concurrency)

	return &Core{
		Persister:    persister,
		Sessions:     sessions,
		Orchestrator: NewOrchestrator(sessions, d.LLM, prompts, images, d.Settings.Generation, gate),
		Verification: NewVerificationEngine(sessions, d.LLM, prompts, d.Settings.Generation, gate),
		Proxy:        NewProxyService(d.LLM, prompts, d.Settings.Generation),
		Catalog:      NewCatalogService(d.Templates),
		Prompts:      prompts,
	}
}

// Close flushes pending session writes and stops the persister.
func (c *Core) Close(ctx context.Context) error {
	return c.Persister.Close(ctx)
}
