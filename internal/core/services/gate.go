package services

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

// activeGeneration is one in-flight stream for a session.
type activeGeneration struct {
	kind   string
	cancel context.CancelFunc
	buf    strings.Builder
}

// generationGate allows at most one generation, verification or
// harmonization per session. A cancelled stream keeps the gate until its
// finalization has run, so a newer operation can never be overwritten by
// the late completion of an aborted one.
type generationGate struct {
	mu     sync.RWMutex
	active map[string]*activeGeneration
}

func newGenerationGate() *generationGate {
	return &generationGate{active: make(map[string]*activeGeneration)}
}

// acquire claims the session and returns a context cancelled by cancel.
// The returned release func must be called exactly once.
func (g *generationGate) acquire(ctx context.Context, sessionID, kind string) (context.Context, func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[sessionID]; busy {
		return nil, nil, domain.ErrGenerationInProgress
	}

	runCtx, cancel := context.WithCancel(ctx)
	g.active[sessionID] = &activeGeneration{kind: kind, cancel: cancel}

	release := func() {
		cancel()
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.active, sessionID)
	}
	return runCtx, release, nil
}

// cancel aborts the session's in-flight stream.
func (g *generationGate) cancel(sessionID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	a, ok := g.active[sessionID]
	if !ok {
		return false
	}
	a.cancel()
	return true
}

// append records streamed text for live display.
func (g *generationGate) append(sessionID, chunk string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if a, ok := g.active[sessionID]; ok {
		a.buf.WriteString(chunk)
	}
}

// live returns the accumulated text and the kind of the in-flight stream.
func (g *generationGate) live(sessionID string) (text, kind string, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	a, ok := g.active[sessionID]
	if !ok {
		return "", "", false
	}
	return a.buf.String(), a.kind, true
}
