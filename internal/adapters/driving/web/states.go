package web

import (
	"context"
	"sync"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

// verifierStates keeps the latest verifier state per session. Updates for
// one session run one at a time so a dismissal is never overwritten by a
// harmonize that read the state before it.
type verifierStates struct {
	mu     sync.Mutex
	states map[string]domain.VerifierState
	slots  map[string]chan struct{}
}

func (s *verifierStates) get(sessionID string) domain.VerifierState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[sessionID]; ok {
		return state.Clone()
	}
	return domain.NewVerifierState()
}

func (s *verifierStates) put(sessionID string, state domain.VerifierState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states == nil {
		s.states = make(map[string]domain.VerifierState)
	}
	s.states[sessionID] = state.Clone()
}

func (s *verifierStates) drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
}

// report returns the raw report used to ground chat turns.
func (s *verifierStates) report(sessionID string) string {
	state := s.get(sessionID)
	if !state.HasReport() {
		return ""
	}
	return state.RawReport
}

func (s *verifierStates) slot(sessionID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slots == nil {
		s.slots = make(map[string]chan struct{})
	}
	ch, ok := s.slots[sessionID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.slots[sessionID] = ch
	}
	return ch
}

// tryUpdate runs fn on the current state and stores the result. It fails
// with domain.ErrGenerationInProgress while another update for the session
// is running.
func (s *verifierStates) tryUpdate(
	sessionID string,
	fn func(domain.VerifierState) (domain.VerifierState, error),
) (domain.VerifierState, error) {
	slot := s.slot(sessionID)
	select {
	case slot <- struct{}{}:
	default:
		return domain.VerifierState{}, domain.ErrGenerationInProgress
	}
	defer func() { <-slot }()
	return s.apply(sessionID, fn)
}

// update is tryUpdate that waits for a running update to finish.
func (s *verifierStates) update(
	ctx context.Context,
	sessionID string,
	fn func(domain.VerifierState) (domain.VerifierState, error),
) (domain.VerifierState, error) {
	slot := s.slot(sessionID)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return domain.VerifierState{}, ctx.Err()
	}
	defer func() { <-slot }()
	return s.apply(sessionID, fn)
}

func (s *verifierStates) apply(
	sessionID string,
	fn func(domain.VerifierState) (domain.VerifierState, error),
) (domain.VerifierState, error) {
	next, err := fn(s.get(sessionID))
	if err != nil {
		return domain.VerifierState{}, err
	}
	s.put(sessionID, next)
	return next.Clone(), nil
}
