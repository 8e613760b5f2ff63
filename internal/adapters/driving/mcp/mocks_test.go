package mcp

import (
	"context"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	sessions map[string]*domain.Session
	err      error
}

func (m *mockSessionService) Create(context.Context, string) (*domain.Session, error) {
	return nil, m.err
}

func (m *mockSessionService) Get(_ context.Context, id string) (*domain.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *mockSessionService) List(context.Context) ([]domain.SessionSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.SessionSummary
	for _, s := range m.sessions {
		out = append(out, s.Summary())
	}
	return out, nil
}

func (m *mockSessionService) Rename(context.Context, string, string) error { return m.err }

func (m *mockSessionService) Delete(context.Context, string) error { return m.err }

func (m *mockSessionService) EditDocument(context.Context, string, string, string) (*domain.Session, error) {
	return nil, m.err
}

func (m *mockSessionService) History(context.Context, string, string) ([]domain.DocVersion, error) {
	return nil, m.err
}

func (m *mockSessionService) CompareVersion(context.Context, string, string, int) (*domain.VersionDiff, error) {
	return nil, m.err
}

func (m *mockSessionService) RestoreVersion(context.Context, string, string, int) (*domain.Session, error) {
	return nil, m.err
}

func (m *mockSessionService) Flush(context.Context) error { return m.err }

// mockVerificationService is a mock implementation of driving.VerificationService.
type mockVerificationService struct {
	state     domain.VerifierState
	err       error
	sessionID string
}

func (m *mockVerificationService) CanVerify(context.Context, string) (bool, error) {
	return true, m.err
}

func (m *mockVerificationService) Verify(_ context.Context, id string, _ domain.VerifierState, _ driving.ChunkFunc) (domain.VerifierState, error) {
	m.sessionID = id
	return m.state, m.err
}

func (m *mockVerificationService) ApplyFix(_ context.Context, _ string, s domain.VerifierState, _ string, _ driving.ChunkFunc) (domain.VerifierState, error) {
	return s, m.err
}

func (m *mockVerificationService) ApplyAll(_ context.Context, _ string, s domain.VerifierState, _ driving.ChunkFunc) (domain.VerifierState, error) {
	return s, m.err
}

func (m *mockVerificationService) Dismiss(s domain.VerifierState, _ string) (domain.VerifierState, error) {
	return s, m.err
}

func testSessions() *mockSessionService {
	s := domain.NewSession("s1", "Checkout", domainTime)
	s.Documents["PRD"] = "# PRD"
	s.Documents["Tech Spec"] = "# Spec"
	return &mockSessionService{sessions: map[string]*domain.Session{"s1": s}}
}
