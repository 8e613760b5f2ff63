package verifier

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// MockVerificationService implements driving.VerificationService for testing.
type MockVerificationService struct {
	VerifyFunc   func(sessionID string, state domain.VerifierState) (domain.VerifierState, error)
	ApplyFixFunc func(sessionID string, state domain.VerifierState, issueID string) (domain.VerifierState, error)
	ApplyAllFunc func(sessionID string, state domain.VerifierState) (domain.VerifierState, error)
}

func (m *MockVerificationService) CanVerify(context.Context, string) (bool, error) {
	return true, nil
}

func (m *MockVerificationService) Verify(
	_ context.Context, sessionID string, state domain.VerifierState, onChunk driving.ChunkFunc,
) (domain.VerifierState, error) {
	onChunk("~~~issues")
	if m.VerifyFunc != nil {
		return m.VerifyFunc(sessionID, state)
	}
	return testReport(), nil
}

func (m *MockVerificationService) ApplyFix(
	_ context.Context, sessionID string, state domain.VerifierState, issueID string, _ driving.ChunkFunc,
) (domain.VerifierState, error) {
	if m.ApplyFixFunc != nil {
		return m.ApplyFixFunc(sessionID, state, issueID)
	}
	return state.MarkApplied(issueID), nil
}

func (m *MockVerificationService) ApplyAll(
	_ context.Context, sessionID string, state domain.VerifierState, _ driving.ChunkFunc,
) (domain.VerifierState, error) {
	if m.ApplyAllFunc != nil {
		return m.ApplyAllFunc(sessionID, state)
	}
	var ids []string
	for _, issue := range state.Outstanding() {
		ids = append(ids, issue.ID)
	}
	return state.MarkApplied(ids...), nil
}

func (m *MockVerificationService) Dismiss(state domain.VerifierState, issueID string) (domain.VerifierState, error) {
	if _, ok := state.Issue(issueID); !ok {
		return state, domain.ErrIssueNotFound
	}
	return state.Dismiss(issueID), nil
}

func testReport() domain.VerifierState {
	return domain.VerifierState{
		Phase:   domain.PhaseReady,
		Summary: "Two issues.",
		Issues: []domain.VerifierIssue{
			{
				ID: "R-001", Severity: domain.SeverityCritical, Title: "Storage mismatch",
				Description: "PRD says offline", Fix: "Add a local cache",
				Evidence: []domain.Evidence{{Doc: "PRD", Quote: "Works offline"}},
			},
			{ID: "R-002", Severity: domain.SeverityInfo, Title: "Naming"},
		},
		RawReport: "raw",
	}
}

// finish runs a verifier command chain until the call completes.
func finish(t *testing.T, v *View, cmd tea.Cmd) *View {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		v, cmd = v.Update(msg)
	}
	require.False(t, v.Busy())
	return v
}

func press(v *View, key string) (*View, tea.Cmd) {
	return v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
}

func newOpenView(svc driving.VerificationService) *View {
	v := NewView(context.Background(), styles.DefaultStyles(), svc)
	v.SetDimensions(100, 30)
	v.Open("s1")
	return v
}

func TestView_InitialState(t *testing.T) {
	v := newOpenView(&MockVerificationService{})

	assert.False(t, v.State().HasReport())
	assert.Contains(t, v.View(), "Press v")
	_, ok := v.SelectedIssue()
	assert.False(t, ok)
}

func TestView_VerifyShowsReport(t *testing.T) {
	var gotSession string
	v := newOpenView(&MockVerificationService{
		VerifyFunc: func(id string, _ domain.VerifierState) (domain.VerifierState, error) {
			gotSession = id
			return testReport(), nil
		},
	})

	v, cmd := press(v, "v")
	require.True(t, v.Busy())
	assert.Contains(t, v.View(), "Working...")
	v = finish(t, v, cmd)

	assert.Equal(t, "s1", gotSession)
	require.Len(t, v.State().Issues, 2)
	out := v.View()
	assert.Contains(t, out, "Two issues.")
	assert.Contains(t, out, "Storage mismatch")
	assert.Contains(t, out, "Add a local cache")
	assert.Contains(t, out, "Works offline")
}

func TestView_VerifyError(t *testing.T) {
	v := newOpenView(&MockVerificationService{
		VerifyFunc: func(_ string, state domain.VerifierState) (domain.VerifierState, error) {
			return state, domain.ErrInsufficientDocuments
		},
	})

	v, cmd := press(v, "v")
	v = finish(t, v, cmd)

	assert.ErrorIs(t, v.Err(), domain.ErrInsufficientDocuments)
	assert.Contains(t, v.View(), "Error:")
}

func TestView_ApplyFixOnSelected(t *testing.T) {
	var applied string
	v := newOpenView(&MockVerificationService{
		ApplyFixFunc: func(_ string, state domain.VerifierState, id string) (domain.VerifierState, error) {
			applied = id
			return state.MarkApplied(id), nil
		},
	})
	v, cmd := press(v, "v")
	v = finish(t, v, cmd)

	v, cmd = press(v, "a")
	v = finish(t, v, cmd)

	assert.Equal(t, "R-001", applied)
	assert.True(t, v.State().IsApplied("R-001"))
	assert.Contains(t, v.View(), "applied")
}

func TestView_ApplyAllSkipsWhenNothingOutstanding(t *testing.T) {
	calls := 0
	v := newOpenView(&MockVerificationService{
		ApplyAllFunc: func(_ string, state domain.VerifierState) (domain.VerifierState, error) {
			calls++
			return state.MarkApplied("R-001"), nil
		},
	})
	v, cmd := press(v, "v")
	v = finish(t, v, cmd)

	v, cmd = press(v, "A")
	v = finish(t, v, cmd)
	assert.Equal(t, 1, calls)

	_, cmd = press(v, "A")
	assert.Nil(t, cmd)
	assert.Equal(t, 1, calls)
}

func TestView_DismissSelected(t *testing.T) {
	v := newOpenView(&MockVerificationService{})
	v, cmd := press(v, "v")
	v = finish(t, v, cmd)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	issue, ok := v.SelectedIssue()
	require.True(t, ok)
	assert.Equal(t, "R-002", issue.ID)

	v, cmd = press(v, "x")
	assert.Nil(t, cmd)
	assert.True(t, v.State().IsDismissed("R-002"))
	assert.NoError(t, v.Err())
}

func TestView_OpenKeepsReportForSameSession(t *testing.T) {
	v := newOpenView(&MockVerificationService{})
	v, cmd := press(v, "v")
	v = finish(t, v, cmd)

	v.Open("s1")
	assert.True(t, v.State().HasReport())

	v.Open("s2")
	assert.False(t, v.State().HasReport())
}

func TestView_EscReturnsToChat(t *testing.T) {
	v := newOpenView(&MockVerificationService{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewChat}, cmd())
}
