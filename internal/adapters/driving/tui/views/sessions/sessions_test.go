package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// MockSessionService implements the session calls the list makes.
type MockSessionService struct {
	driving.SessionService

	ListFunc   func(ctx context.Context) ([]domain.SessionSummary, error)
	CreateFunc func(ctx context.Context, name string) (*domain.Session, error)
	DeleteFunc func(ctx context.Context, id string) error
}

func (m *MockSessionService) List(ctx context.Context) ([]domain.SessionSummary, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockSessionService) Create(ctx context.Context, name string) (*domain.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, name)
	}
	return &domain.Session{ID: "new", Name: domain.DefaultSessionName}, nil
}

func (m *MockSessionService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func testSummaries() []domain.SessionSummary {
	now := time.Now()
	return []domain.SessionSummary{
		{ID: "s1", Name: "Billing", UpdatedAt: now, DocumentCount: 2},
		{ID: "s2", Name: "Search", UpdatedAt: now.Add(-time.Hour)},
	}
}

func newLoadedView(t *testing.T, svc *MockSessionService) *View {
	t.Helper()
	v := NewView(context.Background(), styles.DefaultStyles(), svc)
	msg := v.Init()()
	v, _ = v.Update(msg)
	return v
}

func TestView_InitLoadsSessions(t *testing.T) {
	v := newLoadedView(t, &MockSessionService{
		ListFunc: func(context.Context) ([]domain.SessionSummary, error) { return testSummaries(), nil },
	})

	require.Len(t, v.Sessions(), 2)
	assert.NoError(t, v.Err())
	out := v.View()
	assert.Contains(t, out, "Billing")
	assert.Contains(t, out, "Search")
}

func TestView_EmptyList(t *testing.T) {
	v := newLoadedView(t, &MockSessionService{})

	_, ok := v.Selected()
	assert.False(t, ok)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestView_LoadError(t *testing.T) {
	v := newLoadedView(t, &MockSessionService{
		ListFunc: func(context.Context) ([]domain.SessionSummary, error) { return nil, errors.New("disk gone") },
	})

	assert.EqualError(t, v.Err(), "disk gone")
	assert.Contains(t, v.View(), "disk gone")
}

func TestView_NavigationAndOpen(t *testing.T) {
	v := newLoadedView(t, &MockSessionService{
		ListFunc: func(context.Context) ([]domain.SessionSummary, error) { return testSummaries(), nil },
	})

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	s, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, "s2", s.ID)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyUp})
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.SessionOpened{ID: "s1"}, cmd())
}

func TestView_CreateOpensNewSession(t *testing.T) {
	var gotName *string
	v := newLoadedView(t, &MockSessionService{
		CreateFunc: func(_ context.Context, name string) (*domain.Session, error) {
			gotName = &name
			return &domain.Session{ID: "fresh"}, nil
		},
	})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	require.NotNil(t, cmd)
	created := cmd()
	require.IsType(t, messages.SessionCreated{}, created)
	require.NotNil(t, gotName)
	assert.Empty(t, *gotName)

	_, cmd = v.Update(created)
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)

	var opened bool
	for _, c := range batch {
		if msg, ok := c().(messages.SessionOpened); ok {
			assert.Equal(t, "fresh", msg.ID)
			opened = true
		}
	}
	assert.True(t, opened)
}

func TestView_DeleteReloads(t *testing.T) {
	var deleted string
	v := newLoadedView(t, &MockSessionService{
		ListFunc: func(context.Context) ([]domain.SessionSummary, error) { return testSummaries(), nil },
		DeleteFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, "s1", deleted)

	_, cmd = v.Update(msg)
	require.NotNil(t, cmd)
	assert.IsType(t, messages.SessionsLoaded{}, cmd())
}

func TestView_SelectionClampsAfterShrink(t *testing.T) {
	v := newLoadedView(t, &MockSessionService{
		ListFunc: func(context.Context) ([]domain.SessionSummary, error) { return testSummaries(), nil },
	})
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})

	v, _ = v.Update(messages.SessionsLoaded{Sessions: testSummaries()[:1]})

	s, ok := v.Selected()
	require.True(t, ok)
	assert.Equal(t, "s1", s.ID)
}
