package chat

import (
	"context"
	"errors"
	"sync"
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

// MockSessionService serves one in-memory session.
type MockSessionService struct {
	driving.SessionService

	mu      sync.Mutex
	session *domain.Session
	err     error
}

func (m *MockSessionService) Get(_ context.Context, _ string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.session.Clone(), nil
}

// MockOrchestrator records turn requests and replays a fixed reply.
type MockOrchestrator struct {
	mu        sync.Mutex
	sessions  *MockSessionService
	reply     string
	calls     []string
	requests  []driving.TurnRequest
	cancelled []string
	progress  *domain.GuidedProgress
}

func (m *MockOrchestrator) turn(kind string, req driving.TurnRequest, onChunk driving.ChunkFunc) (*domain.TurnResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, kind)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	onChunk(m.reply)
	msg := domain.Message{Role: domain.RoleModel, Content: m.reply}

	m.sessions.mu.Lock()
	now := time.Now()
	switch kind {
	case "guided":
		m.sessions.session.StartGuided(req.DocType, now)
	case "generate":
		m.sessions.session.StopGuided(now)
	}
	if req.Message != "" {
		m.sessions.session.AppendMessage(domain.Message{Role: domain.RoleUser, Content: req.Message}, now)
	}
	m.sessions.session.AppendMessage(msg, now)
	m.sessions.mu.Unlock()

	return &domain.TurnResult{Message: msg, Changed: []string{"PRD"}}, nil
}

func (m *MockOrchestrator) Send(_ context.Context, req driving.TurnRequest, onChunk driving.ChunkFunc) (*domain.TurnResult, error) {
	return m.turn("send", req, onChunk)
}

func (m *MockOrchestrator) GenerateDocument(
	_ context.Context, req driving.TurnRequest, onChunk driving.ChunkFunc,
) (*domain.TurnResult, error) {
	return m.turn("generate", req, onChunk)
}

func (m *MockOrchestrator) StartGuided(_ context.Context, req driving.TurnRequest, onChunk driving.ChunkFunc) (*domain.TurnResult, error) {
	return m.turn("guided", req, onChunk)
}

func (m *MockOrchestrator) StopGuided(context.Context, string) (bool, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "stop")
	m.mu.Unlock()

	m.sessions.mu.Lock()
	defer m.sessions.mu.Unlock()
	return m.sessions.session.StopGuided(time.Now()), nil
}

func (m *MockOrchestrator) Progress(context.Context, string) (domain.GuidedProgress, bool, error) {
	if m.progress == nil {
		return domain.GuidedProgress{}, false, nil
	}
	return *m.progress, true, nil
}

func (m *MockOrchestrator) Cancel(sessionID string) bool {
	m.cancelled = append(m.cancelled, sessionID)
	return false
}

func (m *MockOrchestrator) Live(string) (string, bool) { return "", false }

func newTestView(t *testing.T) (*View, *MockOrchestrator) {
	t.Helper()
	sessions := &MockSessionService{session: domain.NewSession("s1", "Billing", time.Now())}
	gen := &MockOrchestrator{sessions: sessions, reply: "Drafted.\n~~~doc:PRD\n# PRD\nGoals\n~~~"}
	v := NewView(context.Background(), styles.DefaultStyles(), sessions, gen)
	v.SetDimensions(100, 30)
	v = process(v, v.load("s1"))
	require.NotNil(t, v.Session())
	return v, gen
}

// process runs cmd and feeds every resulting message back into the view.
func process(v *View, cmd tea.Cmd) *View {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if msg == nil {
			continue
		}
		var next tea.Cmd
		v, next = v.Update(msg)
		queue = append(queue, next)
	}
	return v
}

func submit(v *View, line string) *View {
	v.input.SetValue(line)
	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return process(v, cmd)
}

func TestView_EmptySessionHint(t *testing.T) {
	v, _ := newTestView(t)

	out := v.View()
	assert.Contains(t, out, "Billing")
	assert.Contains(t, out, "Describe what you want to build.")
}

func TestView_SendStreamsAndReloads(t *testing.T) {
	v, gen := newTestView(t)

	v = submit(v, "Write a PRD")

	assert.Equal(t, []string{"send"}, gen.calls)
	assert.Equal(t, "Write a PRD", gen.requests[0].Message)
	assert.False(t, v.Streaming())
	require.Len(t, v.Session().Messages, 2)

	out := v.View()
	assert.Contains(t, out, "Drafted.")
	assert.Contains(t, out, "[PRD: 2 lines]")
	assert.Contains(t, out, "Updated: PRD")
	assert.Empty(t, v.input.Value())
}

func TestView_Commands(t *testing.T) {
	tests := []struct {
		line    string
		kind    string
		docType string
		message string
	}{
		{line: "/generate Architecture", kind: "generate", docType: "Architecture"},
		{line: "/guided PRD", kind: "guided", docType: "PRD"},
		{line: "/generate", kind: "send", message: "/generate"},
		{line: "hello there", kind: "send", message: "hello there"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			v, gen := newTestView(t)

			submit(v, tt.line)

			require.Len(t, gen.requests, 1)
			assert.Equal(t, tt.kind, gen.calls[0])
			assert.Equal(t, tt.docType, gen.requests[0].DocType)
			assert.Equal(t, tt.message, gen.requests[0].Message)
			assert.Equal(t, "s1", gen.requests[0].SessionID)
		})
	}
}

func TestView_ReportGroundsTurns(t *testing.T) {
	v, gen := newTestView(t)
	v.SetReport("~~~issues\n[]\n~~~")

	submit(v, "fix it")

	require.Len(t, gen.requests, 1)
	assert.Equal(t, "~~~issues\n[]\n~~~", gen.requests[0].VerifyReport)
}

func TestView_BlankInputIgnored(t *testing.T) {
	v, gen := newTestView(t)

	submit(v, "   ")

	assert.Empty(t, gen.calls)
}

func TestView_GuidedProgressShown(t *testing.T) {
	v, gen := newTestView(t)
	gen.progress = &domain.GuidedProgress{Covered: 3, Total: 4}

	v = submit(v, "/guided PRD")

	assert.Contains(t, v.View(), "Coverage 75% (3/4 topics)")
}

func TestView_StopCancels(t *testing.T) {
	v, gen := newTestView(t)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlX})

	assert.Nil(t, cmd)
	assert.Equal(t, []string{"s1"}, gen.cancelled)
}

func TestView_LoadError(t *testing.T) {
	sessions := &MockSessionService{err: errors.New("not here")}
	v := NewView(context.Background(), styles.DefaultStyles(), sessions, &MockOrchestrator{sessions: sessions})
	v.SetDimensions(100, 30)

	v = process(v, v.load("s1"))

	assert.Nil(t, v.Session())
	assert.Contains(t, v.View(), "Error: not here")
}

func TestView_NavigationKeys(t *testing.T) {
	v, _ := newTestView(t)

	tests := map[tea.KeyType]messages.ViewType{
		tea.KeyEsc:   messages.ViewSessions,
		tea.KeyCtrlO: messages.ViewDocuments,
		tea.KeyCtrlR: messages.ViewVerifier,
	}
	for key, want := range tests {
		_, cmd := v.Update(tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.Equal(t, messages.ViewChanged{View: want}, cmd())
	}
}

func TestView_LeaveGuidedInterview(t *testing.T) {
	v, gen := newTestView(t)

	v = submit(v, "/guided PRD")
	assert.Contains(t, v.transcript(), "Guided interview: PRD")

	v = submit(v, "/chat")
	assert.Equal(t, []string{"guided", "stop"}, gen.calls)
	assert.Empty(t, v.Session().GuidedDocType)
	assert.NotContains(t, v.transcript(), "Guided interview")
}
