package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/custodia-labs/specforge/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// --- Mock implementations ---

// script describes one scripted model response.
type script struct {
	chunks   []string
	startErr error // returned by Stream
	midErr   error // returned by Next after all chunks
	hold     bool  // after the chunks, block until the context is cancelled
}

// mockLLM implements driven.GenerationService with scripted responses.
type mockLLM struct {
	mu       sync.Mutex
	scripts  []script
	requests []driven.GenerationRequest

	// started receives once per Stream call after its chunks are queued.
	started chan struct{}
}

func newMockLLM(scripts ...script) *mockLLM {
	return &mockLLM{scripts: scripts, started: make(chan struct{}, 16)}
}

func (m *mockLLM) Stream(ctx context.Context, req driven.GenerationRequest) (driven.TextStream, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var s script
	if len(m.scripts) > 0 {
		s = m.scripts[0]
		m.scripts = m.scripts[1:]
	}
	m.mu.Unlock()

	if s.startErr != nil {
		return nil, s.startErr
	}
	return &mockStream{ctx: ctx, s: s, started: m.started}, nil
}

func (m *mockLLM) ModelName() string { return "mock" }

func (m *mockLLM) Ping(_ context.Context) error { return nil }

func (m *mockLLM) Close() error { return nil }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockLLM) lastRequest() driven.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

type mockStream struct {
	ctx      context.Context
	s        script
	pos      int
	signaled bool
	started  chan struct{}
}

func (st *mockStream) Next() (string, error) {
	if err := st.ctx.Err(); err != nil {
		return "", err
	}
	if st.pos < len(st.s.chunks) {
		c := st.s.chunks[st.pos]
		st.pos++
		return c, nil
	}
	if !st.signaled {
		st.signaled = true
		select {
		case st.started <- struct{}{}:
		default:
		}
	}
	if st.s.hold {
		<-st.ctx.Done()
		return "", st.ctx.Err()
	}
	if st.s.midErr != nil {
		return "", st.s.midErr
	}
	return "", io.EOF
}

func (st *mockStream) Close() error { return nil }

// staticPrompts implements driven.PromptStore.
type staticPrompts map[string]string

func defaultTestPrompts() staticPrompts {
	return staticPrompts{
		driven.PromptBaseSystem:      "BASE",
		driven.PromptVerifySystem:    "VERIFY",
		driven.PromptHarmonizeSystem: "HARMONIZE",
		driven.PromptGuidedSystem:    "GUIDED {{doc_type}}\n{{topics}}",
	}
}

func (p staticPrompts) Load(name string) (string, error) {
	text, ok := p[name]
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	return text, nil
}

func (p staticPrompts) Reload() {}

// staticTemplates implements driven.TemplateStore.
type staticTemplates []domain.DocType

func defaultTestTemplates() staticTemplates {
	return staticTemplates{
		{Key: "PRD", Meta: &domain.DocTypeMeta{
			Label:       "Product Requirements",
			Instruction: "Include goals and non-goals.",
			Topics:      []string{"Problem", "Users", "Goals"},
		}},
		{Key: "Architecture", Meta: &domain.DocTypeMeta{Label: "Architecture"}},
	}
}

func (t staticTemplates) List() []domain.DocType { return t }

func (t staticTemplates) Get(key string) domain.DocType {
	for _, dt := range t {
		if dt.Key == key {
			return dt
		}
	}
	return domain.DocType{Key: key}
}

func (t staticTemplates) Reload() error { return nil }

// slowFirstStore delays its first Save, letting a later write overtake it.
type slowFirstStore struct {
	*memory.SessionStore
	delay time.Duration

	mu    sync.Mutex
	saved []string
}

func (s *slowFirstStore) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	first := len(s.saved) == 0
	s.saved = append(s.saved, session.Name)
	s.mu.Unlock()
	if first {
		time.Sleep(s.delay)
	}
	return s.SessionStore.Save(ctx, session)
}

func (s *slowFirstStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

// failingStore wraps a memory store and fails every Save.
type failingStore struct {
	*memory.SessionStore
}

func (f failingStore) Save(_ context.Context, _ *domain.Session) error {
	return errors.New("disk full")
}

// mockImages implements driven.ImageGenerator.
type mockImages struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	fail     map[string]bool
}

func (m *mockImages) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	m.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()

	if m.fail[prompt] {
		return "", errors.New("content policy")
	}
	return "https://img.test/" + prompt, nil
}

// --- Fixture ---

type fixture struct {
	store        *memory.SessionStore
	persister    *Persister
	sessions     *SessionService
	llm          *mockLLM
	orchestrator *Orchestrator
	verifier     *VerificationEngine
	clock        *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newFixture(llm *mockLLM, images driven.ImageGenerator) *fixture {
	store := memory.NewSessionStore()
	persister := NewPersister(store, domain.DefaultTrimPolicy(), 10*time.Millisecond)
	sessions := NewSessionService(store, persister)
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	sessions.now = clock.Now

	prompts := NewPromptBuilder(defaultTestPrompts(), defaultTestTemplates())
	gen := domain.DefaultAppSettings().Generation
	gate := newGenerationGate()

	var llmPort driven.GenerationService
	if llm != nil {
		llmPort = llm
	}

	return &fixture{
		store:        store,
		persister:    persister,
		sessions:     sessions,
		llm:          llm,
		orchestrator: NewOrchestrator(sessions, llmPort, prompts, NewImageRenderer(images, 2), gen, gate),
		verifier:     NewVerificationEngine(sessions, llmPort, prompts, gen, gate),
		clock:        clock,
	}
}
