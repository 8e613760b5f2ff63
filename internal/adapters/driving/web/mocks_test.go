package web

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/specforge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/specforge/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/core/services"
)

// fakeLLM replays one scripted reply per Stream call.
type fakeLLM struct {
	mu       sync.Mutex
	replies  [][]string
	requests []driven.GenerationRequest
}

func (f *fakeLLM) Stream(_ context.Context, req driven.GenerationRequest) (driven.TextStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	var chunks []string
	if len(f.replies) > 0 {
		chunks = f.replies[0]
		f.replies = f.replies[1:]
	}
	return &fakeStream{chunks: chunks}, nil
}

func (f *fakeLLM) ModelName() string { return "fake" }

func (f *fakeLLM) Ping(context.Context) error { return nil }

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) lastRequest() driven.GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeStream struct {
	chunks []string
}

func (s *fakeStream) Next() (string, error) {
	if len(s.chunks) == 0 {
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *fakeStream) Close() error { return nil }

// newTestServer wires real services over in-memory storage.
func newTestServer(t *testing.T, llm driven.GenerationService) *Server {
	t.Helper()

	prompts, err := file.NewPromptStore(t.TempDir())
	require.NoError(t, err)
	templates, err := file.NewDefaultTemplateStore()
	require.NoError(t, err)

	settings := domain.DefaultAppSettings()
	settings.Storage.Debounce = 5 * time.Millisecond

	core := services.NewCore(services.Deps{
		Store:     memory.NewSessionStore(),
		Prompts:   prompts,
		Templates: templates,
		LLM:       llm,
		Settings:  settings,
	})
	t.Cleanup(func() { _ = core.Close(context.Background()) })

	srv, err := NewServer(&Ports{
		Sessions:     core.Sessions,
		Generation:   core.Orchestrator,
		Verification: core.Verification,
		Proxy:        core.Proxy,
		Catalog:      core.Catalog,
	})
	require.NoError(t, err)
	return srv
}
