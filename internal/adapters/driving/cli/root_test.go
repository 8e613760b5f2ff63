package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
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

// scriptedLLM replays one scripted reply per Stream call.
type scriptedLLM struct {
	mu       sync.Mutex
	replies  []string
	requests int
	last     driven.GenerationRequest
}

func (l *scriptedLLM) Stream(_ context.Context, req driven.GenerationRequest) (driven.TextStream, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests++
	l.last = req
	var reply string
	if len(l.replies) > 0 {
		reply, l.replies = l.replies[0], l.replies[1:]
	}
	return &scriptedStream{text: reply}, nil
}

func (l *scriptedLLM) ModelName() string { return "scripted" }

func (l *scriptedLLM) Ping(context.Context) error { return nil }

func (l *scriptedLLM) Close() error { return nil }

func (l *scriptedLLM) lastSystem() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last.SystemInstruction
}

func (l *scriptedLLM) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.requests
}

// scriptedStream yields its text in one chunk.
type scriptedStream struct {
	text string
	done bool
}

func (s *scriptedStream) Next() (string, error) {
	if s.done || s.text == "" {
		return "", io.EOF
	}
	s.done = true
	return s.text, nil
}

func (s *scriptedStream) Close() error { return nil }

// setupTestServices binds real services over in-memory storage.
func setupTestServices(t *testing.T, llm driven.GenerationService) {
	t.Helper()

	prompts, err := file.NewPromptStore(t.TempDir())
	require.NoError(t, err)
	templates, err := file.NewDefaultTemplateStore()
	require.NoError(t, err)
	configStore, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	settings := domain.DefaultAppSettings()
	settings.Storage.Debounce = time.Millisecond

	core := services.NewCore(services.Deps{
		Store:     memory.NewSessionStore(),
		Prompts:   prompts,
		Templates: templates,
		LLM:       llm,
		Settings:  settings,
	})

	settingsService = services.NewSettingsService(configStore, nil)
	sessionService = core.Sessions
	generationService = core.Orchestrator
	verificationService = core.Verification
	proxyService = core.Proxy
	catalogService = core.Catalog

	t.Cleanup(func() {
		_ = core.Close(context.Background())
		unbind()
		resetFlags()
	})
}

func resetFlags() {
	verifyApply = nil
	verifyApplyAll = false
	verifyDismiss = nil
	verifyStream = false
	docEditFile = ""
	exportDir = "."
	showMessages = 4
	serveAddr = ""
}

// run executes the root command with args and stdin.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// newSession creates a session and returns its id.
func newSession(t *testing.T, name string) string {
	t.Helper()
	s, err := sessionService.Create(context.Background(), name)
	require.NoError(t, err)
	return s.ID
}

func TestRequireServices_Unbound(t *testing.T) {
	unbind()
	require.EqualError(t, requireServices(), "services not configured")
}
