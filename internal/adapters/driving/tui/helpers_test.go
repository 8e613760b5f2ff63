package tui

import (
	"context"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
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
}

func (l *scriptedLLM) Stream(_ context.Context, _ driven.GenerationRequest) (driven.TextStream, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests++
	var reply string
	if len(l.replies) > 0 {
		reply, l.replies = l.replies[0], l.replies[1:]
	}
	return &scriptedStream{text: reply}, nil
}

func (l *scriptedLLM) ModelName() string { return "scripted" }

func (l *scriptedLLM) Ping(context.Context) error { return nil }

func (l *scriptedLLM) Close() error { return nil }

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

// newTestCore builds real services over in-memory storage.
func newTestCore(t *testing.T, llm driven.GenerationService) *services.Core {
	t.Helper()

	prompts, err := file.NewPromptStore(t.TempDir())
	require.NoError(t, err)
	templates, err := file.NewDefaultTemplateStore()
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
	t.Cleanup(func() { _ = core.Close(context.Background()) })
	return core
}

func portsFor(core *services.Core) *Ports {
	return &Ports{
		Sessions:     core.Sessions,
		Generation:   core.Orchestrator,
		Verification: core.Verification,
	}
}

// newTestApp returns a sized app over a fresh core.
func newTestApp(t *testing.T, llm driven.GenerationService) (*App, *services.Core) {
	t.Helper()
	core := newTestCore(t, llm)
	app, err := NewApp(context.Background(), portsFor(core))
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app, core
}

// cmdTimeout bounds each command. Cursor blink ticks run past it and are
// dropped; service calls finish well within it.
const cmdTimeout = 200 * time.Millisecond

// drive feeds msg to the app and keeps feeding the messages its commands
// produce until none are left. It returns every message delivered.
func drive(t *testing.T, app *App, msg tea.Msg) []tea.Msg {
	t.Helper()

	var seen []tea.Msg
	queue := []tea.Msg{msg}
	for len(queue) > 0 && len(seen) < 500 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		seen = append(seen, next)

		if batch, ok := next.(tea.BatchMsg); ok {
			for _, c := range batch {
				queue = append(queue, execute(c))
			}
			continue
		}
		if !deliverable(next) {
			continue
		}

		_, cmd := app.Update(next)
		queue = append(queue, execute(cmd))
	}
	return seen
}

// execute runs cmd, returning nil when it is nil or does not finish in time.
func execute(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(cmdTimeout):
		return nil
	}
}

// deliverable reports whether msg should reach the app: key presses and
// this module's own messages. Terminal control messages are skipped.
func deliverable(msg tea.Msg) bool {
	if _, ok := msg.(tea.KeyMsg); ok {
		return true
	}
	return strings.HasPrefix(reflect.TypeOf(msg).PkgPath(), "github.com/custodia-labs/specforge/")
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyType(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

// typeLine pastes text into the focused input.
func typeLine(t *testing.T, app *App, text string) {
	t.Helper()
	drive(t, app, keyRunes(text))
}
