package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/views/sessions"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/views/verifier"
)

// App is the TUI root model. It routes messages to the active view and
// owns the status bar.
type App struct {
	ports  *Ports
	styles *styles.Styles
	keymap *keymap.KeyMap
	status *status.Bar

	sessionsView *sessions.View
	chatView     *chat.View
	docsView     *documents.View
	verifierView *verifier.View

	current   messages.ViewType
	sessionID string
	width     int
	height    int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the TUI over ports. Service calls use ctx.
func NewApp(ctx context.Context, ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	a := &App{
		ports:        ports,
		styles:       s,
		keymap:       keymap.DefaultKeyMap(),
		status:       status.NewBar(s),
		sessionsView: sessions.NewView(ctx, s, ports.Sessions),
		chatView:     chat.NewView(ctx, s, ports.Sessions, ports.Generation),
		docsView:     documents.NewView(ctx, s, ports.Sessions),
		verifierView: verifier.NewView(ctx, s, ports.Verification),
		current:      messages.ViewSessions,
	}
	a.syncStatus()
	return a, nil
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("specforge"),
		a.sessionsView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.route(msg)
	a.syncStatus()
	return a, cmd
}

//nolint:gocyclo // central message router
func (a *App) route(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if a.sessionID != "" {
				a.ports.Generation.Cancel(a.sessionID)
			}
			return tea.Quit
		}
		return a.forwardKey(msg)

	case messages.ViewChanged:
		return a.switchView(msg.View)

	case messages.SessionOpened:
		a.sessionID = msg.ID
		a.current = messages.ViewChat
		a.status.SetSession("")
		a.verifierView.Open(msg.ID)
		return a.chatView.Open(msg.ID)

	case messages.SessionsLoaded, messages.SessionCreated, messages.SessionDeleted:
		a.sessionsView, cmd = a.sessionsView.Update(msg)
		return cmd

	case messages.SessionLoaded:
		if a.current == messages.ViewDocuments {
			a.docsView, cmd = a.docsView.Update(msg)
			return cmd
		}
		if msg.Session != nil {
			a.status.SetSession(msg.Session.Name)
		}
		a.chatView, cmd = a.chatView.Update(msg)
		return cmd

	case messages.StreamChunk:
		if msg.Owner == messages.ViewVerifier {
			a.verifierView, cmd = a.verifierView.Update(msg)
		} else {
			a.chatView, cmd = a.chatView.Update(msg)
		}
		return cmd

	case messages.TurnFinished:
		a.chatView, cmd = a.chatView.Update(msg)
		a.reportTurn(msg)
		return cmd

	case messages.VerifierFinished:
		a.verifierView, cmd = a.verifierView.Update(msg)
		if msg.Err != nil {
			a.status.SetError(msg.Err)
		}
		return cmd

	case messages.ErrorOccurred:
		a.status.SetError(msg.Err)
		return nil
	}

	// Everything else (cursor blink, chat-internal messages) goes to chat.
	a.chatView, cmd = a.chatView.Update(msg)
	return cmd
}

func (a *App) forwardKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch a.current {
	case messages.ViewSessions:
		a.sessionsView, cmd = a.sessionsView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewDocuments:
		a.docsView, cmd = a.docsView.Update(msg)
	case messages.ViewVerifier:
		a.verifierView, cmd = a.verifierView.Update(msg)
	}
	return cmd
}

func (a *App) switchView(view messages.ViewType) tea.Cmd {
	from := a.current
	a.current = view

	switch view {
	case messages.ViewSessions:
		return a.sessionsView.Init()
	case messages.ViewDocuments:
		return a.docsView.Open(a.sessionID)
	case messages.ViewVerifier:
		a.verifierView.Open(a.sessionID)
		return nil
	case messages.ViewChat:
		if from == messages.ViewVerifier {
			state := a.verifierView.State()
			if state.HasReport() {
				a.chatView.SetReport(state.RawReport)
			}
			return a.chatView.Reload()
		}
	}
	return nil
}

func (a *App) reportTurn(msg messages.TurnFinished) {
	switch {
	case msg.Err != nil:
		a.status.SetError(msg.Err)
	case msg.Result != nil && msg.Result.Failed:
		a.status.SetError(fmt.Errorf("%s", msg.Result.Message.Content))
	case msg.Result != nil && len(msg.Result.Changed) > 0:
		a.status.SetMessage("Updated: " + strings.Join(msg.Result.Changed, ", "))
	default:
		a.status.SetState(status.StateReady)
	}
}

// syncStatus updates hints and activity after every message.
func (a *App) syncStatus() {
	switch a.current {
	case messages.ViewSessions:
		a.status.SetHints(a.keymap.SessionsHelp())
	case messages.ViewChat:
		a.status.SetHints(a.keymap.ChatHelp())
	case messages.ViewDocuments:
		a.status.SetHints(a.keymap.DocumentsHelp())
	case messages.ViewVerifier:
		a.status.SetHints(a.keymap.VerifierHelp())
	}

	switch {
	case a.chatView.Streaming():
		a.status.SetState(status.StateStreaming)
	case a.verifierView.Busy():
		a.status.SetState(status.StateVerifying)
	case a.status.State() == status.StateStreaming || a.status.State() == status.StateVerifying:
		a.status.SetState(status.StateReady)
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var body string
	switch a.current {
	case messages.ViewChat:
		body = a.chatView.View()
	case messages.ViewDocuments:
		body = a.docsView.View()
	case messages.ViewVerifier:
		body = a.verifierView.View()
	default:
		body = a.sessionsView.View()
	}
	return body + "\n" + a.status.View()
}

// SetDimensions sizes every view, leaving a row for the status bar.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	body := max(height-1, 1)
	a.sessionsView.SetDimensions(width, body)
	a.chatView.SetDimensions(width, body)
	a.docsView.SetDimensions(width, body)
	a.verifierView.SetDimensions(width, body)
	a.status.SetWidth(width)
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.current
}

// SessionID returns the open session, or "".
func (a *App) SessionID() string {
	return a.sessionID
}
