// Package chat provides the streaming chat view of one session.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/specforge/internal/blocks"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// inputHeight is the rows reserved below the transcript.
const inputHeight = 4

// progressLoaded carries the guided self-report after a turn.
type progressLoaded struct {
	progress domain.GuidedProgress
	ok       bool
}

// View shows a session's transcript and a message input.
type View struct {
	styles     *styles.Styles
	sessions   driving.SessionService
	generation driving.GenerationOrchestrator
	ctx        context.Context

	input    *input.MessageInput
	viewport viewport.Model

	session  *domain.Session
	report   string
	stream   *messages.Stream
	partial  strings.Builder
	progress *domain.GuidedProgress
	lastTurn *domain.TurnResult
	err      error
	width    int
	height   int
}

// NewView creates a chat view.
func NewView(
	ctx context.Context,
	s *styles.Styles,
	sessions driving.SessionService,
	generation driving.GenerationOrchestrator,
) *View {
	return &View{
		styles:     s,
		sessions:   sessions,
		generation: generation,
		ctx:        ctx,
		input:      input.NewMessageInput(s),
		viewport:   viewport.New(80, 20),
		width:      80,
		height:     24,
	}
}

// Open loads a session into the view.
func (v *View) Open(id string) tea.Cmd {
	v.session = nil
	v.report = ""
	v.progress = nil
	v.lastTurn = nil
	v.err = nil
	v.partial.Reset()
	v.refresh()
	return tea.Batch(v.load(id), v.input.Focus())
}

func (v *View) load(id string) tea.Cmd {
	return func() tea.Msg {
		s, err := v.sessions.Get(v.ctx, id)
		return messages.SessionLoaded{Session: s, Err: err}
	}
}

func (v *View) loadProgress(id string) tea.Cmd {
	return func() tea.Msg {
		p, ok, err := v.generation.Progress(v.ctx, id)
		if err != nil {
			return nil
		}
		return progressLoaded{progress: p, ok: ok}
	}
}

// Reload re-reads the open session, for example after fixes were applied.
func (v *View) Reload() tea.Cmd {
	if v.session == nil {
		return nil
	}
	return v.load(v.session.ID)
}

// SetReport grounds subsequent chat turns in a verification report.
func (v *View) SetReport(raw string) {
	v.report = raw
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SessionLoaded:
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.session = msg.Session
		}
		v.refresh()
		return v, nil

	case messages.StreamChunk:
		v.partial.WriteString(msg.Text)
		v.refresh()
		if v.stream == nil {
			return v, nil
		}
		return v, v.stream.Next()

	case messages.TurnFinished:
		v.stream = nil
		v.partial.Reset()
		v.lastTurn = msg.Result
		v.err = msg.Err
		if v.session == nil {
			v.refresh()
			return v, nil
		}
		return v, tea.Batch(v.load(v.session.ID), v.loadProgress(v.session.ID))

	case progressLoaded:
		if msg.ok {
			p := msg.progress
			v.progress = &p
		}
		v.refresh()
		return v, nil
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, changeView(messages.ViewSessions)
	case "ctrl+o":
		return v, changeView(messages.ViewDocuments)
	case "ctrl+r":
		return v, changeView(messages.ViewVerifier)
	case "ctrl+x":
		if v.session != nil {
			v.generation.Cancel(v.session.ID)
		}
		return v, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	case "enter":
		return v, v.submit()
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit starts a turn from the input line.
func (v *View) submit() tea.Cmd {
	line := strings.TrimSpace(v.input.Value())
	if line == "" || v.session == nil || v.Streaming() {
		return nil
	}
	v.input.Reset()

	if line == "/chat" {
		v.progress = nil
		v.refresh()
		return v.stopGuided(v.session.ID)
	}

	run, req := v.route(line)
	v.err = nil
	v.lastTurn = nil
	v.partial.Reset()
	v.refresh()

	stream, cmd := messages.StartStream(messages.ViewChat, func(onChunk func(string)) tea.Msg {
		result, err := run(v.ctx, req, onChunk)
		return messages.TurnFinished{Result: result, Err: err}
	})
	v.stream = stream
	return cmd
}

// stopGuided leaves guided mode and reloads the session.
func (v *View) stopGuided(id string) tea.Cmd {
	return func() tea.Msg {
		if _, err := v.generation.StopGuided(v.ctx, id); err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		s, err := v.sessions.Get(v.ctx, id)
		return messages.SessionLoaded{Session: s, Err: err}
	}
}

type turnFunc func(context.Context, driving.TurnRequest, driving.ChunkFunc) (*domain.TurnResult, error)

// route maps an input line to an orchestrator call.
func (v *View) route(line string) (turnFunc, driving.TurnRequest) {
	req := driving.TurnRequest{SessionID: v.session.ID, VerifyReport: v.report}

	if cmd, arg, ok := strings.Cut(line, " "); ok && strings.TrimSpace(arg) != "" {
		switch cmd {
		case "/generate":
			req.DocType = strings.TrimSpace(arg)
			return v.generation.GenerateDocument, req
		case "/guided":
			req.DocType = strings.TrimSpace(arg)
			return v.generation.StartGuided, req
		}
	}
	req.Message = line
	return v.generation.Send, req
}

func changeView(view messages.ViewType) tea.Cmd {
	return func() tea.Msg { return messages.ViewChanged{View: view} }
}

// refresh re-renders the transcript into the viewport.
func (v *View) refresh() {
	v.viewport.SetContent(v.transcript())
	v.viewport.GotoBottom()
}

func (v *View) transcript() string {
	if v.session == nil {
		if v.err != nil {
			return v.styles.Error.Render("Error: " + v.err.Error())
		}
		return v.styles.Muted.Render("Loading session...")
	}

	var b strings.Builder
	if len(v.session.Messages) == 0 && !v.Streaming() {
		b.WriteString(v.styles.Muted.Render("Describe what you want to build."))
		b.WriteString("\n")
	}
	for _, m := range v.session.Messages {
		v.writeTurn(&b, m.Role, m.Content)
		for _, img := range m.Images {
			if img.Error != "" {
				b.WriteString(v.styles.Error.Render(fmt.Sprintf("  [image failed: %s]", img.Prompt)))
			} else {
				b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [image: %s]", img.Prompt)))
			}
			b.WriteString("\n")
		}
	}
	if v.Streaming() {
		v.writeTurn(&b, domain.RoleModel, v.partial.String()+"▍")
	}

	if t := v.lastTurn; t != nil {
		switch {
		case t.Cancelled:
			b.WriteString(v.styles.Muted.Render("(stopped early, partial reply kept)") + "\n")
		case t.Interrupted:
			b.WriteString(v.styles.Error.Render("(connection lost, partial reply kept)") + "\n")
		}
		if len(t.Changed) > 0 {
			b.WriteString(v.styles.Success.Render("Updated: "+strings.Join(t.Changed, ", ")) + "\n")
		}
	}
	if v.session.GuidedDocType != "" {
		b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("Guided interview: %s (/chat to leave)", v.session.GuidedDocType)))
		b.WriteString("\n")
	}
	if v.progress != nil {
		b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("Coverage %d%% (%d/%d topics)",
			v.progress.Percent(), v.progress.Covered, v.progress.Total)))
		b.WriteString("\n")
	}
	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: "+v.err.Error()) + "\n")
	}
	return b.String()
}

// writeTurn renders one turn with document blocks folded to a note.
func (v *View) writeTurn(b *strings.Builder, role domain.Role, content string) {
	if role == domain.RoleUser {
		b.WriteString(v.styles.UserRole.Render("You"))
	} else {
		b.WriteString(v.styles.ModelRole.Render("SpecForge"))
	}
	b.WriteString("\n")

	parsed := blocks.ParseDocumentBlocks(content)
	text := strings.TrimSpace(parsed.CleanText)
	if text != "" {
		b.WriteString(v.styles.Normal.Width(max(v.width-2, 20)).Render(text))
		b.WriteString("\n")
	}
	for _, key := range domain.SortedKeys(parsed.Documents) {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%s: %d lines]", key, strings.Count(parsed.Documents[key], "\n")+1)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// View renders the chat view.
func (v *View) View() string {
	title := "Chat"
	if v.session != nil {
		title = v.session.Name
	}
	return v.styles.Title.Render(title) + "\n" + v.viewport.View() + "\n" + v.input.View()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-inputHeight-2, 3)
	v.input.SetWidth(width)
	v.refresh()
}

// Session returns the loaded session, or nil.
func (v *View) Session() *domain.Session {
	return v.session
}

// Streaming reports whether a turn is in flight.
func (v *View) Streaming() bool {
	return v.stream != nil
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
