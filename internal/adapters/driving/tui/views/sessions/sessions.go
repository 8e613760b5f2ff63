// Package sessions provides the session list view for the TUI.
package sessions

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

const timeFormat = "2006-01-02 15:04"

// View lists sessions, most recently updated first.
type View struct {
	styles   *styles.Styles
	sessions driving.SessionService
	ctx      context.Context

	items    []domain.SessionSummary
	selected int
	width    int
	height   int
	err      error
	loading  bool
}

// NewView creates a new session list view.
func NewView(ctx context.Context, s *styles.Styles, sessions driving.SessionService) *View {
	return &View{
		styles:   s,
		sessions: sessions,
		ctx:      ctx,
	}
}

// Init loads the session list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.load()
}

func (v *View) load() tea.Cmd {
	return func() tea.Msg {
		list, err := v.sessions.List(v.ctx)
		return messages.SessionsLoaded{Sessions: list, Err: err}
	}
}

// Update handles messages for the session list.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SessionsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.items = msg.Sessions
		v.err = nil
		if v.selected >= len(v.items) {
			v.selected = max(len(v.items)-1, 0)
		}
		return v, nil

	case messages.SessionCreated:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		id := msg.Session.ID
		return v, tea.Batch(v.load(), func() tea.Msg { return messages.SessionOpened{ID: id} })

	case messages.SessionDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		return v, v.load()
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.items)-1 {
			v.selected++
		}
	case "enter":
		if s, ok := v.Selected(); ok {
			return v, func() tea.Msg { return messages.SessionOpened{ID: s.ID} }
		}
	case "n":
		return v, v.create()
	case "d", "delete":
		if s, ok := v.Selected(); ok {
			return v, v.delete(s.ID)
		}
	case "r":
		v.loading = true
		return v, v.load()
	}
	return v, nil
}

func (v *View) create() tea.Cmd {
	return func() tea.Msg {
		s, err := v.sessions.Create(v.ctx, "")
		return messages.SessionCreated{Session: s, Err: err}
	}
}

func (v *View) delete(id string) tea.Cmd {
	return func() tea.Msg {
		return messages.SessionDeleted{ID: id, Err: v.sessions.Delete(v.ctx, id)}
	}
}

// View renders the session list.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Sessions"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading sessions..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case len(v.items) == 0:
		b.WriteString(v.styles.Muted.Render("No sessions yet. Press n to start one."))
	default:
		for i := range v.items {
			b.WriteString(v.renderSession(i, &v.items[i]))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (v *View) renderSession(index int, s *domain.SessionSummary) string {
	meta := fmt.Sprintf("%s  %d docs  %d msgs", s.UpdatedAt.Local().Format(timeFormat), s.DocumentCount, s.MessageCount)

	name := s.Name
	maxName := max(v.width-len(meta)-8, 10)
	if r := []rune(name); len(r) > maxName {
		name = string(r[:maxName-3]) + "..."
	}

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("> %-*s  %s", maxName, name, meta))
	}
	return "  " + v.styles.Normal.Render(fmt.Sprintf("%-*s", maxName, name)) + "  " + v.styles.Muted.Render(meta)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Sessions returns the loaded sessions.
func (v *View) Sessions() []domain.SessionSummary {
	return v.items
}

// Selected returns the highlighted session.
func (v *View) Selected() (domain.SessionSummary, bool) {
	if v.selected < 0 || v.selected >= len(v.items) {
		return domain.SessionSummary{}, false
	}
	return v.items[v.selected], true
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
