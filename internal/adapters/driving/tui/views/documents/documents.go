// Package documents provides the document viewer for the TUI.
package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// listWidth is the width of the document list column.
const listWidth = 24

// View lists a session's documents beside the selected one's content.
type View struct {
	styles   *styles.Styles
	sessions driving.SessionService
	ctx      context.Context

	viewport viewport.Model
	session  *domain.Session
	keys     []string
	selected int
	err      error
	width    int
	height   int
}

// NewView creates a document viewer.
func NewView(ctx context.Context, s *styles.Styles, sessions driving.SessionService) *View {
	return &View{
		styles:   s,
		sessions: sessions,
		ctx:      ctx,
		viewport: viewport.New(56, 20),
		width:    80,
		height:   24,
	}
}

// Open reloads the session so the latest documents are shown.
func (v *View) Open(id string) tea.Cmd {
	return func() tea.Msg {
		s, err := v.sessions.Get(v.ctx, id)
		return messages.SessionLoaded{Session: s, Err: err}
	}
}

// Update handles messages for the document viewer.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SessionLoaded:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.session = msg.Session
		v.keys = domain.SortedKeys(msg.Session.Documents)
		if v.selected >= len(v.keys) {
			v.selected = 0
		}
		v.showSelected()
		return v, nil
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} }
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.showSelected()
		}
		return v, nil
	case "down", "j":
		if v.selected < len(v.keys)-1 {
			v.selected++
			v.showSelected()
		}
		return v, nil
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *View) showSelected() {
	key, ok := v.Selected()
	if !ok {
		v.viewport.SetContent(v.styles.Muted.Render("No documents yet. Ask for one in the chat."))
		return
	}
	content := v.session.Documents[key]
	v.viewport.SetContent(v.styles.Normal.Width(v.viewport.Width).Render(content))
	v.viewport.GotoTop()
}

// View renders the document viewer.
func (v *View) View() string {
	var list strings.Builder
	list.WriteString(v.styles.Title.Render("Documents"))
	list.WriteString("\n\n")
	if v.err != nil {
		list.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	}
	for i, key := range v.keys {
		label := key
		if n := len(v.session.HistoryFor(key)); n > 0 {
			label = fmt.Sprintf("%s (%d)", key, n)
		}
		if i == v.selected {
			list.WriteString(v.styles.Selected.Render("> " + label))
		} else {
			list.WriteString("  " + v.styles.Normal.Render(label))
		}
		list.WriteString("\n")
	}

	left := lipgloss.NewStyle().Width(listWidth).Render(list.String())
	right := v.styles.Border.Render(v.viewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = max(width-listWidth-4, 20)
	v.viewport.Height = max(height-4, 3)
	if v.session != nil {
		v.showSelected()
	}
}

// Selected returns the key of the highlighted document.
func (v *View) Selected() (string, bool) {
	if v.selected < 0 || v.selected >= len(v.keys) {
		return "", false
	}
	return v.keys[v.selected], true
}

// Keys returns the document keys in display order.
func (v *View) Keys() []string {
	return v.keys
}
