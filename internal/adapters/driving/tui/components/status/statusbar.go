// Package status provides the status bar component for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady     State = "ready"
	StateStreaming State = "streaming"
	StateVerifying State = "verifying"
	StateError     State = "error"
)

// Bar displays the active session, activity and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	hints   []key.Binding
	state   State
	session string
	message string
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Bar{
		styles: s,
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	prefix := ""
	if b.session != "" {
		prefix = b.styles.Normal.Render(b.session) + "  "
	}

	switch b.state {
	case StateStreaming:
		return prefix + b.styles.Muted.Render("Writing...")
	case StateVerifying:
		return prefix + b.styles.Muted.Render("Verifying...")
	case StateError:
		if b.message != "" {
			return prefix + b.styles.Error.Render(fmt.Sprintf("Error: %s", b.message))
		}
		return prefix + b.styles.Error.Render("Error")
	}
	if b.message != "" {
		return prefix + b.styles.Success.Render(b.message)
	}
	return prefix + b.styles.Muted.Render("Ready")
}

func (b *Bar) renderRight() string {
	hints := make([]string, 0, len(b.hints))
	for _, binding := range b.hints {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state and clears any message.
func (b *Bar) SetState(state State) {
	b.state = state
	b.message = ""
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetError switches to the error state with err's text.
func (b *Bar) SetError(err error) {
	b.state = StateError
	b.message = err.Error()
}

// SetMessage shows a transient note in the ready state.
func (b *Bar) SetMessage(message string) {
	b.state = StateReady
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetSession sets the session name shown on the left.
func (b *Bar) SetSession(name string) {
	b.session = name
}

// SetHints sets the keybindings shown on the right.
func (b *Bar) SetHints(hints []key.Binding) {
	b.hints = hints
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}
