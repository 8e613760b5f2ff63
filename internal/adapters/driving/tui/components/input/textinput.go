// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/styles"
)

// maxMessage caps a single chat message typed in the TUI.
const maxMessage = 4000

// MessageInput wraps a bubbles textinput for chat messages.
type MessageInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	label     string
	width     int
}

// NewMessageInput creates a focused message input.
func NewMessageInput(s *styles.Styles) *MessageInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Describe your project, or /generate <type>, /guided <type>"
	ti.Focus()
	ti.CharLimit = maxMessage
	ti.Width = 60

	return &MessageInput{
		textinput: ti,
		styles:    s,
		label:     "You: ",
		width:     60,
	}
}

// Init starts the cursor blink.
func (m *MessageInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (m *MessageInput) Update(msg tea.Msg) (*MessageInput, tea.Cmd) {
	var cmd tea.Cmd
	m.textinput, cmd = m.textinput.Update(msg)
	return m, cmd
}

// View renders the input.
func (m *MessageInput) View() string {
	label := m.styles.UserRole.Render(m.label)
	field := m.styles.InputField.Render(m.textinput.View())
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the current input value.
func (m *MessageInput) Value() string {
	return m.textinput.Value()
}

// SetValue sets the input value.
func (m *MessageInput) SetValue(value string) {
	m.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (m *MessageInput) Focus() tea.Cmd {
	return m.textinput.Focus()
}

// Blur removes focus from the input.
func (m *MessageInput) Blur() {
	m.textinput.Blur()
}

// Focused returns whether the input is focused.
func (m *MessageInput) Focused() bool {
	return m.textinput.Focused()
}

// SetWidth sets the width of the input, leaving room for the label.
func (m *MessageInput) SetWidth(width int) {
	m.width = width
	m.textinput.Width = max(width-lipgloss.Width(m.label)-6, 20)
}

// Width returns the current width.
func (m *MessageInput) Width() int {
	return m.width
}

// Reset clears the input.
func (m *MessageInput) Reset() {
	m.textinput.Reset()
}
