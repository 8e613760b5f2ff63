// Package verifier provides the cross-document verifier view for the TUI.
package verifier

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

// View runs verification for one session and applies fixes.
type View struct {
	styles   *styles.Styles
	verifier driving.VerificationService
	ctx      context.Context

	sessionID string
	state     domain.VerifierState
	stream    *messages.Stream
	received  int
	selected  int
	err       error
	width     int
	height    int
}

// NewView creates a verifier view.
func NewView(ctx context.Context, s *styles.Styles, verifier driving.VerificationService) *View {
	return &View{
		styles:   s,
		verifier: verifier,
		ctx:      ctx,
		state:    domain.NewVerifierState(),
		width:    80,
		height:   24,
	}
}

// Open switches the view to a session. The report survives reopening the
// same session and is cleared for a different one.
func (v *View) Open(sessionID string) {
	if sessionID == v.sessionID {
		return
	}
	v.sessionID = sessionID
	v.state = domain.NewVerifierState()
	v.selected = 0
	v.err = nil
}

// Update handles messages for the verifier view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.StreamChunk:
		v.received += len(msg.Text)
		if v.stream == nil {
			return v, nil
		}
		return v, v.stream.Next()

	case messages.VerifierFinished:
		v.stream = nil
		v.err = msg.Err
		if msg.Err == nil {
			v.state = msg.State
			if v.selected >= len(v.state.Issues) {
				v.selected = 0
			}
		}
		return v, nil
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.String() == "esc" {
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} }
	}
	if v.Busy() {
		return v, nil
	}

	// Calls run off the update loop and must not read the view's fields.
	state, id := v.state.Clone(), v.sessionID

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.state.Issues)-1 {
			v.selected++
		}
	case "v":
		return v, v.run(func(onChunk driving.ChunkFunc) (domain.VerifierState, error) {
			return v.verifier.Verify(v.ctx, id, state, onChunk)
		})
	case "a":
		issue, ok := v.SelectedIssue()
		if !ok {
			return v, nil
		}
		return v, v.run(func(onChunk driving.ChunkFunc) (domain.VerifierState, error) {
			return v.verifier.ApplyFix(v.ctx, id, state, issue.ID, onChunk)
		})
	case "A":
		if len(v.state.Outstanding()) == 0 {
			return v, nil
		}
		return v, v.run(func(onChunk driving.ChunkFunc) (domain.VerifierState, error) {
			return v.verifier.ApplyAll(v.ctx, id, state, onChunk)
		})
	case "x":
		issue, ok := v.SelectedIssue()
		if !ok {
			return v, nil
		}
		dismissed, err := v.verifier.Dismiss(state, issue.ID)
		v.state, v.err = dismissed, err
	}
	return v, nil
}

// run streams one verifier call.
func (v *View) run(call func(driving.ChunkFunc) (domain.VerifierState, error)) tea.Cmd {
	v.err = nil
	v.received = 0
	stream, cmd := messages.StartStream(messages.ViewVerifier, func(onChunk func(string)) tea.Msg {
		state, err := call(onChunk)
		return messages.VerifierFinished{State: state, Err: err}
	})
	v.stream = stream
	return cmd
}

// View renders the verifier.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Verifier"))
	b.WriteString("\n\n")

	if v.Busy() {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("Working... %d characters received", v.received)))
		b.WriteString("\n")
		return b.String()
	}
	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}
	if v.state.LastError != "" {
		b.WriteString(v.styles.Error.Render(v.state.LastError))
		b.WriteString("\n\n")
	}
	if !v.state.HasReport() {
		b.WriteString(v.styles.Muted.Render("Press v to check the documents against each other."))
		b.WriteString("\n")
		return b.String()
	}

	if v.state.Summary != "" {
		b.WriteString(v.styles.Normal.Width(max(v.width-2, 20)).Render(v.state.Summary))
		b.WriteString("\n\n")
	}
	if len(v.state.Issues) == 0 {
		b.WriteString(v.styles.Success.Render("No issues found."))
		b.WriteString("\n")
		return b.String()
	}

	for i, issue := range v.state.Issues {
		b.WriteString(v.renderIssue(i, issue))
	}
	return b.String()
}

func (v *View) renderIssue(index int, issue domain.VerifierIssue) string {
	var b strings.Builder

	marker := "  "
	if index == v.selected {
		marker = "> "
	}
	status := ""
	switch {
	case v.state.IsApplied(issue.ID):
		status = v.styles.Success.Render(" applied")
	case v.state.IsDismissed(issue.ID):
		status = v.styles.Muted.Render(" dismissed")
	}
	title := fmt.Sprintf("%s %s", issue.ID, issue.Title)
	if index == v.selected {
		title = v.styles.Selected.Render(title)
	}
	fmt.Fprintf(&b, "%s%s %s%s\n", marker, v.styles.Severity(issue.Severity), title, status)

	if index == v.selected {
		if issue.Description != "" {
			fmt.Fprintf(&b, "    %s\n", issue.Description)
		}
		for _, e := range issue.Evidence {
			fmt.Fprintf(&b, "    %s %q\n", v.styles.Muted.Render(e.Doc+":"), e.Quote)
		}
		if issue.Fix != "" {
			fmt.Fprintf(&b, "    %s %s\n", v.styles.Muted.Render("Fix:"), issue.Fix)
		}
	}
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// State returns the current report state.
func (v *View) State() domain.VerifierState {
	return v.state
}

// SelectedIssue returns the highlighted issue.
func (v *View) SelectedIssue() (domain.VerifierIssue, bool) {
	if v.selected < 0 || v.selected >= len(v.state.Issues) {
		return domain.VerifierIssue{}, false
	}
	return v.state.Issues[v.selected], true
}

// Busy reports whether a verifier call is in flight.
func (v *View) Busy() bool {
	return v.stream != nil
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
