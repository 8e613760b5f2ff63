// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSessions is the session list.
	ViewSessions ViewType = iota
	// ViewChat is the streaming chat of one session.
	ViewChat
	// ViewDocuments shows the session's documents.
	ViewDocuments
	// ViewVerifier is the cross-document verifier.
	ViewVerifier
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSessions:
		return "sessions"
	case ViewChat:
		return "chat"
	case ViewDocuments:
		return "documents"
	case ViewVerifier:
		return "verifier"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// SessionsLoaded carries the session list.
type SessionsLoaded struct {
	Sessions []domain.SessionSummary
	Err      error
}

// SessionCreated signals a session was created.
type SessionCreated struct {
	Session *domain.Session
	Err     error
}

// SessionDeleted signals a session was deleted.
type SessionDeleted struct {
	ID  string
	Err error
}

// SessionOpened asks the app to open a session in the chat view.
type SessionOpened struct {
	ID string
}

// SessionLoaded carries a freshly read session.
type SessionLoaded struct {
	Session *domain.Session
	Err     error
}

// StreamChunk is one text delta of an in-flight model response.
type StreamChunk struct {
	// Owner is the view that started the stream.
	Owner ViewType
	Text  string
}

// TurnFinished ends a chat or generation stream.
type TurnFinished struct {
	Result *domain.TurnResult
	Err    error
}

// VerifierFinished ends a verify or harmonize stream.
type VerifierFinished struct {
	State domain.VerifierState
	Err   error
}

// Stream relays chunks from a background model call into the update loop.
// Each Next command yields one message; the last one is the call's result.
type Stream struct {
	ch chan tea.Msg
}

// StartStream runs call in a goroutine and returns the stream with the
// command reading its first message. Chunks are tagged with owner.
func StartStream(owner ViewType, call func(onChunk func(string)) tea.Msg) (*Stream, tea.Cmd) {
	s := &Stream{ch: make(chan tea.Msg, 64)}
	go func() {
		defer close(s.ch)
		final := call(func(delta string) {
			s.ch <- StreamChunk{Owner: owner, Text: delta}
		})
		s.ch <- final
	}()
	return s, s.Next()
}

// Next returns a command that waits for the next message.
// It yields nil once the stream is drained.
func (s *Stream) Next() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-s.ch
		if !ok {
			return nil
		}
		return msg
	}
}
