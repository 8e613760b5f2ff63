package streaming

import (
	"bufio"
	"io"
	"strings"
)

// maxLineSize bounds a single SSE or NDJSON line.
const maxLineSize = 4 << 20

// Event is one server-sent event.
type Event struct {
	Name string
	Data string
}

// SSEReader decodes a text/event-stream body.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader wraps r.
func NewSSEReader(r io.Reader) *SSEReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &SSEReader{scanner: s}
}

// Next returns the next event with a non-empty data field.
// Comment lines and events without data are skipped.
func (r *SSEReader) Next() (Event, error) {
	var (
		ev   Event
		data []string
	)
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")

		if line == "" {
			if len(data) > 0 {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			ev = Event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	// A final event without a trailing blank line still counts.
	if len(data) > 0 {
		ev.Data = strings.Join(data, "\n")
		return ev, nil
	}
	return Event{}, io.EOF
}

// LineReader yields non-blank lines of a newline-delimited body.
type LineReader struct {
	scanner *bufio.Scanner
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineReader{scanner: s}
}

// Next returns the next non-blank line, or io.EOF.
func (r *LineReader) Next() ([]byte, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line != "" {
			return []byte(line), nil
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
