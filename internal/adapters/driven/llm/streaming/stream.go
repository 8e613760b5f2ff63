package streaming

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// Ensure BodyStream implements the interface.
var _ driven.TextStream = (*BodyStream)(nil)

// DecodeFunc returns the next text delta from the body. It returns io.EOF
// once the provider signals the end of the response. An empty delta with a
// nil error is skipped.
type DecodeFunc func() (string, error)

// BodyStream adapts a streaming HTTP body to driven.TextStream.
type BodyStream struct {
	ctx    context.Context
	body   io.Closer
	decode DecodeFunc

	closeOnce sync.Once
	done      bool
}

// NewBodyStream creates a stream over body. decode reads from the same body.
func NewBodyStream(ctx context.Context, body io.Closer, decode DecodeFunc) *BodyStream {
	return &BodyStream{ctx: ctx, body: body, decode: decode}
}

// Next returns the next non-empty chunk.
func (s *BodyStream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		if err := s.ctx.Err(); err != nil {
			return "", err
		}
		text, err := s.decode()
		if err != nil {
			// A cancelled request surfaces as a read error on the body.
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			if errors.Is(err, io.EOF) {
				s.done = true
				return "", io.EOF
			}
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
}

// Close releases the connection.
func (s *BodyStream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}
