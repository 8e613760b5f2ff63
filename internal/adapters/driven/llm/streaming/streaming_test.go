package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

func TestSSEReader(t *testing.T) {
	body := ": keep-alive\n\n" +
		"event: message_start\r\ndata: {\"a\":1}\r\n\r\n" +
		"data: line one\ndata: line two\n\n" +
		"event: ping\n\n" +
		"data:tight"

	r := NewSSEReader(strings.NewReader(body))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Event{Name: "message_start", Data: `{"a":1}`}, ev)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", ev.Data)
	assert.Empty(t, ev.Name)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "tight", ev.Data, "trailing event without blank line")

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineReader(t *testing.T) {
	r := NewLineReader(strings.NewReader("{\"a\":1}\n\n  \n{\"b\":2}"))

	line, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(line))

	line, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(line))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

type closer struct{ closed int }

func (c *closer) Close() error { c.closed++; return nil }

func TestBodyStream(t *testing.T) {
	t.Run("skips empty deltas and ends on EOF", func(t *testing.T) {
		deltas := []string{"a", "", "b"}
		body := &closer{}
		s := NewBodyStream(context.Background(), body, func() (string, error) {
			if len(deltas) == 0 {
				return "", io.EOF
			}
			d := deltas[0]
			deltas = deltas[1:]
			return d, nil
		})

		var got []string
		for {
			chunk, err := s.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			got = append(got, chunk)
		}
		assert.Equal(t, []string{"a", "b"}, got)

		_, err := s.Next()
		assert.ErrorIs(t, err, io.EOF)

		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
		assert.Equal(t, 1, body.closed)
	})

	t.Run("cancellation wins over read errors", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		s := NewBodyStream(ctx, &closer{}, func() (string, error) {
			cancel()
			return "", errors.New("use of closed network connection")
		})
		_, err := s.Next()
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("decode errors pass through", func(t *testing.T) {
		s := NewBodyStream(context.Background(), &closer{}, func() (string, error) {
			return "", ErrUnexpectedEOF
		})
		_, err := s.Next()
		assert.ErrorIs(t, err, ErrUnexpectedEOF)
	})
}

func TestCheckResponse(t *testing.T) {
	ok := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}
	assert.NoError(t, CheckResponse("test", ok))

	bad := &http.Response{StatusCode: http.StatusTooManyRequests, Body: io.NopCloser(strings.NewReader(" slow down \n"))}
	err := CheckResponse("test", bad)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "test: API returned status 429: slow down", err.Error())
}

type countingService struct {
	driven.GenerationService
	calls int
}

func (c *countingService) Stream(context.Context, driven.GenerationRequest) (driven.TextStream, error) {
	c.calls++
	return nil, nil
}

func TestWithRateLimit(t *testing.T) {
	inner := &countingService{}
	assert.Same(t, driven.GenerationService(inner), WithRateLimit(inner, 0))

	limited := WithRateLimit(inner, 1)
	_, err := limited.Stream(context.Background(), driven.GenerationRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Stream(ctx, driven.GenerationRequest{})
	assert.Error(t, err, "second request within the minute must wait")
	assert.Equal(t, 1, inner.calls)
}
