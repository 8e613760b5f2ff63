package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/specforge/internal/adapters/driven/llm/streaming"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

func drain(s driven.TextStream) (string, error) {
	defer s.Close()
	var sb strings.Builder
	for {
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
}

func TestStream(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"~~~doc:PRD\\n\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"body\\n~~~\"},\"finish_reason\":\"stop\"}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	stream, err := svc.Stream(context.Background(), driven.GenerationRequest{
		Model:             "gpt-override",
		SystemInstruction: "sys",
		History:           []driven.Turn{{Role: domain.RoleModel, Text: "earlier"}},
		Message:           "now",
	})
	require.NoError(t, err)

	text, err := drain(stream)
	require.NoError(t, err)
	assert.Equal(t, "~~~doc:PRD\nbody\n~~~", text)

	assert.Equal(t, "gpt-override", got.Model)
	assert.True(t, got.Stream)
	assert.Equal(t, []chatCompletionMsg{
		{Role: "system", Content: "sys"},
		{Role: "assistant", Content: "earlier"},
		{Role: "user", Content: "now"},
	}, got.Messages)
}

func TestStream_MissingDoneIsTruncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"half\"}}]}\n\n")
	}))
	defer srv.Close()

	svc, _ := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	stream, err := svc.Stream(context.Background(), driven.GenerationRequest{Message: "x"})
	require.NoError(t, err)

	text, err := drain(stream)
	assert.Equal(t, "half", text)
	assert.ErrorIs(t, err, streaming.ErrUnexpectedEOF)
}

func TestStream_CancelMidStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	svc, _ := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := svc.Stream(ctx, driven.GenerationRequest{Message: "x"})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "first", chunk)

	cancel()
	_, err = stream.Next()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	good, _ := NewLLMService(LLMConfig{APIKey: "good", BaseURL: srv.URL})
	assert.NoError(t, good.Ping(context.Background()))
	bad, _ := NewLLMService(LLMConfig{APIKey: "bad", BaseURL: srv.URL})
	assert.Error(t, bad.Ping(context.Background()))
}

func TestImageService(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr string
	}{
		{
			name:   "base64 payload becomes data url",
			status: http.StatusOK,
			body:   `{"data":[{"b64_json":"iVBORw0"}]}`,
			want:   "data:image/png;base64,iVBORw0",
		},
		{
			name:   "hosted url passes through",
			status: http.StatusOK,
			body:   `{"data":[{"url":"https://cdn.test/a.png"}]}`,
			want:   "https://cdn.test/a.png",
		},
		{
			name:    "content policy rejection",
			status:  http.StatusBadRequest,
			body:    `{"error":{"message":"rejected by safety system"}}`,
			wantErr: "safety system",
		},
		{
			name:    "empty data",
			status:  http.StatusOK,
			body:    `{"data":[]}`,
			wantErr: "no image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got imageRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/images/generations", r.URL.Path)
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			svc, err := NewImageService(ImageConfig{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)

			url, err := svc.Generate(context.Background(), "a diagram")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, url)
			assert.Equal(t, "a diagram", got.Prompt)
			assert.Equal(t, DefaultImageModel, got.Model)
			assert.Equal(t, 1, got.N)
		})
	}
}
