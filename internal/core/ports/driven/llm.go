// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

// GenerationService is the streaming language model behind chat, document
// generation, verification and harmonization.
//
// Implementations include:
//   - Gemini (default)
//   - Anthropic (Claude)
//   - OpenAI
//   - Ollama (local models)
type GenerationService interface {
	// Stream starts one round trip and returns the incremental text.
	// Transport and non-success status errors are returned here or from Next.
	Stream(ctx context.Context, req GenerationRequest) (TextStream, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// TextStream yields text chunks in order.
type TextStream interface {
	// Next returns the next chunk. It returns io.EOF when the stream closed
	// normally and ctx.Err() once the request context is cancelled.
	Next() (string, error)

	// Close stops the stream and releases the connection.
	Close() error
}

// Turn is one prior conversation turn.
type Turn struct {
	Role domain.Role `json:"role"`
	Text string      `json:"text"`
}

// GenerationRequest is a single call to the generation service.
type GenerationRequest struct {
	// Model overrides the adapter's configured model when set.
	Model string

	SystemInstruction string
	Temperature       float64
	MaxOutputTokens   int

	// History holds prior turns, oldest first, alternating user and model.
	History []Turn

	// Message is the new user turn.
	Message string
}

// ImageGenerator renders one image per prompt.
// This is an optional service; when nil, image markers are left unrendered.
type ImageGenerator interface {
	// Generate returns a URL or data: URL for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}
