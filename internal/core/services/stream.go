package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

// streamOutcome classifies how a round trip ended.
type streamOutcome int

const (
	streamCompleted streamOutcome = iota
	streamCancelled
	streamFailed
)

// collect runs one request and accumulates the streamed text. It never
// returns partial text without also reporting why the stream stopped.
// observe, when set, sees every chunk before onChunk does.
func collect(
	ctx context.Context,
	llm driven.GenerationService,
	req driven.GenerationRequest,
	observe func(string),
	onChunk driving.ChunkFunc,
) (string, streamOutcome, error) {
	stream, err := llm.Stream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", streamCancelled, ctx.Err()
		}
		return "", streamFailed, fmt.Errorf("start stream: %w", err)
	}
	defer stream.Close()

	var buf strings.Builder
	for {
		chunk, err := stream.Next()
		if chunk != "" {
			buf.WriteString(chunk)
			if observe != nil {
				observe(chunk)
			}
			if onChunk != nil {
				onChunk(chunk)
			}
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			return buf.String(), streamCompleted, nil
		case ctx.Err() != nil || errors.Is(err, context.Canceled):
			return buf.String(), streamCancelled, err
		default:
			return buf.String(), streamFailed, fmt.Errorf("read stream: %w", err)
		}
	}
}
