package streaming

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// Ensure RateLimited implements the interface.
var _ driven.GenerationService = (*RateLimited)(nil)

// RateLimited delays Stream calls so no more than the configured number of
// requests start per minute. Ping and Close pass straight through.
type RateLimited struct {
	driven.GenerationService
	limiter *rate.Limiter
}

// WithRateLimit wraps svc. A non-positive perMinute returns svc unchanged.
func WithRateLimit(svc driven.GenerationService, perMinute int) driven.GenerationService {
	if svc == nil || perMinute <= 0 {
		return svc
	}
	every := time.Minute / time.Duration(perMinute)
	return &RateLimited{
		GenerationService: svc,
		limiter:           rate.NewLimiter(rate.Every(every), 1),
	}
}

// Stream waits for a token and then starts the request.
func (r *RateLimited) Stream(ctx context.Context, req driven.GenerationRequest) (driven.TextStream, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return r.GenerationService.Stream(ctx, req)
}
