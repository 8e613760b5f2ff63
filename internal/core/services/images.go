package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/logger"
)

// DefaultImageConcurrency bounds parallel image requests.
const DefaultImageConcurrency = 4

// ImageRenderer turns ~~~image markers into images. Requests run
// concurrently and join before any result is returned. A failed prompt is
// recorded on its Image and never fails the batch.
type ImageRenderer struct {
	generator   driven.ImageGenerator
	concurrency int
}

// NewImageRenderer creates an image renderer. Returns nil if generator is nil.
func NewImageRenderer(generator driven.ImageGenerator, concurrency int) *ImageRenderer {
	if generator == nil {
		return nil
	}
	if concurrency <= 0 {
		concurrency = DefaultImageConcurrency
	}
	return &ImageRenderer{generator: generator, concurrency: concurrency}
}

// Render generates one image per prompt, preserving order.
func (r *ImageRenderer) Render(ctx context.Context, prompts []string) []domain.Image {
	images := make([]domain.Image, len(prompts))
	if r == nil || len(prompts) == 0 {
		for i, p := range prompts {
			images[i] = domain.Image{Prompt: p}
		}
		return images
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, prompt := range prompts {
		i, prompt := i, prompt
		g.Go(func() error {
			images[i] = domain.Image{Prompt: prompt}
			url, err := r.generator.Generate(ctx, prompt)
			if err != nil {
				logger.Warn("image %d (%q) failed: %v", i+1, prompt, err)
				images[i].Error = err.Error()
				return nil
			}
			images[i].URL = url
			return nil
		})
	}
	_ = g.Wait()

	return images
}
