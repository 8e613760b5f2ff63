package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRenderer_NilGenerator(t *testing.T) {
	r := NewImageRenderer(nil, 4)
	assert.Nil(t, r)

	got := r.Render(context.Background(), []string{"a", "b"})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Prompt)
	assert.Empty(t, got[0].URL)
}

func TestImageRenderer_PreservesOrderAndRecordsFailures(t *testing.T) {
	gen := &mockImages{fail: map[string]bool{"bad": true}}
	r := NewImageRenderer(gen, 2)

	prompts := []string{"one", "bad", "three", "four", "five"}
	got := r.Render(context.Background(), prompts)

	require.Len(t, got, len(prompts))
	for i, p := range prompts {
		assert.Equal(t, p, got[i].Prompt)
	}
	assert.Equal(t, "https://img.test/one", got[0].URL)
	assert.Empty(t, got[1].URL)
	assert.Equal(t, "content policy", got[1].Error)
	assert.Equal(t, "https://img.test/five", got[4].URL)
	assert.LessOrEqual(t, gen.peak, 2)
}

func TestImageRenderer_Empty(t *testing.T) {
	r := NewImageRenderer(&mockImages{}, 0)
	assert.Equal(t, DefaultImageConcurrency, r.concurrency)
	assert.Empty(t, r.Render(context.Background(), nil))
}
