package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/specforge/internal/adapters/driving/tui/keymap"
)

func TestBar_DefaultReady(t *testing.T) {
	b := NewBar(nil)

	assert.Equal(t, StateReady, b.State())
	assert.Contains(t, b.View(), "Ready")
}

func TestBar_States(t *testing.T) {
	b := NewBar(nil)
	b.SetWidth(120)
	b.SetSession("Checkout")

	b.SetState(StateStreaming)
	assert.Contains(t, b.View(), "Writing...")
	assert.Contains(t, b.View(), "Checkout")

	b.SetState(StateVerifying)
	assert.Contains(t, b.View(), "Verifying...")

	b.SetError(errors.New("boom"))
	assert.Equal(t, StateError, b.State())
	assert.Contains(t, b.View(), "Error: boom")

	b.SetMessage("Updated: PRD")
	assert.Equal(t, StateReady, b.State())
	assert.Contains(t, b.View(), "Updated: PRD")

	b.SetState(StateReady)
	assert.Empty(t, b.Message())
}

func TestBar_Hints(t *testing.T) {
	b := NewBar(nil)
	b.SetWidth(160)
	b.SetHints(keymap.DefaultKeyMap().VerifierHelp())

	view := b.View()
	assert.Contains(t, view, "v: verify")
	assert.Contains(t, view, "x: dismiss")
}
