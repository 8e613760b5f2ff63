package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTUICmd_Registered(t *testing.T) {
	found, _, err := rootCmd.Find([]string{"tui"})
	require.NoError(t, err)
	assert.Equal(t, "tui", found.Name())
	assert.NotNil(t, found.RunE)
}

func TestTUICmd_RejectsArgs(t *testing.T) {
	setupTestServices(t, &scriptedLLM{})

	_, err := run(t, "", "tui", "extra")
	assert.Error(t, err)
}

func TestTUICmd_RequiresServices(t *testing.T) {
	unbind()

	err := runTUI(tuiCmd, nil)
	assert.EqualError(t, err, "services not configured")
}
