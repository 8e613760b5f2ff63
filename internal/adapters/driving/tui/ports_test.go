package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPorts_Validate(t *testing.T) {
	core := newTestCore(t, &scriptedLLM{})
	full := portsFor(core)

	tests := []struct {
		name  string
		ports *Ports
		err   error
	}{
		{name: "nil ports", ports: nil, err: ErrMissingSessionService},
		{name: "missing sessions", ports: &Ports{Generation: full.Generation, Verification: full.Verification}, err: ErrMissingSessionService},
		{name: "missing generation", ports: &Ports{Sessions: full.Sessions, Verification: full.Verification}, err: ErrMissingGenerationService},
		{name: "missing verification", ports: &Ports{Sessions: full.Sessions, Generation: full.Generation}, err: ErrMissingVerificationService},
		{name: "complete", ports: full},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
