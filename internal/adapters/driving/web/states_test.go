package web

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

func readyState() domain.VerifierState {
	return domain.VerifierState{
		Phase: domain.PhaseReady,
		Issues: []domain.VerifierIssue{
			{ID: "R-001", Severity: domain.SeverityCritical},
			{ID: "R-002", Severity: domain.SeverityWarning},
		},
		RawReport: "report",
	}
}

func TestVerifierStates_GetDefaultsToIdle(t *testing.T) {
	var states verifierStates

	assert.Equal(t, domain.PhaseIdle, states.get("s1").Phase)
	assert.Empty(t, states.report("s1"))

	states.put("s1", readyState())
	assert.Equal(t, "report", states.report("s1"))

	states.drop("s1")
	assert.Equal(t, domain.PhaseIdle, states.get("s1").Phase)
}

func TestVerifierStates_DismissWaitsForRunningUpdate(t *testing.T) {
	var states verifierStates
	states.put("s1", readyState())

	started := make(chan struct{})
	release := make(chan struct{})
	applied := make(chan domain.VerifierState, 1)
	go func() {
		state, err := states.tryUpdate("s1", func(s domain.VerifierState) (domain.VerifierState, error) {
			close(started)
			<-release
			return s.MarkApplied("R-001"), nil
		})
		assert.NoError(t, err)
		applied <- state
	}()
	<-started

	_, err := states.tryUpdate("s1", func(s domain.VerifierState) (domain.VerifierState, error) {
		return s, nil
	})
	assert.ErrorIs(t, err, domain.ErrGenerationInProgress)

	dismissed := make(chan domain.VerifierState, 1)
	go func() {
		state, err := states.update(context.Background(), "s1", func(s domain.VerifierState) (domain.VerifierState, error) {
			return s.Dismiss("R-002"), nil
		})
		assert.NoError(t, err)
		dismissed <- state
	}()

	select {
	case <-dismissed:
		t.Fatal("dismiss finished while the apply was still running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	<-applied
	<-dismissed
	final := states.get("s1")
	assert.True(t, final.IsApplied("R-001"))
	assert.True(t, final.IsDismissed("R-002"))
}

func TestVerifierStates_UpdateHonoursContext(t *testing.T) {
	var states verifierStates
	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	go func() {
		_, _ = states.tryUpdate("s1", func(s domain.VerifierState) (domain.VerifierState, error) {
			close(started)
			<-release
			return s, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := states.update(ctx, "s1", func(s domain.VerifierState) (domain.VerifierState, error) {
		return s, nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestVerifierStates_FailedUpdateKeepsState(t *testing.T) {
	var states verifierStates
	states.put("s1", readyState())

	_, err := states.tryUpdate("s1", func(s domain.VerifierState) (domain.VerifierState, error) {
		return domain.VerifierState{}, domain.ErrInsufficientDocuments
	})
	require.ErrorIs(t, err, domain.ErrInsufficientDocuments)
	assert.Equal(t, domain.PhaseReady, states.get("s1").Phase)
}
