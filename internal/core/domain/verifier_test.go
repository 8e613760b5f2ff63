package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyState() VerifierState {
	return VerifierState{
		Phase: PhaseReady,
		Issues: []VerifierIssue{
			{ID: "R-001", Severity: SeverityCritical, TargetDoc: "PRD"},
			{ID: "R-002", Severity: SeverityWarning, TargetDoc: "Architecture"},
			{ID: "R-003", Severity: SeverityInfo},
		},
		Summary:   "summary",
		RawReport: "raw",
	}
}

func TestVerifierState_Reset(t *testing.T) {
	s := readyState().Dismiss("R-001").MarkApplied("R-002")

	reset := s.Reset()

	assert.Equal(t, PhaseIdle, reset.Phase)
	assert.Empty(t, reset.Issues)
	assert.Empty(t, reset.Summary)
	assert.Empty(t, reset.Dismissed)
	assert.Empty(t, reset.Applied)
	assert.Empty(t, reset.RawReport)
}

func TestVerifierState_Dismiss(t *testing.T) {
	base := readyState()
	s := base.Dismiss("R-001")

	assert.True(t, s.IsDismissed("R-001"))
	assert.False(t, base.IsDismissed("R-001"), "receiver must not change")

	_, ok := s.Issue("R-001")
	assert.False(t, ok)

	unknown := s.Dismiss("R-999")
	assert.Equal(t, []string{"R-001"}, unknown.Dismissed)
}

func TestVerifierState_MarkApplied_Dedup(t *testing.T) {
	s := readyState().MarkApplied("R-001", "R-001", "R-002")
	assert.Equal(t, []string{"R-001", "R-002"}, s.Applied)
}

func TestVerifierState_Outstanding(t *testing.T) {
	s := readyState()
	out := s.Outstanding()
	require.Len(t, out, 2)
	assert.Equal(t, "R-001", out[0].ID)
	assert.Equal(t, "R-002", out[1].ID)

	s = s.Dismiss("R-001")
	out = s.Outstanding()
	require.Len(t, out, 1)
	assert.Equal(t, "R-002", out[0].ID)
}

func TestVerifierState_CountBySeverity(t *testing.T) {
	counts := readyState().MarkApplied("R-002").CountBySeverity()
	assert.Equal(t, 1, counts[SeverityCritical])
	assert.Equal(t, 0, counts[SeverityWarning])
	assert.Equal(t, 1, counts[SeverityInfo])
}

func TestVerifierState_HasReport(t *testing.T) {
	assert.False(t, NewVerifierState().HasReport())
	assert.True(t, readyState().HasReport())
	s := readyState()
	s.Phase = PhaseDone
	assert.True(t, s.HasReport())
}

func TestSeverity_IsValid(t *testing.T) {
	assert.True(t, SeverityCritical.IsValid())
	assert.True(t, SeverityWarning.IsValid())
	assert.True(t, SeverityInfo.IsValid())
	assert.False(t, Severity("fatal").IsValid())
}

func TestGuidedProgress(t *testing.T) {
	tests := []struct {
		name        string
		progress    GuidedProgress
		percent     int
		canGenerate bool
		ready       bool
	}{
		{name: "zero total", progress: GuidedProgress{}, percent: 0},
		{name: "half", progress: GuidedProgress{Covered: 4, Total: 8}, percent: 50},
		{name: "sixty", progress: GuidedProgress{Covered: 6, Total: 10}, percent: 60, canGenerate: true},
		{name: "eighty", progress: GuidedProgress{Covered: 4, Total: 5}, percent: 80, canGenerate: true, ready: true},
		{name: "over reported", progress: GuidedProgress{Covered: 9, Total: 8}, percent: 100, canGenerate: true, ready: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.percent, tt.progress.Percent())
			assert.Equal(t, tt.canGenerate, tt.progress.CanGenerate())
			assert.Equal(t, tt.ready, tt.progress.Ready())
		})
	}
}
