package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

func TestSeverityBadge(t *testing.T) {
	assert.Contains(t, severityBadge(domain.SeverityCritical), "CRITICAL")
	assert.Contains(t, severityBadge(domain.SeverityInfo), "INFO")
}

func TestProgressBar(t *testing.T) {
	empty := progressBar(domain.GuidedProgress{Covered: 0, Total: 8}, 10)
	assert.Contains(t, empty, "[----------] 0% (0/8 topics)")
	assert.NotContains(t, empty, "ready")

	full := progressBar(domain.GuidedProgress{Covered: 8, Total: 8}, 10)
	assert.Contains(t, full, "[##########] 100%")
	assert.Contains(t, full, "ready to generate")
}

func TestFormatIssue(t *testing.T) {
	issue := domain.VerifierIssue{
		ID:           "R-001",
		Severity:     domain.SeverityWarning,
		Title:        "Latency target differs",
		Description:  "PRD says 100ms, Tech Spec says 1s",
		AffectedDocs: []string{"PRD", "Tech Spec"},
		Evidence:     []domain.Evidence{{Doc: "PRD", Quote: "under 100ms"}},
		Fix:          "Use 100ms everywhere",
	}

	out := formatIssue(issue, domain.VerifierState{})
	assert.Contains(t, out, "R-001")
	assert.Contains(t, out, "Latency target differs")
	assert.Contains(t, out, "PRD, Tech Spec")
	assert.Contains(t, out, `"under 100ms"`)
	assert.Contains(t, out, "Use 100ms everywhere")
	assert.NotContains(t, out, "applied")

	applied := formatIssue(issue, domain.VerifierState{Applied: []string{"R-001"}})
	assert.Contains(t, applied, "applied")

	dismissed := formatIssue(issue, domain.VerifierState{Dismissed: []string{"R-001"}})
	assert.Contains(t, dismissed, "dismissed")
}
