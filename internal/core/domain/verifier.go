package domain

import "slices"

// Severity ranks a verifier issue.
type Severity string

// Available severities.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// IsValid returns true if the severity is recognised.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// Evidence is a quote from one document supporting an issue.
type Evidence struct {
	Doc   string `json:"doc"`
	Quote string `json:"quote"`
}

// VerifierIssue is one cross-document problem found by a verification run.
// IDs such as "R-001" are only unique within a single run.
type VerifierIssue struct {
	ID           string     `json:"id"`
	Severity     Severity   `json:"severity"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	AffectedDocs []string   `json:"affectedDocs"`
	Evidence     []Evidence `json:"evidence"`
	Fix          string     `json:"fix"`

	// TargetDoc is advisory text for the harmonize prompt, not a constraint.
	TargetDoc string `json:"targetDoc"`
}

// VerifierPhase is the verification state machine position.
//
//	idle -> verifying -> ready -> (idle | harmonizing -> done)
//	ready -> verifying (re-verify), harmonizing -> ready (failure)
type VerifierPhase string

// Available phases.
const (
	PhaseIdle        VerifierPhase = "idle"
	PhaseVerifying   VerifierPhase = "verifying"
	PhaseReady       VerifierPhase = "ready"
	PhaseHarmonizing VerifierPhase = "harmonizing"
	PhaseDone        VerifierPhase = "done"
)

// VerifierState is the caller-owned report state. The verification engine
// takes it in and returns an updated copy; it never stores it.
type VerifierState struct {
	Phase     VerifierPhase   `json:"phase"`
	Issues    []VerifierIssue `json:"issues"`
	Summary   string          `json:"summary"`
	Dismissed []string        `json:"dismissed"`
	Applied   []string        `json:"applied"`
	RawReport string          `json:"rawReport"`

	// LastError describes the most recent transport failure, if any.
	LastError string `json:"lastError,omitempty"`
}

// NewVerifierState returns an idle state.
func NewVerifierState() VerifierState {
	return VerifierState{Phase: PhaseIdle}
}

// Reset clears the report ahead of a (re-)verification run.
func (v VerifierState) Reset() VerifierState {
	return VerifierState{Phase: PhaseIdle}
}

// Clone deep-copies the state.
func (v VerifierState) Clone() VerifierState {
	c := v
	c.Issues = slices.Clone(v.Issues)
	c.Dismissed = slices.Clone(v.Dismissed)
	c.Applied = slices.Clone(v.Applied)
	return c
}

// HasReport reports whether a fix can be applied from this state.
func (v VerifierState) HasReport() bool {
	return v.Phase == PhaseReady || v.Phase == PhaseDone
}

// IsDismissed reports whether the issue id was dismissed.
func (v VerifierState) IsDismissed(id string) bool {
	return slices.Contains(v.Dismissed, id)
}

// IsApplied reports whether the issue id was applied.
func (v VerifierState) IsApplied(id string) bool {
	return slices.Contains(v.Applied, id)
}

// Issue returns the open (not dismissed, not applied) issue with id.
func (v VerifierState) Issue(id string) (VerifierIssue, bool) {
	if v.IsDismissed(id) || v.IsApplied(id) {
		return VerifierIssue{}, false
	}
	for _, issue := range v.Issues {
		if issue.ID == id {
			return issue, true
		}
	}
	return VerifierIssue{}, false
}

// Outstanding returns open issues that apply-all should fix.
// Informational issues are excluded.
func (v VerifierState) Outstanding() []VerifierIssue {
	var out []VerifierIssue
	for _, issue := range v.Issues {
		if issue.Severity == SeverityInfo || v.IsDismissed(issue.ID) || v.IsApplied(issue.ID) {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// Dismiss records id as dismissed. Unknown ids are ignored.
func (v VerifierState) Dismiss(id string) VerifierState {
	c := v.Clone()
	if _, ok := c.Issue(id); ok {
		c.Dismissed = append(c.Dismissed, id)
	}
	return c
}

// MarkApplied records ids as applied.
func (v VerifierState) MarkApplied(ids ...string) VerifierState {
	c := v.Clone()
	for _, id := range ids {
		if !c.IsApplied(id) {
			c.Applied = append(c.Applied, id)
		}
	}
	return c
}

// CountBySeverity tallies open issues per severity.
func (v VerifierState) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, issue := range v.Issues {
		if v.IsDismissed(issue.ID) || v.IsApplied(issue.ID) {
			continue
		}
		counts[issue.Severity]++
	}
	return counts
}
