package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

// Palette shared by CLI output.
var (
	colourCritical = lipgloss.Color("#F38BA8")
	colourWarning  = lipgloss.Color("#F9E2AF")
	colourInfo     = lipgloss.Color("#89B4FA")
	colourSuccess  = lipgloss.Color("#A6E3A1")
	colourMuted    = lipgloss.Color("#6C7086")
	colourAccent   = lipgloss.Color("#7C3AED")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(colourCritical)
	badgeStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

// severityBadge renders a coloured severity label.
func severityBadge(s domain.Severity) string {
	colour := colourInfo
	switch s {
	case domain.SeverityCritical:
		colour = colourCritical
	case domain.SeverityWarning:
		colour = colourWarning
	}
	return badgeStyle.Foreground(lipgloss.Color("#1E1E2E")).Background(colour).Render(strings.ToUpper(string(s)))
}

// progressBar renders guided-mode coverage, e.g. [#####-----] 50%.
func progressBar(p domain.GuidedProgress, width int) string {
	filled := p.Percent() * width / 100
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	label := fmt.Sprintf("[%s] %d%% (%d/%d topics)", bar, p.Percent(), p.Covered, p.Total)
	switch {
	case p.Ready():
		return successStyle.Render(label + " ready to generate")
	case p.CanGenerate():
		return successStyle.Render(label + " enough to draft")
	default:
		return mutedStyle.Render(label)
	}
}

// formatIssue renders one issue for the verification report.
func formatIssue(issue domain.VerifierIssue, state domain.VerifierState) string {
	var sb strings.Builder
	status := ""
	switch {
	case state.IsApplied(issue.ID):
		status = successStyle.Render(" applied")
	case state.IsDismissed(issue.ID):
		status = mutedStyle.Render(" dismissed")
	}
	fmt.Fprintf(&sb, "%s %s %s%s\n", severityBadge(issue.Severity), titleStyle.Render(issue.ID), issue.Title, status)
	if issue.Description != "" {
		fmt.Fprintf(&sb, "    %s\n", issue.Description)
	}
	if len(issue.AffectedDocs) > 0 {
		fmt.Fprintf(&sb, "    %s %s\n", mutedStyle.Render("Affects:"), strings.Join(issue.AffectedDocs, ", "))
	}
	for _, e := range issue.Evidence {
		fmt.Fprintf(&sb, "    %s %q\n", mutedStyle.Render(e.Doc+":"), e.Quote)
	}
	if issue.Fix != "" {
		fmt.Fprintf(&sb, "    %s %s\n", mutedStyle.Render("Fix:"), issue.Fix)
	}
	return sb.String()
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
