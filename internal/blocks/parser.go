package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

var (
	docBlockRe    = regexp.MustCompile(`(?m)^~~~doc:([^\n]*)\n([\s\S]*?)^~~~[ \t\r]*$`)
	imageMarkerRe = regexp.MustCompile(`~~~image:([^\n]+?)~~~`)
	issuesBlockRe = regexp.MustCompile(`~~~issues[ \t]*\n?([\s\S]*?)~~~`)
	summaryRe     = regexp.MustCompile(`~~~summary[ \t]*\n?([\s\S]*?)~~~`)
	progressRe    = regexp.MustCompile(`✅\s*(\d+)\s*/\s*(\d+)\s*topics covered`)
	codeFenceRe   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n?(.*?)\\s*```$")
)

// ErrBlockMissing is returned by ExtractIssues when no issues block is present.
var ErrBlockMissing = errors.New("block missing")

// Parsed is the result of scanning text for document blocks.
type Parsed struct {
	// CleanText is the input with every complete document block removed.
	// It is not trimmed, so text without complete blocks is returned as is.
	CleanText string

	// Documents maps label to trimmed content. Later blocks win.
	Documents map[string]string
}

// ParseDocumentBlocks extracts ~~~doc:<Label> blocks from text.
func ParseDocumentBlocks(text string) Parsed {
	docs := make(map[string]string)
	matches := docBlockRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return Parsed{CleanText: text, Documents: docs}
	}

	var clean strings.Builder
	last := 0
	for _, m := range matches {
		clean.WriteString(text[last:m[0]])
		last = m[1]

		label := strings.TrimSpace(text[m[2]:m[3]])
		if label == "" {
			continue
		}
		docs[label] = strings.TrimSpace(text[m[4]:m[5]])
	}
	clean.WriteString(text[last:])

	return Parsed{CleanText: clean.String(), Documents: docs}
}

// ParseImageMarkers returns image descriptions in order of appearance.
// Duplicates are kept.
func ParseImageMarkers(text string) []string {
	var prompts []string
	for _, m := range imageMarkerRe.FindAllStringSubmatch(text, -1) {
		if p := strings.TrimSpace(m[1]); p != "" {
			prompts = append(prompts, p)
		}
	}
	return prompts
}

// ParseIssues returns the verifier issues in text. A missing or malformed
// block yields an empty list.
func ParseIssues(text string) []domain.VerifierIssue {
	issues, err := ExtractIssues(text)
	if err != nil {
		return []domain.VerifierIssue{}
	}
	return issues
}

// ExtractIssues is ParseIssues with the failure reason. Callers that only
// need the list should use ParseIssues.
func ExtractIssues(text string) ([]domain.VerifierIssue, error) {
	m := issuesBlockRe.FindStringSubmatch(text)
	if m == nil {
		return []domain.VerifierIssue{}, ErrBlockMissing
	}

	body := strings.TrimSpace(m[1])
	if fenced := codeFenceRe.FindStringSubmatch(body); fenced != nil {
		body = strings.TrimSpace(fenced[1])
	}
	if body == "" {
		return []domain.VerifierIssue{}, nil
	}

	var issues []domain.VerifierIssue
	if err := json.Unmarshal([]byte(body), &issues); err != nil {
		return []domain.VerifierIssue{}, fmt.Errorf("decode issues: %w", err)
	}

	assignIssueIDs(issues)
	for i := range issues {
		normalizeIssue(&issues[i])
	}
	if issues == nil {
		issues = []domain.VerifierIssue{}
	}
	return issues, nil
}

// assignIssueIDs makes every id unique within the run. Issues without an id,
// and repeats of an earlier id, get the first free R-NNN at or after their
// position.
func assignIssueIDs(issues []domain.VerifierIssue) {
	used := make(map[string]bool, len(issues))
	for i := range issues {
		issues[i].ID = strings.TrimSpace(issues[i].ID)
		if id := issues[i].ID; id != "" && !used[id] {
			used[id] = true
			continue
		}
		issues[i].ID = ""
	}
	for i := range issues {
		if issues[i].ID != "" {
			continue
		}
		for n := i + 1; ; n++ {
			id := fmt.Sprintf("R-%03d", n)
			if !used[id] {
				issues[i].ID = id
				used[id] = true
				break
			}
		}
	}
}

func normalizeIssue(issue *domain.VerifierIssue) {
	issue.Severity = domain.Severity(strings.ToLower(strings.TrimSpace(string(issue.Severity))))
	if !issue.Severity.IsValid() {
		issue.Severity = domain.SeverityWarning
	}
}

// ParseSummary returns the trimmed ~~~summary block, or "" when absent.
func ParseSummary(text string) string {
	m := summaryRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ParseProgress returns the last "✅ n/m topics covered" report in text.
func ParseProgress(text string) (domain.GuidedProgress, bool) {
	all := progressRe.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return domain.GuidedProgress{}, false
	}
	m := all[len(all)-1]
	covered, err1 := strconv.Atoi(m[1])
	total, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return domain.GuidedProgress{}, false
	}
	return domain.GuidedProgress{Covered: covered, Total: total}, true
}

// FormatDocumentBlock renders content as a ~~~doc block.
func FormatDocumentBlock(label, content string) string {
	return "~~~doc:" + label + "\n" + strings.TrimSpace(content) + "\n~~~"
}
