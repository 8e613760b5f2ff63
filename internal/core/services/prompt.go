package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// Section headers in the system instruction. Order is fixed: base
// instruction, existing documents, then the latest verification report.
const (
	existingDocsHeader = "EXISTING DOCUMENTS (FINAL AUTHORITATIVE STATE)"
	verifyReportHeader = "LATEST VERIFICATION REPORT"
)

const existingDocsDirective = `The documents below are the current, authoritative state of this project.
Never restart from scratch. Preserve every decision already made in them.
When you extend or revise a document, cite the existing documents by name.`

// Placeholders substituted into the guided-mode prompt. Any other text,
// including literal percent signs, is passed through unchanged.
const (
	GuidedDocTypePlaceholder  = "{{doc_type}}"
	GuidedTopicsPlaceholder   = "{{topics}}"
	GuidedGeneratePlaceholder = "{{generate_threshold}}"
	GuidedReadyPlaceholder    = "{{ready_threshold}}"
)

const verifyReportDirective = `A consistency review of the documents produced the report below.
Keep its open issues in mind and do not reintroduce resolved contradictions.`

// PromptBuilder assembles system instructions and directives.
type PromptBuilder struct {
	prompts   driven.PromptStore
	templates driven.TemplateStore
}

// NewPromptBuilder creates a prompt builder.
// templates may be nil, in which case no type has metadata.
func NewPromptBuilder(prompts driven.PromptStore, templates driven.TemplateStore) *PromptBuilder {
	return &PromptBuilder{prompts: prompts, templates: templates}
}

// SystemInstruction builds the chat and generation system instruction.
func (b *PromptBuilder) SystemInstruction(docs map[string]string, verifyReport string) (string, error) {
	base, err := b.prompts.Load(driven.PromptBaseSystem)
	if err != nil {
		return "", fmt.Errorf("load base prompt: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(base))

	if len(docs) > 0 {
		sb.WriteString("\n\n## ")
		sb.WriteString(existingDocsHeader)
		sb.WriteString("\n\n")
		sb.WriteString(existingDocsDirective)
		sb.WriteString("\n")
		writeDocuments(&sb, docs)
	}

	if report := strings.TrimSpace(verifyReport); report != "" {
		sb.WriteString("\n\n## ")
		sb.WriteString(verifyReportHeader)
		sb.WriteString("\n\n")
		sb.WriteString(verifyReportDirective)
		sb.WriteString("\n\n")
		sb.WriteString(report)
	}

	return sb.String(), nil
}

// DocumentDirective is the synthesized user turn asking for docType.
// The wording depends on what already exists.
func (b *PromptBuilder) DocumentDirective(docType string, docs map[string]string) string {
	dt := b.docType(docType)
	label := dt.Label()

	var sb strings.Builder
	switch _, exists := docs[docType]; {
	case exists:
		fmt.Fprintf(&sb, "Review the existing %s carefully and produce an updated and improved version. "+
			"Preserve the decisions it already records, fill any gaps, and keep it consistent with the other documents.", label)
	case len(docs) > 0:
		fmt.Fprintf(&sb, "Generate the %s. Use the existing documents (%s) as ground truth: "+
			"build upon them, do not contradict them, and reference them explicitly by name.",
			label, strings.Join(domain.SortedKeys(docs), ", "))
	default:
		fmt.Fprintf(&sb, "Based on our conversation, generate the %s.", label)
	}

	if dt.Meta != nil && dt.Meta.Instruction != "" {
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(dt.Meta.Instruction))
	}
	fmt.Fprintf(&sb, "\n\nReturn the complete document inside a ~~~doc:%s block.", docType)
	return sb.String()
}

// GuidedInstruction returns the guided-mode addition to the system
// instruction and the opening user turn for docType.
func (b *PromptBuilder) GuidedInstruction(docType string) (system, opener string, err error) {
	dt := b.docType(docType)
	if !dt.GuidedAvailable() {
		return "", "", fmt.Errorf("%w: %s", domain.ErrGuidedUnavailable, docType)
	}

	tmpl, err := b.prompts.Load(driven.PromptGuidedSystem)
	if err != nil {
		return "", "", fmt.Errorf("load guided prompt: %w", err)
	}

	var topics strings.Builder
	for i, topic := range dt.Meta.Topics {
		fmt.Fprintf(&topics, "%d. %s\n", i+1, topic)
	}

	system = strings.NewReplacer(
		GuidedDocTypePlaceholder, dt.Label(),
		GuidedTopicsPlaceholder, strings.TrimRight(topics.String(), "\n"),
		GuidedGeneratePlaceholder, strconv.Itoa(domain.GuidedGenerateThreshold),
		GuidedReadyPlaceholder, strconv.Itoa(domain.GuidedReadyThreshold),
	).Replace(tmpl)
	opener = fmt.Sprintf("Let's work on the %s together. Interview me one topic at a time.", dt.Label())
	return system, opener, nil
}

// VerifyPrompt returns the system instruction and user turn for analysis.
func (b *PromptBuilder) VerifyPrompt(docs map[string]string) (system, message string, err error) {
	system, err = b.prompts.Load(driven.PromptVerifySystem)
	if err != nil {
		return "", "", fmt.Errorf("load verify prompt: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Cross-check these %d documents for contradictions, gaps and inconsistencies.\n", len(docs))
	writeDocuments(&sb, docs)
	return strings.TrimSpace(system), sb.String(), nil
}

// HarmonizePrompt returns the system instruction and user turn for a fix.
func (b *PromptBuilder) HarmonizePrompt(docs map[string]string, report string) (system, message string, err error) {
	system, err = b.prompts.Load(driven.PromptHarmonizeSystem)
	if err != nil {
		return "", "", fmt.Errorf("load harmonize prompt: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Resolve the following issues by rewriting the affected documents.\n\n")
	sb.WriteString("## Issues\n\n")
	sb.WriteString(strings.TrimSpace(report))
	sb.WriteString("\n\n## Current documents\n")
	writeDocuments(&sb, docs)
	sb.WriteString("\nReturn every document you change in full inside its own ~~~doc:<Type> block. ")
	sb.WriteString("Do not return documents that need no change.")
	return strings.TrimSpace(system), sb.String(), nil
}

func (b *PromptBuilder) docType(key string) domain.DocType {
	if b.templates == nil {
		return domain.DocType{Key: key}
	}
	return b.templates.Get(key)
}

func writeDocuments(sb *strings.Builder, docs map[string]string) {
	for _, docType := range domain.SortedKeys(docs) {
		fmt.Fprintf(sb, "\n### %s\n\n%s\n", docType, strings.TrimSpace(docs[docType]))
	}
}

// FormatIssueReport renders issues as the textual report sent with a
// harmonize request.
func FormatIssueReport(issues []domain.VerifierIssue) string {
	var sb strings.Builder
	for i, issue := range issues {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "### %s [%s] %s\n", issue.ID, issue.Severity, issue.Title)
		if issue.Type != "" {
			fmt.Fprintf(&sb, "Type: %s\n", issue.Type)
		}
		if len(issue.AffectedDocs) > 0 {
			fmt.Fprintf(&sb, "Affected documents: %s\n", strings.Join(issue.AffectedDocs, ", "))
		}
		if issue.Description != "" {
			fmt.Fprintf(&sb, "%s\n", issue.Description)
		}
		for _, ev := range issue.Evidence {
			fmt.Fprintf(&sb, "> %s: %q\n", ev.Doc, ev.Quote)
		}
		if issue.Fix != "" {
			fmt.Fprintf(&sb, "Proposed fix: %s\n", issue.Fix)
		}
		if issue.TargetDoc != "" {
			fmt.Fprintf(&sb, "Suggested target: %s\n", issue.TargetDoc)
		}
	}
	return sb.String()
}
