package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [session-id]",
	Short: "Cross-check a session's documents",
	Long: `Ask the model to review every document in the session for contradictions,
gaps and inconsistencies. At least two documents are required.

Fixes can be applied in the same run: --apply rewrites the documents for
the given issue ids, --apply-all for every open warning and critical issue.
A snapshot of each document is kept before fixes are applied.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

var (
	verifyApply    []string
	verifyApplyAll bool
	verifyDismiss  []string
	verifyStream   bool
)

func init() {
	verifyCmd.Flags().StringSliceVar(&verifyApply, "apply", nil, "Issue ids to fix after verifying")
	verifyCmd.Flags().BoolVar(&verifyApplyAll, "apply-all", false, "Fix every open warning and critical issue")
	verifyCmd.Flags().StringSliceVar(&verifyDismiss, "dismiss", nil, "Issue ids to ignore for --apply-all")
	verifyCmd.Flags().BoolVar(&verifyStream, "stream", false, "Print the raw model output while it streams")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	ctx := cmd.Context()
	sessionID := args[0]

	ok, err := verificationService.CanVerify(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: write more documents before verifying", domain.ErrInsufficientDocuments)
	}

	out := io.Discard
	if verifyStream {
		out = cmd.OutOrStdout()
	}
	onChunk := func(delta string) { fmt.Fprint(out, delta) }

	cmd.Println(mutedStyle.Render("Verifying documents..."))
	state, err := verificationService.Verify(ctx, sessionID, domain.NewVerifierState(), onChunk)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	if state.LastError != "" {
		return errors.New(state.LastError)
	}

	for _, id := range verifyDismiss {
		if state, err = verificationService.Dismiss(state, id); err != nil {
			return err
		}
	}
	printReport(cmd, state)

	for _, id := range verifyApply {
		cmd.Printf("\nApplying %s...\n", id)
		if state, err = verificationService.ApplyFix(ctx, sessionID, state, id, onChunk); err != nil {
			return fmt.Errorf("apply %s: %w", id, err)
		}
		if err := reportApply(cmd, state); err != nil {
			return err
		}
	}

	if verifyApplyAll {
		if len(state.Outstanding()) == 0 {
			cmd.Println("\nNothing to apply.")
			return nil
		}
		cmd.Printf("\nApplying %d fixes...\n", len(state.Outstanding()))
		if state, err = verificationService.ApplyAll(ctx, sessionID, state, onChunk); err != nil {
			return fmt.Errorf("apply all: %w", err)
		}
		if err := reportApply(cmd, state); err != nil {
			return err
		}
	}
	return nil
}

func reportApply(cmd *cobra.Command, state domain.VerifierState) error {
	if state.LastError != "" {
		return errors.New(state.LastError)
	}
	cmd.Println(successStyle.Render(fmt.Sprintf("Applied: %v", state.Applied)))
	return nil
}

func printReport(cmd *cobra.Command, state domain.VerifierState) {
	cmd.Println()
	cmd.Println(titleStyle.Render("Verification report"))
	if state.Summary != "" {
		cmd.Println(state.Summary)
	}
	cmd.Println()

	if len(state.Issues) == 0 {
		cmd.Println(successStyle.Render("No issues found."))
		return
	}

	counts := state.CountBySeverity()
	cmd.Printf("%d critical, %d warnings, %d info\n\n",
		counts[domain.SeverityCritical], counts[domain.SeverityWarning], counts[domain.SeverityInfo])
	for _, issue := range state.Issues {
		cmd.Print(formatIssue(issue, state))
		cmd.Println()
	}
}
