package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/specforge/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal workspace",
	Long: `Launch the interactive terminal workspace.

Pick or create a session, chat with the model while documents are written,
browse the current documents and run the cross-document verifier.

Chat commands:
  /generate <type>  Write or revise one document
  /guided <type>    Start a topic-by-topic interview
  /chat             End the interview and chat freely

Controls:
  Enter    Open / Send
  Ctrl+O   Documents
  Ctrl+R   Verifier (v verify, a apply, A apply all, x dismiss)
  Ctrl+X   Stop the current reply
  Esc      Back
  Ctrl+C   Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if err := requireServices(); err != nil {
		return err
	}

	tuiApp, err := tui.NewApp(cmd.Context(), &tui.Ports{
		Sessions:     sessionService,
		Generation:   generationService,
		Verification: verificationService,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	p := tea.NewProgram(tuiApp, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
