package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
)

var chatCmd = &cobra.Command{
	Use:   "chat [session-id] [message]",
	Short: "Talk to the model within a session",
	Long: `Send a message and stream the reply. Documents the model writes are saved
to the session and earlier versions are kept in its history.

Without a message, chat reads one message per line from stdin until EOF
or /quit. Ctrl-C stops the current reply and keeps what arrived so far.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

var generateCmd = &cobra.Command{
	Use:   "generate [session-id] [doc-type]",
	Short: "Generate or revise one document",
	Long: `Ask the model to write the given document type from the conversation so far.
Use 'specforge doc types' to list document types; any other name creates a
custom document.`,
	Args: cobra.ExactArgs(2),
	RunE: runGenerate,
}

var guidedCmd = &cobra.Command{
	Use:   "guided [session-id] [doc-type]",
	Short: "Start a guided interview for a document",
	Long: `The model interviews you topic by topic. Answer one line at a time; the
reported coverage is shown after each reply.

The session stays in guided mode after you leave, so 'specforge chat'
continues the interview. Type /generate to write the document, /chat to end
the interview, or /quit to leave it open.`,
	Args: cobra.ExactArgs(2),
	RunE: runGuided,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(guidedCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	sessionID := args[0]

	if len(args) > 1 {
		return sendTurn(cmd, generationService.Send, driving.TurnRequest{
			SessionID: sessionID,
			Message:   strings.Join(args[1:], " "),
		})
	}

	return repl(cmd, func(line string) (bool, error) {
		return false, sendTurn(cmd, generationService.Send, driving.TurnRequest{
			SessionID: sessionID,
			Message:   line,
		})
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	return sendTurn(cmd, generationService.GenerateDocument, driving.TurnRequest{
		SessionID: args[0],
		DocType:   args[1],
	})
}

func runGuided(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	sessionID, docType := args[0], args[1]

	if err := sendTurn(cmd, generationService.StartGuided, driving.TurnRequest{
		SessionID: sessionID,
		DocType:   docType,
	}); err != nil {
		return err
	}
	printProgress(cmd, sessionID)

	return repl(cmd, func(line string) (bool, error) {
		switch line {
		case "/generate":
			return true, sendTurn(cmd, generationService.GenerateDocument, driving.TurnRequest{
				SessionID: sessionID,
				DocType:   docType,
			})
		case "/chat":
			if _, err := generationService.StopGuided(cmd.Context(), sessionID); err != nil {
				return true, fmt.Errorf("failed to end guided mode: %w", err)
			}
			cmd.Println("Guided interview ended.")
			return true, nil
		}
		if err := sendTurn(cmd, generationService.Send, driving.TurnRequest{
			SessionID: sessionID,
			Message:   line,
		}); err != nil {
			return false, err
		}
		printProgress(cmd, sessionID)
		return false, nil
	})
}

type turnFunc func(context.Context, driving.TurnRequest, driving.ChunkFunc) (*domain.TurnResult, error)

// sendTurn streams one round trip to stdout and reports what changed.
func sendTurn(cmd *cobra.Command, run turnFunc, req driving.TurnRequest) error {
	out := cmd.OutOrStdout()
	result, err := run(cmd.Context(), req, func(delta string) {
		fmt.Fprint(out, delta)
	})
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	printTurnResult(cmd, result)
	return nil
}

func printTurnResult(cmd *cobra.Command, result *domain.TurnResult) {
	switch {
	case result.Failed:
		cmd.Println(errorStyle.Render(result.Message.Content))
	case result.Cancelled:
		cmd.Println(mutedStyle.Render("(stopped early, partial reply kept)"))
	case result.Interrupted:
		cmd.Println(errorStyle.Render("(connection lost, partial reply kept)"))
	}
	if len(result.Changed) > 0 {
		cmd.Println(successStyle.Render("Updated: " + strings.Join(result.Changed, ", ")))
	}
	for _, img := range result.Message.Images {
		if img.Error != "" {
			cmd.Printf("%s %s: %s\n", errorStyle.Render("image failed"), img.Prompt, img.Error)
			continue
		}
		if img.URL != "" && !strings.HasPrefix(img.URL, "data:") {
			cmd.Printf("%s %s\n", mutedStyle.Render("image:"), img.URL)
		}
	}
}

func printProgress(cmd *cobra.Command, sessionID string) {
	progress, ok, err := generationService.Progress(cmd.Context(), sessionID)
	if err != nil || !ok {
		return
	}
	cmd.Println(progressBar(progress, 20))
}

// repl feeds stdin lines to handle until EOF, /quit, a cancelled context,
// or handle reports done.
func repl(cmd *cobra.Command, handle func(line string) (done bool, err error)) error {
	return readLines(cmd.Context(), cmd.InOrStdin(), func(line string) (bool, error) {
		cmd.Println()
		return handle(line)
	}, func() { cmd.Print(titleStyle.Render("> ")) })
}

func readLines(ctx context.Context, in io.Reader, handle func(string) (bool, error), prompt func()) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if ctx.Err() != nil {
			return nil
		}
		prompt()
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}
		done, err := handle(line)
		if err != nil || done {
			return err
		}
	}
}
