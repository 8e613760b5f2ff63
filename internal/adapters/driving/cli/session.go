package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

const timeFormat = "2006-01-02 15:04"

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage planning sessions",
	Long:  `Create, list, inspect, rename or delete planning sessions.`,
	RunE:  runSessionList,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionNew,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show a session's documents and recent messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionRenameCmd = &cobra.Command{
	Use:   "rename [session-id] [name]",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionRename,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session and its history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

// showMessages is the number of trailing messages session show prints.
var showMessages int

func init() {
	sessionShowCmd.Flags().IntVarP(&showMessages, "messages", "m", 4, "Number of recent messages to print")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionRenameCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionList(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	sessions, err := sessionService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		cmd.Println("No sessions yet. Create one with 'specforge session new'.")
		return nil
	}

	for _, s := range sessions {
		cmd.Printf("%s  %s\n", s.ID, titleStyle.Render(s.Name))
		cmd.Printf("    %s\n", mutedStyle.Render(fmt.Sprintf("updated %s, %d messages, %d documents",
			s.UpdatedAt.Local().Format(timeFormat), s.MessageCount, s.DocumentCount)))
	}
	cmd.Printf("\nTotal: %d sessions\n", len(sessions))
	return nil
}

func runSessionNew(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	}
	session, err := sessionService.Create(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	cmd.Printf("Created session %s (%s)\n", session.ID, session.Name)
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	session, err := sessionService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	cmd.Println(titleStyle.Render(session.Name))
	cmd.Printf("  ID:      %s\n", session.ID)
	cmd.Printf("  Created: %s\n", session.CreatedAt.Local().Format(timeFormat))
	cmd.Printf("  Updated: %s\n", session.UpdatedAt.Local().Format(timeFormat))
	cmd.Println()

	cmd.Println("Documents:")
	if len(session.Documents) == 0 {
		cmd.Println(mutedStyle.Render("  (none)"))
	}
	for _, key := range domain.SortedKeys(session.Documents) {
		versions := len(session.HistoryFor(key))
		cmd.Printf("  %-14s %5d lines, %d earlier versions\n", key, lineCount(session.Documents[key]), versions)
	}

	if showMessages > 0 && len(session.Messages) > 0 {
		cmd.Println()
		cmd.Println("Recent messages:")
		msgs := session.Messages
		if len(msgs) > showMessages {
			msgs = msgs[len(msgs)-showMessages:]
		}
		for _, m := range msgs {
			cmd.Printf("  %s %s\n", mutedStyle.Render(string(m.Role)+":"), firstLine(m.Content, 100))
		}
	}
	return nil
}

func runSessionRename(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if err := sessionService.Rename(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	cmd.Printf("Renamed session %s to %s\n", args[0], strings.TrimSpace(args[1]))
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if err := sessionService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	cmd.Printf("Deleted session %s\n", args[0])
	return nil
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// firstLine returns the first non-empty line of s, cut to limit runes.
func firstLine(s string, limit int) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > limit {
			return string(r[:limit]) + "..."
		}
		return line
	}
	return ""
}
