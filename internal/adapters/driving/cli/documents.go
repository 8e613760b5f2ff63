package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Read, edit and version a session's documents",
	Long: `Documents are keyed by type, for example "PRD" or "Tech Spec". Every change
keeps a snapshot of the previous content, so earlier versions can be
compared with the current one and restored.`,
}

var docListCmd = &cobra.Command{
	Use:   "list [session-id]",
	Short: "List the documents in a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocList,
}

var docShowCmd = &cobra.Command{
	Use:   "show [session-id] [doc-type]",
	Short: "Print a document",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocShow,
}

var docEditCmd = &cobra.Command{
	Use:   "edit [session-id] [doc-type]",
	Short: "Replace a document's content",
	Long: `Replace a document with the content of --file, or of stdin when no file is
given. The previous content is kept in the document's history.`,
	Args: cobra.ExactArgs(2),
	RunE: runDocEdit,
}

var docHistoryCmd = &cobra.Command{
	Use:   "history [session-id] [doc-type]",
	Short: "List earlier versions of a document",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocHistory,
}

var docDiffCmd = &cobra.Command{
	Use:   "diff [session-id] [doc-type] [index]",
	Short: "Compare an earlier version with the current document",
	Args:  cobra.ExactArgs(3),
	RunE:  runDocDiff,
}

var docRestoreCmd = &cobra.Command{
	Use:   "restore [session-id] [doc-type] [index]",
	Short: "Restore an earlier version",
	Args:  cobra.ExactArgs(3),
	RunE:  runDocRestore,
}

var docTypesCmd = &cobra.Command{
	Use:   "types [session-id]",
	Short: "List known document types",
	Long: `List the built-in document types. With a session id, custom types already
present in the session are listed too.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocTypes,
}

var docEditFile string

func init() {
	docEditCmd.Flags().StringVarP(&docEditFile, "file", "f", "", "Read content from a file instead of stdin")

	docCmd.AddCommand(docListCmd, docShowCmd, docEditCmd, docHistoryCmd, docDiffCmd, docRestoreCmd, docTypesCmd)
	rootCmd.AddCommand(docCmd)
}

func runDocList(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	s, err := sessionService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if len(s.Documents) == 0 {
		cmd.Println("No documents yet.")
		return nil
	}
	for _, key := range domain.SortedKeys(s.Documents) {
		versions := len(s.HistoryFor(key))
		cmd.Printf("  %-20s %4d lines  %d earlier versions\n", key, lineCount(s.Documents[key]), versions)
	}
	return nil
}

func runDocShow(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	s, err := sessionService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	content, ok := s.Documents[args[1]]
	if !ok {
		return fmt.Errorf("%w: no %q document in session", domain.ErrNotFound, args[1])
	}
	cmd.Println(content)
	return nil
}

func runDocEdit(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if docEditFile != "" {
		data, err = os.ReadFile(docEditFile)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return fmt.Errorf("%w: content is empty", domain.ErrInvalidInput)
	}
	if _, err := sessionService.EditDocument(cmd.Context(), args[0], args[1], content); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	cmd.Printf("Saved %s (%d lines)\n", args[1], lineCount(content))
	return nil
}

func runDocHistory(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	versions, err := sessionService.History(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(versions) == 0 {
		cmd.Println("No earlier versions.")
		return nil
	}
	for i, v := range versions {
		cmd.Printf("  [%d] %s  %-10s %s\n", i, v.Timestamp.Local().Format(timeFormat), v.Source, firstLine(v.Content, 60))
	}
	return nil
}

func runDocDiff(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	index, err := parseIndex(args[2])
	if err != nil {
		return err
	}
	diff, err := sessionService.CompareVersion(cmd.Context(), args[0], args[1], index)
	if err != nil {
		return fmt.Errorf("failed to compare: %w", err)
	}

	cmd.Printf("%s version %d (%s, %s) -> current\n", diff.DocType, index,
		diff.Version.Source, diff.Version.Timestamp.Local().Format(timeFormat))
	cmd.Println(mutedStyle.Render(fmt.Sprintf("+%d -%d", diff.Insertions, diff.Deletions)))
	if diff.Unified == "" {
		cmd.Println("No changes.")
		return nil
	}
	for _, line := range strings.Split(strings.TrimRight(diff.Unified, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			cmd.Println(successStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			cmd.Println(errorStyle.Render(line))
		default:
			cmd.Println(line)
		}
	}
	return nil
}

func runDocRestore(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	index, err := parseIndex(args[2])
	if err != nil {
		return err
	}
	if _, err := sessionService.RestoreVersion(cmd.Context(), args[0], args[1], index); err != nil {
		return fmt.Errorf("failed to restore: %w", err)
	}
	cmd.Printf("Restored %s to version %d\n", args[1], index)
	return nil
}

func runDocTypes(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return fmt.Errorf("services not configured")
	}

	var docs map[string]string
	if len(args) == 1 {
		if err := requireServices(); err != nil {
			return err
		}
		s, err := sessionService.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
		docs = s.Documents
	}

	for _, dt := range catalogService.DocTypes(docs) {
		guided := ""
		if dt.GuidedAvailable() {
			guided = mutedStyle.Render(" (guided)")
		}
		desc := ""
		if dt.Meta != nil {
			desc = dt.Meta.Description
		}
		cmd.Printf("  %-20s %s%s\n", dt.Key, desc, guided)
	}
	return nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: index must be a non-negative number", domain.ErrInvalidInput)
	}
	return i, nil
}
