package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

// exportHeader is the YAML frontmatter written above each exported document.
type exportHeader struct {
	Title     string    `yaml:"title"`
	DocType   string    `yaml:"doc_type"`
	Session   string    `yaml:"session"`
	SessionID string    `yaml:"session_id"`
	Versions  int       `yaml:"versions"`
	Exported  time.Time `yaml:"exported"`
}

var exportDir string

var sessionExportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Write a session's documents as markdown files",
	Long: `Write every current document of a session to its own markdown file.

Each file starts with YAML frontmatter naming the session, the document type
and the number of kept earlier versions.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionExport,
}

func init() {
	sessionExportCmd.Flags().StringVarP(&exportDir, "dir", "d", ".", "Output directory")
	sessionCmd.AddCommand(sessionExportCmd)
}

func runSessionExport(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	s, err := sessionService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if len(s.Documents) == 0 {
		cmd.Println("No documents to export.")
		return nil
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	for _, key := range domain.SortedKeys(s.Documents) {
		header := exportHeader{
			Title:     key,
			DocType:   key,
			Session:   s.Name,
			SessionID: s.ID,
			Versions:  len(s.HistoryFor(key)),
			Exported:  now,
		}
		data, err := renderExport(header, s.Documents[key])
		if err != nil {
			return err
		}
		path := filepath.Join(exportDir, exportFileName(key))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		cmd.Printf("Wrote %s\n", path)
	}
	cmd.Printf("Exported %d documents to %s\n", len(s.Documents), filepath.Clean(exportDir))
	return nil
}

// renderExport joins the frontmatter and the document body.
func renderExport(header exportHeader, content string) ([]byte, error) {
	meta, err := yaml.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimRight(content, "\n"))
	b.WriteString("\n")
	return b.Bytes(), nil
}

// exportFileName maps a document type to a file name, e.g. "Tech Spec" to
// "tech-spec.md".
func exportFileName(docType string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(docType) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "document"
	}
	return name + ".md"
}
