package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.specforge/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".specforge", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt for name.
// On first call, initialises the prompt directory and creates default files.
// An unreadable or empty user file falls back to the embedded default.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil || prompt == "" {
		fallback, defErr := readDefault(name + promptExt)
		if defErr != nil {
			if err == nil {
				err = defErr
			}
			return "", fmt.Errorf("load prompt %q: %w", name, err)
		}
		prompt = strings.TrimSpace(fallback)
	}

	// Double-check so a concurrent load is not overwritten.
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// Err reports why the prompt directory could not be prepared, if it could not.
// Loads still succeed from embedded defaults in that case.
func (s *PromptStore) Err() error {
	s.initOnce.Do(s.initialise)
	return s.initErr
}

// initialise creates the prompt directory and default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for _, name := range defaultPromptNames() {
		path := filepath.Join(s.promptDir, name+promptExt)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		content, err := readDefault(name + promptExt)
		if err != nil {
			s.initErr = err
			return
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+promptExt))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# SpecForge Prompts

This directory contains the instructions SpecForge sends to the model.

## Files

- ` + "`base_system.md`" + ` - Chat and document generation, including the ~~~doc and ~~~image markers
- ` + "`verify_system.md`" + ` - Cross-document review producing ~~~issues and ~~~summary blocks
- ` + "`harmonize_system.md`" + ` - Rewrites documents to resolve review findings
- ` + "`guided_system.md`" + ` - Guided interview mode

## Customisation

Edit any file to change behaviour. A running server picks up changes
automatically. Delete a file to restore its default on the next start.

## Format Placeholders

` + "`guided_system.md`" + ` uses two ` + "`%s`" + ` placeholders: the document name,
then the numbered topic list. Keep both in order.

The block markers (~~~doc, ~~~image, ~~~issues, ~~~summary) are parsed by
SpecForge; changing their format breaks document extraction.
`
	return os.WriteFile(path, []byte(content), 0600)
}
