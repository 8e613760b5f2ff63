package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/logger"
)

// Ensure TemplateStore implements the interface.
var _ driven.TemplateStore = (*TemplateStore)(nil)

// catalogFile is the TOML layout of doctypes.toml.
type catalogFile struct {
	DocTypes []catalogEntry `toml:"doctype"`
}

type catalogEntry struct {
	Key string `toml:"key"`
	domain.DocTypeMeta
}

// TemplateStore serves the document-type catalog from a user-editable TOML
// file, seeded from the embedded catalog on first use.
type TemplateStore struct {
	mu    sync.RWMutex
	path  string
	types []domain.DocType
	index map[string]int
}

// NewTemplateStore loads the catalog from dir/doctypes.toml, creating it
// from defaults if missing. If dir is empty, defaults to ~/.specforge.
func NewTemplateStore(dir string) (*TemplateStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".specforge")
	}

	s := &TemplateStore{path: filepath.Join(dir, templatesFile)}
	if err := s.seed(); err != nil {
		return nil, err
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewDefaultTemplateStore serves only the embedded catalog and never
// touches disk.
func NewDefaultTemplateStore() (*TemplateStore, error) {
	content, err := readDefault(templatesFile)
	if err != nil {
		return nil, err
	}
	types, err := parseCatalog([]byte(content))
	if err != nil {
		return nil, err
	}
	s := &TemplateStore{}
	s.set(types)
	return s, nil
}

// List returns the catalog in file order.
func (s *TemplateStore) List() []domain.DocType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DocType(nil), s.types...)
}

// Get returns the type for key; unknown keys come back without metadata.
func (s *TemplateStore) Get(key string) domain.DocType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[key]; ok {
		return s.types[i]
	}
	return domain.DocType{Key: key}
}

// Reload re-reads the catalog file. On a parse error the previous catalog
// stays active.
func (s *TemplateStore) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	types, err := parseCatalog(data)
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	s.set(types)
	logger.Debug("loaded %d document types from %s", len(types), s.path)
	return nil
}

// Path returns the catalog file path, or "" for the embedded catalog.
func (s *TemplateStore) Path() string {
	return s.path
}

func (s *TemplateStore) seed() error {
	if _, err := os.Stat(s.path); !os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}
	content, err := readDefault(templatesFile)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(content), 0600)
}

func (s *TemplateStore) set(types []domain.DocType) {
	index := make(map[string]int, len(types))
	for i, dt := range types {
		index[dt.Key] = i
	}
	s.mu.Lock()
	s.types = types
	s.index = index
	s.mu.Unlock()
}

func parseCatalog(data []byte) ([]domain.DocType, error) {
	var f catalogFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse document types: %w", err)
	}

	types := make([]domain.DocType, 0, len(f.DocTypes))
	seen := make(map[string]bool, len(f.DocTypes))
	for _, e := range f.DocTypes {
		key := strings.TrimSpace(e.Key)
		if key == "" {
			return nil, fmt.Errorf("%w: document type without key", domain.ErrInvalidInput)
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate document type %q", domain.ErrInvalidInput, key)
		}
		seen[key] = true
		meta := e.DocTypeMeta
		types = append(types, domain.DocType{Key: key, Meta: &meta})
	}
	return types, nil
}
