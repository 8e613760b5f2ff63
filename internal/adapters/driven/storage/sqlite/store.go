package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/specforge/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.SessionStore = (*Store)(nil)

// dbFileName is the database file inside the data directory.
const dbFileName = "sessions.db"

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a SQLite-backed session store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.specforge/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".specforge", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every *.up.sql newer than the recorded schema version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_sessions.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// List returns summaries of all sessions, most recently updated first.
func (s *Store) List(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.created_at, s.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
			(SELECT COUNT(*) FROM documents d WHERE d.session_id = s.id)
		FROM sessions s
		ORDER BY s.updated_at DESC, s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.SessionSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			sum                  domain.SessionSummary
			createdAt, updatedAt string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &createdAt, &updatedAt, &sum.MessageCount, &sum.DocumentCount); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if sum.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if sum.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return out, nil
}

// Get loads a full session. Returns domain.ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*domain.Session, error) {
	var (
		session              domain.Session
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, guided_doc_type, created_at, updated_at FROM sessions WHERE id = ?", id,
	).Scan(&session.ID, &session.Name, &session.GuidedDocType, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	if session.Messages, err = s.loadMessages(ctx, id); err != nil {
		return nil, err
	}
	if session.Documents, err = s.loadDocuments(ctx, id); err != nil {
		return nil, err
	}
	if session.DocumentHistory, err = s.loadVersions(ctx, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Save replaces the stored session in a single transaction.
func (s *Store) Save(ctx context.Context, session *domain.Session) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, name, guided_doc_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			guided_doc_type = excluded.guided_doc_type,
			updated_at = excluded.updated_at
	`, session.ID, session.Name, session.GuidedDocType, formatTime(session.CreatedAt), formatTime(session.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	for _, table := range []string{"messages", "documents", "document_versions"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", session.ID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err = insertMessages(ctx, tx, session); err != nil {
		return err
	}
	if err = insertDocuments(ctx, tx, session); err != nil {
		return err
	}
	if err = insertVersions(ctx, tx, session); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, session *domain.Session) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (session_id, position, id, role, content, images, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing message insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range session.Messages {
		images := m.Images
		if images == nil {
			images = []domain.Image{}
		}
		imagesJSON, err := json.Marshal(images)
		if err != nil {
			return fmt.Errorf("marshalling images: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, session.ID, i, m.ID, string(m.Role), m.Content,
			string(imagesJSON), formatTime(m.CreatedAt)); err != nil {
			return fmt.Errorf("saving message: %w", err)
		}
	}
	return nil
}

func insertDocuments(ctx context.Context, tx *sql.Tx, session *domain.Session) error {
	for _, docType := range domain.SortedKeys(session.Documents) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (session_id, doc_type, content) VALUES (?, ?, ?)",
			session.ID, docType, session.Documents[docType]); err != nil {
			return fmt.Errorf("saving document %s: %w", docType, err)
		}
	}
	return nil
}

func insertVersions(ctx context.Context, tx *sql.Tx, session *domain.Session) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_versions (session_id, position, doc_type, content, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing version insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range session.DocumentHistory {
		if _, err := stmt.ExecContext(ctx, session.ID, i, v.DocType, v.Content,
			string(v.Source), formatTime(v.Timestamp)); err != nil {
			return fmt.Errorf("saving version: %w", err)
		}
	}
	return nil
}

func (s *Store) loadMessages(ctx context.Context, id string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, images, created_at
		FROM messages WHERE session_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			m                     domain.Message
			role, images, created string
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &images, &created); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = domain.Role(role)
		if err := json.Unmarshal([]byte(images), &m.Images); err != nil {
			return nil, fmt.Errorf("unmarshaling images: %w", err)
		}
		if len(m.Images) == 0 {
			m.Images = nil
		}
		if m.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return out, nil
}

func (s *Store) loadDocuments(ctx context.Context, id string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT doc_type, content FROM documents WHERE session_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make(map[string]string)
	for rows.Next() {
		var docType, content string
		if err := rows.Scan(&docType, &content); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs[docType] = content
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func (s *Store) loadVersions(ctx context.Context, id string) ([]domain.DocVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_type, content, source, created_at
		FROM document_versions WHERE session_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	var out []domain.DocVersion //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			v               domain.DocVersion
			source, created string
		)
		if err := rows.Scan(&v.DocType, &v.Content, &source, &created); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		v.Source = domain.VersionSource(source)
		if v.Timestamp, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating versions: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
