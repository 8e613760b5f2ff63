package driving

import (
	"context"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

// SessionService manages sessions and their documents.
// Every returned session is a copy; mutating it has no effect.
type SessionService interface {
	// Create starts an empty session. An empty name uses the default name.
	Create(ctx context.Context, name string) (*domain.Session, error)

	// Get returns the session with id.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// List returns summaries ordered by most recently updated first.
	List(ctx context.Context) ([]domain.SessionSummary, error)

	// Rename changes a session's display name.
	Rename(ctx context.Context, id, name string) error

	// Delete removes a session and everything it owns.
	Delete(ctx context.Context, id string) error

	// EditDocument overwrites one document as a user edit, recording the
	// previous value in history with source "edited".
	EditDocument(ctx context.Context, id, docType, content string) (*domain.Session, error)

	// History returns the versions of docType in ascending timestamp order.
	History(ctx context.Context, id, docType string) ([]domain.DocVersion, error)

	// CompareVersion diffs history entry index of docType against the current value.
	CompareVersion(ctx context.Context, id, docType string, index int) (*domain.VersionDiff, error)

	// RestoreVersion makes history entry index of docType current again.
	RestoreVersion(ctx context.Context, id, docType string, index int) (*domain.Session, error)

	// Flush forces pending writes through.
	Flush(ctx context.Context) error
}
