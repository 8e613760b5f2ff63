package driven

import (
	"context"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

// SessionStore is the key-value persistence of sessions.
// Sessions are written whole; there are no partial updates.
type SessionStore interface {
	// List returns a summary of every stored session.
	List(ctx context.Context) ([]domain.SessionSummary, error)

	// Get retrieves a session by id. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Save upserts a session.
	Save(ctx context.Context, session *domain.Session) error

	// Delete removes a session by id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}
