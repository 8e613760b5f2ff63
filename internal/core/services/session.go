package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/core/ports/driving"
	"github.com/custodia-labs/specforge/internal/logger"
)

// Ensure SessionService implements the interface.
var _ driving.SessionService = (*SessionService)(nil)

// SessionService owns the in-memory working copy of every open session.
// Mutations are serialised per session and applied in memory first; the
// Persister writes them out afterwards.
type SessionService struct {
	store     driven.SessionStore
	persister *Persister
	now       func() time.Time

	mu    sync.RWMutex
	cache map[string]*domain.Session
	locks sync.Map // session id -> *sync.Mutex
}

// NewSessionService creates a session service.
func NewSessionService(store driven.SessionStore, persister *Persister) *SessionService {
	return &SessionService{
		store:     store,
		persister: persister,
		now:       time.Now,
		cache:     make(map[string]*domain.Session),
	}
}

func (s *SessionService) lockSession(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// load returns the cached session, reading through to the store.
// Caller must hold the session lock.
func (s *SessionService) load(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	cached, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if session.Documents == nil {
		session.Documents = make(map[string]string)
	}

	s.mu.Lock()
	s.cache[id] = session
	s.mu.Unlock()
	return session, nil
}

// mutate applies fn to the working copy and schedules a write.
// If fn fails nothing is scheduled; fn must leave the session unchanged on error.
func (s *SessionService) mutate(ctx context.Context, id string, fn func(*domain.Session, time.Time) error) (*domain.Session, error) {
	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(session, s.now()); err != nil {
		return nil, err
	}

	s.persister.Schedule(session)
	return session.Clone(), nil
}

// Create starts an empty session and writes it immediately.
func (s *SessionService) Create(ctx context.Context, name string) (*domain.Session, error) {
	session := domain.NewSession(uuid.NewString(), strings.TrimSpace(name), s.now())

	s.mu.Lock()
	s.cache[session.ID] = session
	s.mu.Unlock()

	if err := s.persister.SaveNow(ctx, session); err != nil {
		logger.Warn("initial save of session %s failed: %v", session.ID, err)
	}
	logger.Info("created session %s (%s)", session.ID, session.Name)
	return session.Clone(), nil
}

// Get returns a copy of the session.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// List returns summaries, most recently updated first. Open sessions may be
// ahead of the store, so their in-memory summary wins.
func (s *SessionService) List(ctx context.Context) ([]domain.SessionSummary, error) {
	stored, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	byID := make(map[string]domain.SessionSummary, len(stored))
	for _, sum := range stored {
		byID[sum.ID] = sum
	}

	s.mu.RLock()
	for id, session := range s.cache {
		byID[id] = session.Summary()
	}
	s.mu.RUnlock()

	out := make([]domain.SessionSummary, 0, len(byID))
	for _, sum := range byID {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Rename changes a session's display name.
func (s *SessionService) Rename(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	_, err := s.mutate(ctx, id, func(session *domain.Session, now time.Time) error {
		session.Rename(name, now)
		return nil
	})
	return err
}

// Delete removes a session from memory and from the store.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	unlock := s.lockSession(id)
	defer unlock()

	s.persister.Drop(id)

	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	logger.Info("deleted session %s", id)
	return nil
}

// EditDocument overwrites one document as a user edit.
func (s *SessionService) EditDocument(ctx context.Context, id, docType, content string) (*domain.Session, error) {
	docType = strings.TrimSpace(docType)
	if docType == "" {
		return nil, fmt.Errorf("%w: document type is required", domain.ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(session *domain.Session, now time.Time) error {
		session.ApplyChange(docType, content, domain.SourceEdited, now)
		return nil
	})
}

// History returns the versions of docType in ascending timestamp order.
func (s *SessionService) History(ctx context.Context, id, docType string) ([]domain.DocVersion, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.HistoryFor(docType), nil
}

// CompareVersion diffs a historical version against the current document.
func (s *SessionService) CompareVersion(ctx context.Context, id, docType string, index int) (*domain.VersionDiff, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	version, err := versionAt(session, docType, index)
	if err != nil {
		return nil, err
	}

	current := session.Documents[docType]
	unified, ins, del := lineDiff(version.Content, current)
	return &domain.VersionDiff{
		DocType:    docType,
		Version:    version,
		Current:    current,
		Unified:    unified,
		Insertions: ins,
		Deletions:  del,
	}, nil
}

// RestoreVersion makes a historical version current. The displaced value is
// snapshotted like any other edit.
func (s *SessionService) RestoreVersion(ctx context.Context, id, docType string, index int) (*domain.Session, error) {
	return s.mutate(ctx, id, func(session *domain.Session, now time.Time) error {
		version, err := versionAt(session, docType, index)
		if err != nil {
			return err
		}
		session.ApplyChange(docType, version.Content, domain.SourceEdited, now)
		return nil
	})
}

// Flush forces pending writes through.
func (s *SessionService) Flush(ctx context.Context) error {
	return s.persister.Flush(ctx)
}

func versionAt(session *domain.Session, docType string, index int) (domain.DocVersion, error) {
	history := session.HistoryFor(docType)
	if index < 0 || index >= len(history) {
		return domain.DocVersion{}, fmt.Errorf("%w: version %d of %q", domain.ErrNotFound, index, docType)
	}
	return history[index], nil
}

// lineDiff renders a line-level diff from a to b with +/- prefixes.
func lineDiff(a, b string) (string, int, int) {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	ins, del := 0, 0
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				ins++
			case diffmatchpatch.DiffDelete:
				del++
			}
		}
	}
	return sb.String(), ins, del
}
