package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/specforge/internal/core/domain"
	"github.com/custodia-labs/specforge/internal/core/ports/driven"
	"github.com/custodia-labs/specforge/internal/logger"
)

// DefaultDebounce is the write coalescing window.
const DefaultDebounce = 300 * time.Millisecond

// saveTimeout bounds a single background write.
const saveTimeout = 10 * time.Second

// Persister coalesces session writes. Each session has at most one pending
// payload; a later Schedule within the window replaces it and restarts the
// window. Payloads are trimmed to the policy before they are written.
//
// Writes for one session run one at a time, and a payload older than the
// last one stored is skipped, so a slow write never overwrites newer state.
//
// Write failures are logged and dropped. Callers never wait on persistence
// before updating in-memory state.
type Persister struct {
	store  driven.SessionStore
	policy domain.TrimPolicy
	window time.Duration

	mu      sync.Mutex
	seq     uint64
	pending map[string]payload
	timers  map[string]*time.Timer
	locks   map[string]*sync.Mutex
	written map[string]uint64
	writes  sync.WaitGroup
	closed  bool
}

// payload is a session snapshot stamped with the order it was taken in.
type payload struct {
	session *domain.Session
	seq     uint64
}

// NewPersister creates a persister. A zero window uses DefaultDebounce.
func NewPersister(store driven.SessionStore, policy domain.TrimPolicy, window time.Duration) *Persister {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Persister{
		store:   store,
		policy:  policy,
		window:  window,
		pending: make(map[string]payload),
		timers:  make(map[string]*time.Timer),
		locks:   make(map[string]*sync.Mutex),
		written: make(map[string]uint64),
	}
}

// Schedule queues session for writing after the debounce window.
// The persister keeps its own copy.
func (p *Persister) Schedule(session *domain.Session) {
	snapshot := session.Clone()
	id := snapshot.ID

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		logger.Warn("persister closed, dropping write for session %s", id)
		return
	}

	p.seq++
	p.pending[id] = payload{session: snapshot, seq: p.seq}
	if t, ok := p.timers[id]; ok {
		t.Stop()
	}
	p.timers[id] = time.AfterFunc(p.window, func() { p.fire(id) })
}

// SaveNow writes session immediately, discarding any pending payload for it.
func (p *Persister) SaveNow(ctx context.Context, session *domain.Session) error {
	snapshot := session.Clone()

	p.mu.Lock()
	p.dropLocked(snapshot.ID)
	p.seq++
	next := payload{session: snapshot, seq: p.seq}
	p.mu.Unlock()

	return p.write(ctx, next)
}

// Drop discards any pending payload for id.
func (p *Persister) Drop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropLocked(id)
}

func (p *Persister) dropLocked(id string) {
	if t, ok := p.timers[id]; ok {
		t.Stop()
		delete(p.timers, id)
	}
	delete(p.pending, id)
}

// Pending reports how many sessions have a write queued.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Flush forces every pending write through and waits for writes already
// running in the background.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	batch := make([]payload, 0, len(p.pending))
	for id, next := range p.pending {
		batch = append(batch, next)
		if t, ok := p.timers[id]; ok {
			t.Stop()
		}
	}
	p.pending = make(map[string]payload)
	p.timers = make(map[string]*time.Timer)
	p.mu.Unlock()

	var errs []error
	for _, next := range batch {
		if err := p.write(ctx, next); err != nil {
			errs = append(errs, err)
		}
	}

	p.writes.Wait()
	return errors.Join(errs...)
}

// Close flushes and rejects further schedules.
func (p *Persister) Close(ctx context.Context) error {
	err := p.Flush(ctx)
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return err
}

func (p *Persister) fire(id string) {
	p.mu.Lock()
	next, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
		delete(p.timers, id)
		p.writes.Add(1)
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	defer p.writes.Done()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := p.write(ctx, next); err != nil {
		logger.Error("%v", err)
	}
}

// write stores next unless a newer payload for the session already landed.
func (p *Persister) write(ctx context.Context, next payload) error {
	id := next.session.ID
	lock := p.writeLock(id)
	lock.Lock()
	defer lock.Unlock()

	p.mu.Lock()
	stale := next.seq <= p.written[id]
	p.mu.Unlock()
	if stale {
		logger.Debug("skipping stale write for session %s", id)
		return nil
	}

	trimmed := next.session.Trimmed(p.policy)
	if err := p.store.Save(ctx, trimmed); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}

	p.mu.Lock()
	p.written[id] = next.seq
	p.mu.Unlock()

	logger.Debug("saved session %s (%d messages, %d versions)",
		id, len(trimmed.Messages), len(trimmed.DocumentHistory))
	return nil
}

func (p *Persister) writeLock(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[id] = lock
	}
	return lock
}
