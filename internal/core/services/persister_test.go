package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/specforge/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/specforge/internal/core/domain"
)

func TestPersister_CoalescesWithinWindow(t *testing.T) {
	store := memory.NewSessionStore()
	p := NewPersister(store, domain.DefaultTrimPolicy(), 50*time.Millisecond)
	now := time.Now()

	s := domain.NewSession("s1", "p", now)
	for i := 1; i <= 5; i++ {
		s.EditDocument("PRD", fmt.Sprintf("v%d", i), now)
		p.Schedule(s)
	}
	assert.Equal(t, 1, p.Pending())

	require.Eventually(t, func() bool { return store.Saves() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, store.Saves(), "later writes replace the pending one")

	got, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "v5", got.Documents["PRD"])
}

func TestPersister_ScheduleCopiesPayload(t *testing.T) {
	store := memory.NewSessionStore()
	p := NewPersister(store, domain.DefaultTrimPolicy(), time.Hour)
	s := domain.NewSession("s1", "p", time.Now())
	s.EditDocument("PRD", "scheduled", time.Now())

	p.Schedule(s)
	s.EditDocument("PRD", "mutated later", time.Now())
	require.NoError(t, p.Flush(context.Background()))

	got, _ := store.Get(context.Background(), "s1")
	assert.Equal(t, "scheduled", got.Documents["PRD"])
}

func TestPersister_FlushWritesPendingImmediately(t *testing.T) {
	store := memory.NewSessionStore()
	p := NewPersister(store, domain.DefaultTrimPolicy(), time.Hour)

	p.Schedule(domain.NewSession("a", "", time.Now()))
	p.Schedule(domain.NewSession("b", "", time.Now()))
	require.NoError(t, p.Flush(context.Background()))

	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, 2, store.Saves())
}

func TestPersister_TrimsOnWrite(t *testing.T) {
	store := memory.NewSessionStore()
	p := NewPersister(store, domain.DefaultTrimPolicy(), time.Hour)
	base := time.Now()

	s := domain.NewSession("s1", "p", base)
	for i := 0; i < 250; i++ {
		s.AppendMessage(domain.Message{ID: fmt.Sprintf("m%03d", i)}, base)
	}
	for i := 1; i <= 5; i++ {
		s.ApplyChange("PRD", fmt.Sprintf("v%d", i), domain.SourceGenerated, base.Add(time.Duration(i)*time.Second))
	}
	require.Len(t, s.DocumentHistory, 4)
	s.ApplyChange("PRD", "v6", domain.SourceEdited, base.Add(10*time.Second))

	require.NoError(t, p.SaveNow(context.Background(), s))

	got, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 200)
	assert.Equal(t, "m050", got.Messages[0].ID)
	assert.Equal(t, "m249", got.Messages[199].ID)

	history := got.HistoryFor("PRD")
	require.Len(t, history, 3)
	assert.Equal(t, []string{"v3", "v4", "v5"}, []string{history[0].Content, history[1].Content, history[2].Content})

	assert.Len(t, s.Messages, 250, "in-memory session is not trimmed")
	assert.Len(t, s.DocumentHistory, 5)
}

func TestPersister_DropCancelsPending(t *testing.T) {
	store := memory.NewSessionStore()
	p := NewPersister(store, domain.DefaultTrimPolicy(), 20*time.Millisecond)

	p.Schedule(domain.NewSession("gone", "", time.Now()))
	p.Drop("gone")
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 0, store.Saves())
}

func TestPersister_SaveErrorsAreReturnedFromFlush(t *testing.T) {
	p := NewPersister(failingStore{memory.NewSessionStore()}, domain.DefaultTrimPolicy(), time.Hour)

	p.Schedule(domain.NewSession("s1", "", time.Now()))
	err := p.Flush(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPersister_CloseRejectsSchedules(t *testing.T) {
	store := memory.NewSessionStore()
	p := NewPersister(store, domain.DefaultTrimPolicy(), time.Millisecond)

	require.NoError(t, p.Close(context.Background()))
	p.Schedule(domain.NewSession("late", "", time.Now()))
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, 0, store.Saves())
}

func TestPersister_SlowWriteDoesNotOverwriteNewerState(t *testing.T) {
	store := &slowFirstStore{SessionStore: memory.NewSessionStore(), delay: 200 * time.Millisecond}
	p := NewPersister(store, domain.DefaultTrimPolicy(), time.Millisecond)
	ctx := context.Background()

	s := domain.NewSession("s1", "old", time.Now())
	p.Schedule(s)
	time.Sleep(50 * time.Millisecond)

	s.Rename("new", time.Now())
	require.NoError(t, p.SaveNow(ctx, s))
	require.NoError(t, p.Flush(ctx))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, []string{"old", "new"}, store.names())
}

func TestPersister_SkipsPayloadOlderThanLastWrite(t *testing.T) {
	store := memory.NewSessionStore()
	p := NewPersister(store, domain.DefaultTrimPolicy(), time.Hour)
	ctx := context.Background()

	s := domain.NewSession("s1", "old", time.Now())
	p.Schedule(s)
	p.mu.Lock()
	stale := p.pending["s1"]
	p.mu.Unlock()

	s.Rename("new", time.Now())
	require.NoError(t, p.SaveNow(ctx, s))
	require.NoError(t, p.write(ctx, stale))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, 1, store.Saves())
}
