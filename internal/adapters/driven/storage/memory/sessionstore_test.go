package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

func TestSessionStore_SaveAndGet(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now()

	session := domain.NewSession("s1", "Project", now)
	session.MergeDocuments(map[string]string{"PRD": "x"}, now)
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Project", got.Name)
	assert.Equal(t, "x", got.Documents["PRD"])

	// stored copy is independent of the caller's value
	session.Documents["PRD"] = "changed"
	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Documents["PRD"])
	assert.Equal(t, 1, store.Saves())
}

func TestSessionStore_GetMissing(t *testing.T) {
	_, err := NewSessionStore().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_ListNewestFirst(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Save(ctx, domain.NewSession("old", "a", base)))
	require.NoError(t, store.Save(ctx, domain.NewSession("new", "b", base.Add(time.Minute))))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestSessionStore_Delete(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.NewSession("s1", "", time.Now())))

	require.NoError(t, store.Delete(ctx, "s1"))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
