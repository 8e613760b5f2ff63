package file

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/specforge/internal/core/domain"
)

func keys(types []domain.DocType) []string {
	out := make([]string, len(types))
	for i, dt := range types {
		out[i] = dt.Key
	}
	return out
}

func TestNewDefaultTemplateStore(t *testing.T) {
	store, err := NewDefaultTemplateStore()
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"PRD", "Design Doc", "Architecture", "Tech Spec", "Test Plan", "Roadmap"},
		keys(store.List()))
	assert.Empty(t, store.Path())
	assert.NoError(t, store.Reload())

	prd := store.Get("PRD")
	require.NotNil(t, prd.Meta)
	assert.Equal(t, "Product Requirements Document", prd.Label())
	assert.True(t, prd.GuidedAvailable())
	assert.Equal(t, "Problem statement", prd.Meta.Topics[0])

	assert.False(t, store.Get("Tech Spec").GuidedAvailable())
}

func TestTemplateStore_GetUnknown(t *testing.T) {
	store, err := NewDefaultTemplateStore()
	require.NoError(t, err)

	dt := store.Get("Glossary")

	assert.Equal(t, "Glossary", dt.Key)
	assert.Nil(t, dt.Meta)
	assert.Equal(t, "Glossary", dt.Label())
}

func TestNewTemplateStore_SeedsFile(t *testing.T) {
	dir := t.TempDir()

	store, err := NewTemplateStore(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doctypes.toml"), store.Path())
	assert.FileExists(t, store.Path())
	assert.Len(t, store.List(), 6)
}

func TestTemplateStore_UserCatalog(t *testing.T) {
	dir := t.TempDir()
	content := `
[[doctype]]
key = "Runbook"
label = "Operations Runbook"
topics = ["Alerts", "Escalation"]

[[doctype]]
key = "PRD"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doctypes.toml"), []byte(content), 0600))

	store, err := NewTemplateStore(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"Runbook", "PRD"}, keys(store.List()))
	assert.Equal(t, "Operations Runbook", store.Get("Runbook").Label())
	assert.Equal(t, []string{"Alerts", "Escalation"}, store.Get("Runbook").Meta.Topics)
	assert.Equal(t, "PRD", store.Get("PRD").Label())
}

func TestTemplateStore_ReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewTemplateStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path(), []byte("[[doctype]]\nlabel = \"no key\"\n"), 0600))
	err = store.Reload()

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Len(t, store.List(), 6)

	require.NoError(t, os.WriteFile(store.Path(), []byte("[[doctype]]\nkey = \"Only\"\n"), 0600))
	require.NoError(t, store.Reload())
	assert.Equal(t, []string{"Only"}, keys(store.List()))
}

func TestParseCatalog_Duplicate(t *testing.T) {
	_, err := parseCatalog([]byte("[[doctype]]\nkey = \"A\"\n[[doctype]]\nkey = \"A\"\n"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTemplateStore_ListIsCopy(t *testing.T) {
	store, err := NewDefaultTemplateStore()
	require.NoError(t, err)

	list := store.List()
	list[0].Key = "mutated"

	assert.Equal(t, "PRD", store.List()[0].Key)
}
