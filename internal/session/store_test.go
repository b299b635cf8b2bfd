package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore opens a fresh on-disk store in a per-test temp dir so
// persistence across reopen can be exercised.
func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "session.db")
	store, err := Open(dsn)
	require.NoError(t, err)
	return store, dsn
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.Save("tok-1"))

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
}

func TestStore_SaveReplacesPreviousToken(t *testing.T) {
	store, _ := openTestStore(t)

	require.NoError(t, store.Save("tok-old"))
	require.NoError(t, store.Save("tok-new"))

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-new", token)
}

func TestStore_LoadWithoutTokenIsEmpty(t *testing.T) {
	store, _ := openTestStore(t)

	token, err := store.Load()

	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestStore_Delete(t *testing.T) {
	store, _ := openTestStore(t)
	require.NoError(t, store.Save("tok-1"))

	require.NoError(t, store.Delete())

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	// Deleting again is harmless.
	require.NoError(t, store.Delete())
}

func TestStore_TokenSurvivesReopen(t *testing.T) {
	store, dsn := openTestStore(t)
	require.NoError(t, store.Save("tok-persisted"))

	reopened, err := Open(dsn)
	require.NoError(t, err)

	token, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-persisted", token)
}

func TestHolder(t *testing.T) {
	h := NewHolder()

	_, ok := h.Token()
	assert.False(t, ok)
	assert.False(t, h.Authenticated())

	h.SetToken("tok-1")
	token, ok := h.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)
	assert.Nil(t, h.User())

	h.Clear()
	assert.False(t, h.Authenticated())
	assert.Nil(t, h.User())
}
