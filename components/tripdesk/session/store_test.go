package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	store := NewFileStore(path)

	token, err := store.Load(ctx, AreaOffice.StorageKey())
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save(ctx, AreaOffice.StorageKey(), "office-token"))
	require.NoError(t, store.Save(ctx, AreaBusOperator.StorageKey(), "operator-token"))

	reopened := NewFileStore(path)
	token, err = reopened.Load(ctx, AreaOffice.StorageKey())
	require.NoError(t, err)
	assert.Equal(t, "office-token", token)

	require.NoError(t, reopened.Delete(ctx, AreaOffice.StorageKey()))
	require.NoError(t, reopened.Delete(ctx, AreaOffice.StorageKey()))
	token, _ = store.Load(ctx, AreaOffice.StorageKey())
	assert.Empty(t, token)
	token, _ = store.Load(ctx, AreaBusOperator.StorageKey())
	assert.Equal(t, "operator-token", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))
	_, err := NewFileStore(path).Load(context.Background(), "office_token")
	assert.Error(t, err)
}

func TestSessionRestoresFromFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.yaml")
	first := New(Options{Area: AreaBusOperator, Store: NewFileStore(path)})
	require.NoError(t, first.SetToken(ctx, "persisted"))

	second := New(Options{Area: AreaBusOperator, Store: NewFileStore(path)})
	require.NoError(t, second.Restore(ctx))
	token, _ := second.Token()
	assert.Equal(t, "persisted", token)
}
