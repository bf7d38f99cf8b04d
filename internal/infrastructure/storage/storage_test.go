package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rbac-console/internal/ports"
)

func exerciseStore(t *testing.T, s ports.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "auth_token", "tok"))
	require.NoError(t, s.Set(ctx, "user_data", `{"email":"a@b.com"}`))

	v, ok, err := s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)

	require.NoError(t, s.Delete(ctx, "auth_token", "user_data"))
	_, ok, err = s.Get(ctx, "user_data")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s, err := NewFile(path)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFile_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "auth_token", "persisted"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewFile(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(context.Background(), "auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	s, err := NewFile(path)
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), "auth_token")
	assert.Error(t, err)
}

func TestNewFile_RequiresPath(t *testing.T) {
	_, err := NewFile("")
	assert.Error(t, err)
}
