package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(KeyToken, "tok-123"))
	require.NoError(t, s.Set(KeyRole, "")) // empty "no role" value is permitted

	v, ok, err := s.Get(KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-123", v)

	v, ok, err = s.Get(KeyRole)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, v)
}

func TestStore_MissingKey(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := s.Get(KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(KeyToken, "x"))
	require.NoError(t, s.Delete(KeyToken))
	require.NoError(t, s.Delete(KeyToken))

	_, ok, err := s.Get(KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DeleteAllClearsEverySessionKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(KeyToken, "t"))
	require.NoError(t, s.Set(KeyUser, `{"id":1}`))
	require.NoError(t, s.Set(KeyRole, "admin"))

	require.NoError(t, s.DeleteAll(SessionKeys...))
	for _, key := range SessionKeys {
		_, ok, err := s.Get(key)
		require.NoError(t, err)
		assert.False(t, ok, "key %q should be gone", key)
	}
}

func TestStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(KeyToken, "secret"))
	info, err := os.Stat(filepath.Join(dir, KeyToken))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
