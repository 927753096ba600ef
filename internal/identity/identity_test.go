package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableIDPersistsAcrossCalls(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	first, err := StableID()
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err, "identity must be a uuid")

	second, err := StableID()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCorruptIdentityIsReplaced(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "videodesk", "identity")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("not-a-uuid\n"), 0o600))

	id, err := StableID()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}
