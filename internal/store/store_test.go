package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "desk.db"))
	require.NoError(t, err)
	return s
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	first, err := s.GetOrCreate("stable-1", "mika")
	require.NoError(t, err)
	assert.Equal(t, "mika", first.DisplayName)

	second, err := s.GetOrCreate("stable-1", "mika")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreditAccumulates(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetOrCreate("stable-1", "mika")
	require.NoError(t, err)

	require.NoError(t, s.Credit("stable-1", 25))
	require.NoError(t, s.Credit("stable-1", 5))

	assert.Equal(t, 30, s.Minutes("stable-1"))
}

func TestCreditUnknownIDCreatesRow(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Credit("stable-new", 10))
	assert.Equal(t, 10, s.Minutes("stable-new"))
}

func TestMinutesUnknownIDIsZero(t *testing.T) {
	s := openTestStore(t)
	assert.Zero(t, s.Minutes("nobody"))
}
