package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/logrelay/logrelay/internal/store"
	"github.com/logrelay/logrelay/internal/store/sqlite"
	"github.com/logrelay/logrelay/internal/store/storetest"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logrelay.db")
	s, err := sqlite.New(sqlite.Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Suite(t, newStore)
}

func TestLatestSessionEmptyStore(t *testing.T) {
	s := newStore(t)
	got, err := s.LatestSession(t.Context(), "")
	require.NoError(t, err)
	require.Equal(t, "", got)
}
