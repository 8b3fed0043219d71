package tail_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/logrelay/logrelay/internal/diag"
	"github.com/logrelay/logrelay/internal/ingest/tail"
	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/internal/store/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newStoreAt(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(sqlite.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWorkerIgnoresPreExistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old line\n"), 0o644))

	st := newStoreAt(t)
	w := tail.New(path, "app", st, diag.NewRegistry())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	time.Sleep(300 * time.Millisecond)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestWorkerEmitsNewLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	st := newStoreAt(t)
	w := tail.New(path, "app", st, diag.NewRegistry())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("first\nsecond\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		n, err := st.Count(context.Background())
		return err == nil && n == 2
	}, 2*time.Second, 20*time.Millisecond)

	recs, err := st.Query(context.Background(), model.Filter{AllSessions: true})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		require.Equal(t, "file-tailer", r.Source)
		require.Equal(t, "app", r.Category)
	}
}

func TestWorkerIgnoresIncompleteTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	st := newStoreAt(t)
	w := tail.New(path, "app", st, diag.NewRegistry())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("no newline yet")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	time.Sleep(400 * time.Millisecond)

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestWorkerHandlesTruncation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("aaaaaaaaaa\n"), 0o644))

	st := newStoreAt(t)
	w := tail.New(path, "app", st, diag.NewRegistry())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	time.Sleep(250 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("b\n"), 0o644))

	require.Eventually(t, func() bool {
		n, err := st.Count(context.Background())
		return err == nil && n == 1
	}, 2*time.Second, 20*time.Millisecond)

	recs, err := st.Query(context.Background(), model.Filter{AllSessions: true})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "b", recs[0].Message)
}

func TestWorkerStartFailsWhenFileMissing(t *testing.T) {
	st := newStoreAt(t)
	w := tail.New(filepath.Join(t.TempDir(), "missing.log"), "app", st, diag.NewRegistry())
	require.Error(t, w.Start(context.Background()))
	require.False(t, w.Running())
}
