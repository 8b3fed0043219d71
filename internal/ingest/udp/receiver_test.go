package udp_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/logrelay/logrelay/internal/diag"
	"github.com/logrelay/logrelay/internal/ingest/udp"
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

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.ListenUDP("udp", &net.UDPAddr{})
	require.NoError(t, err)
	port := ln.LocalAddr().(*net.UDPAddr).Port
	ln.Close()
	return port
}

func TestReceiverInsertsWellFormedDatagram(t *testing.T) {
	st := newStoreAt(t)
	registry := diag.NewRegistry()
	r := udp.New(st, registry)

	port := freePort(t)
	require.NoError(t, r.Start(context.Background(), port))
	defer r.Stop()

	conn, err := net.Dial("udp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"source":"client","category":"net","verbosity":"Error","message":"boom"}`))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := st.Count(context.Background())
		return err == nil && n == 1
	}, time.Second, 10*time.Millisecond)

	recs, err := st.Query(context.Background(), model.Filter{AllSessions: true})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "boom", recs[0].Message)
	assert.Equal(t, model.Error, recs[0].Severity)
}

func TestReceiverDropsMalformedDatagramWithoutCrashing(t *testing.T) {
	st := newStoreAt(t)
	registry := diag.NewRegistry()
	r := udp.New(st, registry)

	port := freePort(t)
	require.NoError(t, r.Start(context.Background(), port))
	defer r.Stop()

	conn, err := net.Dial("udp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`not json`))
	require.NoError(t, err)
	_, err = conn.Write([]byte(`{"source":"client","category":"net","verbosity":"Log","message":"ok"}`))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := st.Count(context.Background())
		return err == nil && n == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReceiverStopDrainsCleanly(t *testing.T) {
	st := newStoreAt(t)
	registry := diag.NewRegistry()
	r := udp.New(st, registry)

	port := freePort(t)
	require.NoError(t, r.Start(context.Background(), port))
	r.Stop()
	r.Stop() // idempotent
}
