// Package udp implements the ingestion plane's datagram receiver:
// a background worker bound to an unreliable datagram socket, where each
// packet is a single UTF-8 JSON log record.
package udp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/logrelay/logrelay/internal/diag"
	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/internal/store"
)

// maxDatagramSize is the largest payload accepted per packet.
const maxDatagramSize = 65536

// Receiver accepts single-datagram JSON records and inserts them into a
// store, tolerating malformed input without terminating.
type Receiver struct {
	store store.Store
	diag  *diag.Registry

	mu      sync.Mutex
	conn    *net.UDPConn
	running bool

	wg sync.WaitGroup
}

// New creates a receiver for st. The socket is bound to a port later, by
// Start, so construction can never fail.
func New(st store.Store, diagnostics *diag.Registry) *Receiver {
	return &Receiver{store: st, diag: diagnostics}
}

// Start binds the UDP socket and begins receiving in a background
// goroutine. It returns once the socket is bound.
func (r *Receiver) Start(ctx context.Context, port int) error {
	addr := &net.UDPAddr{Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop(ctx)

	slog.Info("udp receiver started", "port", port)
	return nil
}

// Stop ceases receiving, drains any in-flight callback, and returns.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	conn := r.conn
	r.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	r.wg.Wait()
}

func (r *Receiver) loop(ctx context.Context) {
	defer r.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		r.mu.Lock()
		running := r.running
		conn := r.conn
		r.mu.Unlock()
		if !running {
			return
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if ctx.Err() != nil {
				return
			}
			r.diag.Error("udp", "receive error: "+err.Error())
			continue
		}
		if n == 0 {
			r.diag.Error("udp", "dropped empty datagram")
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		r.handle(ctx, payload)
	}
}

func (r *Receiver) handle(ctx context.Context, payload []byte) {
	rec, err := model.ParseInbound(payload)
	if err != nil {
		r.diag.Error("udp", "dropped malformed datagram: "+err.Error())
		return
	}
	if _, err := r.store.Insert(ctx, rec); err != nil {
		r.diag.Error("udp", "dropped datagram: storage error: "+err.Error())
	}
}
