// Package transport serves the JSON-RPC 2.0 dispatcher over an SSE
// event stream paired with a POST endpoint for inbound messages:
// a client opens an SSE connection, receives an "endpoint" event naming
// the URL to POST requests to, and responses arrive as "message" events
// on the original stream.
//
// Route registration and graceful TLS listen follow the same shape as
// the rest of the service's HTTP surface.
package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/logrelay/logrelay/internal/diag"
	"github.com/logrelay/logrelay/internal/rpc"
)

const keepAlivePeriod = 15 * time.Second

// Config configures the transport server.
type Config struct {
	Addr     string
	CertFile string
	KeyFile  string
}

// Server serves the SSE transport.
type Server struct {
	dispatcher *rpc.Dispatcher
	diag       *diag.Registry
	cfg        Config

	mu      sync.Mutex
	clients map[string]*client
	counter int64

	httpServer *http.Server
	addr       net.Addr
}

type client struct {
	id     string
	outbox chan []byte
	done   chan struct{}
}

// New builds a transport server around dispatcher.
func New(dispatcher *rpc.Dispatcher, diagnostics *diag.Registry, cfg Config) *Server {
	s := &Server{
		dispatcher: dispatcher,
		diag:       diagnostics,
		cfg:        cfg,
		clients:    make(map[string]*client),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.withCORS(s.handleSSE))
	mux.HandleFunc("/sse", s.withCORS(s.handleSSE))
	mux.HandleFunc("/messages", s.withCORS(s.handleMessages))
	mux.HandleFunc("/health", s.withCORS(s.handleHealth))

	s.httpServer = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s
}

// Start begins serving in the background. It returns once the listener
// is ready to accept, or immediately on bind failure.
func (s *Server) Start() error {
	ln, err := newListener(s.cfg.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()

	go func() {
		var serveErr error
		if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
			serveErr = s.httpServer.ServeTLS(ln, s.cfg.CertFile, s.cfg.KeyFile)
		} else {
			serveErr = s.httpServer.Serve(ln)
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			s.diag.Error("transport", "serve error: "+serveErr.Error())
		}
	}()

	return nil
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound listener address. Only valid after Start.
func (s *Server) Addr() string {
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (s *Server) newSessionID() string {
	n := atomic.AddInt64(&s.counter, 1)
	var buf [4]byte
	rand.Read(buf[:])
	return fmt.Sprintf("session_%d_%s", n, hex.EncodeToString(buf[:]))
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := &client{
		id:     s.newSessionID(),
		outbox: make(chan []byte, 64),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		close(c.done)
	}()

	fmt.Fprintf(w, "event: endpoint\ndata: /messages?session_id=%s\n\n", c.id)
	flusher.Flush()

	ticker := time.NewTicker(keepAlivePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-c.outbox:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	c, ok := s.clients[sessionID]
	s.mu.Unlock()

	resp := s.dispatcher.Dispatch(r.Context(), body)
	w.WriteHeader(http.StatusAccepted)

	if !ok {
		return
	}

	if resp == nil {
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		s.diag.Error("transport", "failed to marshal response: "+err.Error())
		return
	}

	select {
	case c.outbox <- payload:
	case <-c.done:
	default:
		s.diag.Error("transport", "dropped response for full session "+sessionID)
	}
}
