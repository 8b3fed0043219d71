// Package app is the composition root: it wires the store, ingestion
// plane, source manager, RPC dispatcher, and transport together in
// dependency order and owns orderly startup/shutdown.
//
// Startup opens the store, starts background workers, then starts
// servers; Shutdown stops the sources, the receiver, and the transport,
// then closes the store. Waiting for a shutdown signal is left to the
// caller.
package app

import (
	"context"
	"fmt"

	"github.com/logrelay/logrelay/internal/diag"
	"github.com/logrelay/logrelay/internal/ingest/udp"
	"github.com/logrelay/logrelay/internal/rpc"
	"github.com/logrelay/logrelay/internal/sourcemgr"
	"github.com/logrelay/logrelay/internal/store"
	"github.com/logrelay/logrelay/internal/store/sqlite"
	"github.com/logrelay/logrelay/internal/transport"
)

// Config gathers every flag needed to start the application.
type Config struct {
	DBPath      string
	UDPPort     int
	HTTPAddr    string
	CertFile    string
	KeyFile     string
	TailPaths   []string
	TailNames   []string
}

// App holds every running component.
type App struct {
	cfg       Config
	Diag      *diag.Registry
	Store     store.Store
	Sources   *sourcemgr.Manager
	Receiver  *udp.Receiver
	Transport *transport.Server
}

// New constructs and starts every component.
func New(ctx context.Context, cfg Config) (*App, error) {
	diagnostics := diag.NewRegistry()

	st, err := sqlite.New(sqlite.Config{Path: cfg.DBPath, Diag: diagnostics})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sources := sourcemgr.New(st, diagnostics)

	receiver := udp.New(st, diagnostics)
	if err := receiver.Start(ctx, cfg.UDPPort); err != nil {
		st.Close()
		return nil, fmt.Errorf("start udp receiver: %w", err)
	}

	for i, path := range cfg.TailPaths {
		name := ""
		if i < len(cfg.TailNames) {
			name = cfg.TailNames[i]
		}
		if _, err := sources.AddFile(ctx, path, name); err != nil {
			diagnostics.Error("app", "failed to tail "+path+": "+err.Error())
		}
	}

	dispatcher := rpc.New(st, sources, diagnostics)
	transportServer := transport.New(dispatcher, diagnostics, transport.Config{
		Addr:     cfg.HTTPAddr,
		CertFile: cfg.CertFile,
		KeyFile:  cfg.KeyFile,
	})
	if err := transportServer.Start(); err != nil {
		receiver.Stop()
		st.Close()
		return nil, fmt.Errorf("start transport: %w", err)
	}

	diagnostics.Log("app", "started")

	return &App{
		cfg:       cfg,
		Diag:      diagnostics,
		Store:     st,
		Sources:   sources,
		Receiver:  receiver,
		Transport: transportServer,
	}, nil
}

// Shutdown tears every component down in reverse dependency order:
// sources, receiver, transport, then the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.Sources.StopAll()
	a.Receiver.Stop()
	if err := a.Transport.Stop(ctx); err != nil {
		a.Diag.Error("app", "transport shutdown error: "+err.Error())
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	a.Diag.Log("app", "stopped")
	return nil
}
