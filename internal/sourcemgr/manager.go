// Package sourcemgr tracks the set of live file-tail sources, assigning
// each an opaque id and serializing add/remove/list/stop-all operations.
// It is a guarded map keyed by a generated id, with per-entry lifecycle
// management.
package sourcemgr

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/logrelay/logrelay/internal/diag"
	"github.com/logrelay/logrelay/internal/ingest/tail"
	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/internal/store"
)

type entry struct {
	desc   model.SourceDescriptor
	worker *tail.Worker
}

// Manager owns the collection of active file-tail workers.
type Manager struct {
	store store.Store
	diag  *diag.Registry

	mu      sync.Mutex
	next    int
	entries map[string]*entry
}

// New constructs an empty manager.
func New(st store.Store, diagnostics *diag.Registry) *Manager {
	return &Manager{
		store:   st,
		diag:    diagnostics,
		entries: make(map[string]*entry),
	}
}

// AddFile starts tailing path under a fresh "file-<N>" id. displayName
// defaults to the file's base name when empty.
func (m *Manager) AddFile(ctx context.Context, path, displayName string) (model.SourceDescriptor, error) {
	if displayName == "" {
		displayName = filepath.Base(path)
	}

	m.mu.Lock()
	m.next++
	id := fmt.Sprintf("file-%d", m.next)
	m.mu.Unlock()

	w := tail.New(path, displayName, m.store, m.diag)
	if err := w.Start(ctx); err != nil {
		return model.SourceDescriptor{}, err
	}

	desc := model.SourceDescriptor{
		ID:          id,
		Kind:        model.FileTailer,
		DisplayName: displayName,
		Path:        path,
		Running:     true,
	}

	m.mu.Lock()
	m.entries[id] = &entry{desc: desc, worker: w}
	m.mu.Unlock()

	m.diag.Log("sourcemgr", "added file source "+id+" for "+path)
	return desc, nil
}

// Remove stops and forgets the source with id. Returns false if id is
// unknown.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	e.worker.Stop()
	m.diag.Log("sourcemgr", "removed source "+id)
	return true
}

// List returns all known source descriptors sorted by id.
func (m *Manager) List() []model.SourceDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.SourceDescriptor, 0, len(m.entries))
	for _, e := range m.entries {
		d := e.desc
		d.Running = e.worker.Running()
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StopAll stops every tracked source. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range entries {
		e.worker.Stop()
	}
}
