// Package diag implements the internal diagnostic sink: a
// process-wide pluggable channel for component-tagged log/error
// messages that is distinct from the log store itself.
package diag

import (
	"log/slog"
	"sync"
)

// Sink receives diagnostic messages tagged by component.
type Sink interface {
	Log(component, msg string)
	Error(component, msg string)
}

// SlogSink is the default sink: it forwards to a *slog.Logger, tagging
// each record with the originating component.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink builds the default sink around logger (or slog.Default()
// when logger is nil).
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Log implements Sink.
func (s *SlogSink) Log(component, msg string) {
	s.logger.Info(msg, "component", component)
}

// Error implements Sink.
func (s *SlogSink) Error(component, msg string) {
	s.logger.Error(msg, "component", component)
}

// Registry holds the process-wide sink assignment. Installing a new sink
// blocks concurrent Log/Error calls until the swap completes.
type Registry struct {
	mu   sync.RWMutex
	sink Sink
}

// NewRegistry creates a registry defaulting to a SlogSink.
func NewRegistry() *Registry {
	return &Registry{sink: NewSlogSink(nil)}
}

// Install replaces the active sink, e.g. to redirect diagnostics to a
// terminal UI.
func (r *Registry) Install(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

// Log reports an informational diagnostic.
func (r *Registry) Log(component, msg string) {
	r.mu.RLock()
	sink := r.sink
	r.mu.RUnlock()
	sink.Log(component, msg)
}

// Error reports an error diagnostic.
func (r *Registry) Error(component, msg string) {
	r.mu.RLock()
	sink := r.sink
	r.mu.RUnlock()
	sink.Error(component, msg)
}
