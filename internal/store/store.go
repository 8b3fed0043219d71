// Package store defines the log store contract: a durable,
// indexed, full-text-searchable repository with query, search, stats,
// session, and subscriber-notification operations.
package store

import (
	"context"
	"errors"
	"io"

	"github.com/logrelay/logrelay/internal/model"
)

// Sentinel errors returned by Store implementations.
var (
	ErrClosed  = errors.New("store: closed")
	ErrInvalid = errors.New("store: invalid search query")
)

// Subscriber is invoked synchronously by Insert after a record becomes
// durable and its ID/ReceiveTime are known. A returned error is
// reported to the diagnostic sink and otherwise
// ignored — it never aborts or unwinds the insert that triggered it.
type Subscriber func(model.Record) error

// Store is the contract every backend (currently just SQLite) must
// satisfy. Implementations must be safe for concurrent use and must
// preserve the serialization-order guarantees.
type Store interface {
	// Insert assigns id and receive_time, persists the record, updates
	// the full-text index, and invokes subscribers before returning.
	Insert(ctx context.Context, r model.Record) (model.Record, error)

	// Query returns records matching filter, newest emit_time first.
	Query(ctx context.Context, f model.Filter) ([]model.Record, error)

	// Search runs a full-text query against message bodies, further
	// restricted by filter, newest emit_time first.
	Search(ctx context.Context, ftsQuery string, f model.Filter) ([]model.Record, error)

	// Stats computes aggregate statistics, optionally scoped.
	Stats(ctx context.Context, f model.StatsFilter) (model.Statistics, error)

	// Categories returns sorted distinct category strings.
	Categories(ctx context.Context, source string) ([]string, error)

	// Sessions returns session summaries, most-recent last_seen first.
	Sessions(ctx context.Context, source string) ([]model.SessionSummary, error)

	// LatestSession returns the session_id of the record with the
	// greatest receive_time, or "" if the store is empty.
	LatestSession(ctx context.Context, source string) (string, error)

	// Clear deletes matching records and returns the count deleted.
	Clear(ctx context.Context, source string, beforeEmitTime *float64) (int64, error)

	// Count returns the total number of live records.
	Count(ctx context.Context) (int64, error)

	// Subscribe registers a callback invoked in registration order after
	// every successful insert.
	Subscribe(sub Subscriber)

	io.Closer
}
