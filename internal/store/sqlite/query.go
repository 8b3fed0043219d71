package sqlite

import (
	"fmt"
	"strings"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/internal/store"
)

// buildQuery constructs a parameterized SQL query from a Filter. When
// ftsQuery is non-empty the query joins the FTS5 table and MATCHes it.
// latestSession, when non-nil, pins the "default filter" predicate
// described in the store ("latest session by default").
func buildQuery(f model.Filter, ftsQuery string, latestSession *string) (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT r.id, r.source, r.category, r.severity, r.message, r.emit_time, r.receive_time, r.frame, r.file, r.line, r.session_id, r.instance_id FROM records r")

	if ftsQuery != "" {
		b.WriteString(" JOIN records_fts f ON r.id = f.rowid")
	}

	b.WriteString(" WHERE 1=1")

	if ftsQuery != "" {
		b.WriteString(" AND records_fts MATCH ?")
		args = append(args, ftsQuery)
	}

	if f.Source != "" {
		b.WriteString(" AND r.source = ?")
		args = append(args, f.Source)
	}
	if f.HasSeverity {
		b.WriteString(" AND r.severity <= ?")
		args = append(args, int(f.MinSeverity))
	}
	if f.Category != "" {
		b.WriteString(" AND r.category = ?")
		args = append(args, f.Category)
	}
	if f.EmitTimeFrom != nil {
		b.WriteString(" AND r.emit_time >= ?")
		args = append(args, *f.EmitTimeFrom)
	}
	if f.EmitTimeTo != nil {
		b.WriteString(" AND r.emit_time <= ?")
		args = append(args, *f.EmitTimeTo)
	}

	if f.HasSession {
		b.WriteString(" AND r.session_id = ?")
		args = append(args, f.SessionID)
	} else if !f.AllSessions && latestSession != nil {
		b.WriteString(" AND r.session_id = ?")
		args = append(args, *latestSession)
	} else if !f.AllSessions && latestSession == nil {
		// Store is empty: the default predicate admits no rows.
		b.WriteString(" AND 0")
	}

	if f.HasInstance {
		b.WriteString(" AND r.instance_id = ?")
		args = append(args, f.InstanceID)
	}

	b.WriteString(" ORDER BY r.emit_time DESC, r.id DESC")

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	b.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, f.Offset))

	return b.String(), args
}

// normalizeFTSQuery validates and lightly normalizes a search expression
// before it reaches FTS5's MATCH dialect.
// FTS5 already accepts bare terms, "phrases", trailing-star prefixes, and
// the AND/OR/NOT operators, so normalization here is limited to rejecting
// obviously malformed input (unbalanced quotes) as an input error rather
// than letting it surface as an opaque storage error.
func normalizeFTSQuery(q string) (string, error) {
	if strings.Count(q, `"`)%2 != 0 {
		return "", fmt.Errorf("%w: unbalanced quotes in search query", store.ErrInvalid)
	}
	return q, nil
}
