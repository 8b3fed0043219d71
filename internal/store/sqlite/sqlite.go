// Package sqlite implements store.Store on top of SQLite with an FTS5
// full-text index, structured around a single guard so insert, query,
// and subscriber notification observe one serialization order.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/internal/store"
)

// Store implements store.Store using SQLite with FTS5.
type Store struct {
	db     *sql.DB
	path   string
	nowFn  func() float64

	mu      sync.Mutex // Serializes every operation, including subscriber fan-out.
	closed  bool
	subs    []store.Subscriber
	diag    DiagnosticSink
}

// DiagnosticSink receives reports of subscriber failures.
// A nil sink silently drops reports.
type DiagnosticSink interface {
	Error(component, msg string)
}

// Config holds SQLite store configuration.
type Config struct {
	// Path to the SQLite database file. Use ":memory:" for in-memory.
	Path string
	// Diag receives subscriber-callback failure reports. Optional.
	Diag DiagnosticSink
}

// New opens (and, if necessary, creates) the SQLite-backed store.
func New(cfg Config) (*Store, error) {
	if cfg.Path != ":memory:" {
		os.Remove(cfg.Path + "-shm")
		os.Remove(cfg.Path + "-wal")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(pragmaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{
		db:    db,
		path:  cfg.Path,
		nowFn: nowSeconds,
		diag:  cfg.Diag,
	}, nil
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Subscribe registers sub; invocation order follows registration order.
func (s *Store) Subscribe(sub store.Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
}

// Insert assigns id and receive_time, persists the record, and invokes
// every subscriber before returning.
func (s *Store) Insert(ctx context.Context, r model.Record) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.Record{}, store.ErrClosed
	}

	r.ReceiveTime = s.nowFn()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (source, category, severity, message, emit_time, receive_time, frame, file, line, session_id, instance_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.Source, r.Category, int(r.Severity), r.Message, r.EmitTime, r.ReceiveTime,
		nullableInt64(r.Frame), nullableString(r.File), nullableInt64(r.Line), r.SessionID, r.InstanceID,
	)
	if err != nil {
		return model.Record{}, fmt.Errorf("storage: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Record{}, fmt.Errorf("storage: last insert id: %w", err)
	}
	r.ID = id

	for _, sub := range s.subs {
		s.invokeSubscriber(sub, r)
	}

	return r, nil
}

// invokeSubscriber calls sub, reporting a returned error (or recovered
// panic) to the diagnostic sink without letting it escape — the insert
// that triggered this call is already durable.
func (s *Store) invokeSubscriber(sub store.Subscriber, r model.Record) {
	defer func() {
		if rec := recover(); rec != nil {
			if s.diag != nil {
				s.diag.Error("store", fmt.Sprintf("subscriber panic: %v", rec))
			}
		}
	}()
	if err := sub(r); err != nil && s.diag != nil {
		s.diag.Error("store", fmt.Sprintf("subscriber error: %v", err))
	}
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// latestSessionLocked returns the session_id of the record with the
// greatest receive_time (ties broken by greatest id), or nil if empty,
// optionally scoped to source.
func (s *Store) latestSessionLocked(ctx context.Context, source string) (*string, error) {
	q := `SELECT session_id FROM records`
	var args []any
	if source != "" {
		q += ` WHERE source = ?`
		args = append(args, source)
	}
	q += ` ORDER BY receive_time DESC, id DESC LIMIT 1`

	var sessionID string
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: latest session: %w", err)
	}
	return &sessionID, nil
}

// LatestSession implements store.Store.
func (s *Store) LatestSession(ctx context.Context, source string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", store.ErrClosed
	}
	id, err := s.latestSessionLocked(ctx, source)
	if err != nil {
		return "", err
	}
	if id == nil {
		return "", nil
	}
	return *id, nil
}

// Query implements store.Store.
func (s *Store) Query(ctx context.Context, f model.Filter) ([]model.Record, error) {
	return s.queryOrSearch(ctx, f, "")
}

// Search implements store.Store.
func (s *Store) Search(ctx context.Context, ftsQuery string, f model.Filter) ([]model.Record, error) {
	if ftsQuery == "" {
		return nil, fmt.Errorf("%w: empty search query", store.ErrInvalid)
	}
	normalized, err := normalizeFTSQuery(ftsQuery)
	if err != nil {
		return nil, err
	}
	return s.queryOrSearch(ctx, f, normalized)
}

func (s *Store) queryOrSearch(ctx context.Context, f model.Filter, ftsQuery string) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	f = f.Normalize()

	var latest *string
	if !f.HasSession && !f.AllSessions {
		var err error
		latest, err = s.latestSessionLocked(ctx, "")
		if err != nil {
			return nil, err
		}
	}

	sqlStr, args := buildQuery(f, ftsQuery, latest)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(rows rowScanner) (model.Record, error) {
	var r model.Record
	var severity int
	var frame, line sql.NullInt64
	var file sql.NullString

	err := rows.Scan(&r.ID, &r.Source, &r.Category, &severity, &r.Message, &r.EmitTime, &r.ReceiveTime, &frame, &file, &line, &r.SessionID, &r.InstanceID)
	if err != nil {
		return model.Record{}, err
	}
	r.Severity = model.Severity(severity)
	if frame.Valid {
		v := frame.Int64
		r.Frame = &v
	}
	if line.Valid {
		v := line.Int64
		r.Line = &v
	}
	if file.Valid {
		r.File = file.String
	}
	return r, nil
}

// Categories implements store.Store.
func (s *Store) Categories(ctx context.Context, source string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	q := `SELECT DISTINCT category FROM records`
	var args []any
	if source != "" {
		q += ` WHERE source = ?`
		args = append(args, source)
	}
	q += ` ORDER BY category`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: categories: %w", err)
	}
	defer rows.Close()

	cats := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// Sessions implements store.Store.
func (s *Store) Sessions(ctx context.Context, source string) ([]model.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}

	q := `SELECT session_id, MIN(receive_time), MAX(receive_time), COUNT(*) FROM records`
	var args []any
	if source != "" {
		q += ` WHERE source = ?`
		args = append(args, source)
	}
	q += ` GROUP BY session_id ORDER BY MAX(receive_time) DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: sessions: %w", err)
	}

	var summaries []model.SessionSummary
	for rows.Next() {
		var sm model.SessionSummary
		if err := rows.Scan(&sm.SessionID, &sm.FirstSeen, &sm.LastSeen, &sm.LogCount); err != nil {
			rows.Close()
			return nil, err
		}
		summaries = append(summaries, sm)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range summaries {
		instances, err := s.instancesLocked(ctx, summaries[i].SessionID, source)
		if err != nil {
			return nil, err
		}
		summaries[i].Instances = instances
	}

	return summaries, nil
}

func (s *Store) instancesLocked(ctx context.Context, sessionID, source string) ([]string, error) {
	q := `SELECT DISTINCT instance_id FROM records WHERE session_id = ?`
	args := []any{sessionID}
	if source != "" {
		q += ` AND source = ?`
		args = append(args, source)
	}
	q += ` ORDER BY instance_id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: instances: %w", err)
	}
	defer rows.Close()

	instances := make([]string, 0)
	for rows.Next() {
		var inst string
		if err := rows.Scan(&inst); err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// Stats implements store.Store.
func (s *Store) Stats(ctx context.Context, f model.StatsFilter) (model.Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Statistics{}, store.ErrClosed
	}

	where := ` WHERE 1=1`
	var args []any
	if f.Source != "" {
		where += ` AND source = ?`
		args = append(args, f.Source)
	}
	if f.Since != nil {
		where += ` AND emit_time >= ?`
		args = append(args, *f.Since)
	}

	stats := model.Statistics{CountPerSource: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`+where, args...).Scan(&stats.Total); err != nil {
		return model.Statistics{}, fmt.Errorf("storage: stats total: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM records`+where+` GROUP BY source`, args...)
	if err != nil {
		return model.Statistics{}, fmt.Errorf("storage: stats per-source: %w", err)
	}
	for rows.Next() {
		var src string
		var n int64
		if err := rows.Scan(&src, &n); err != nil {
			rows.Close()
			return model.Statistics{}, err
		}
		stats.CountPerSource[src] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return model.Statistics{}, err
	}
	rows.Close()

	// Error aggregation: severity <= Error (ordinal 2).
	errArgs := append([]any{}, args...)
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`+where+fmt.Sprintf(` AND severity <= %d`, int(model.Error)), errArgs...).Scan(&stats.ErrorCount); err != nil {
		return model.Statistics{}, fmt.Errorf("storage: error count: %w", err)
	}

	// Warning aggregation: severity == Warning (ordinal 3) exactly.
	warnArgs := append([]any{}, args...)
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`+where+fmt.Sprintf(` AND severity = %d`, int(model.Warning)), warnArgs...).Scan(&stats.WarningCount); err != nil {
		return model.Statistics{}, fmt.Errorf("storage: warning count: %w", err)
	}

	topRows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) c FROM records`+where+` GROUP BY category ORDER BY c DESC LIMIT 20`, args...)
	if err != nil {
		return model.Statistics{}, fmt.Errorf("storage: top categories: %w", err)
	}
	for topRows.Next() {
		var cc model.CategoryCount
		if err := topRows.Scan(&cc.Category, &cc.Count); err != nil {
			topRows.Close()
			return model.Statistics{}, err
		}
		stats.TopCategories = append(stats.TopCategories, cc)
	}
	if err := topRows.Err(); err != nil {
		topRows.Close()
		return model.Statistics{}, err
	}
	topRows.Close()

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_id) FROM records`+where, args...).Scan(&stats.SessionCount); err != nil {
		return model.Statistics{}, fmt.Errorf("storage: session count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT instance_id) FROM records`+where, args...).Scan(&stats.InstanceCount); err != nil {
		return model.Statistics{}, fmt.Errorf("storage: instance count: %w", err)
	}

	latest, err := s.latestSessionLocked(ctx, f.Source)
	if err != nil {
		return model.Statistics{}, err
	}
	if latest != nil {
		stats.CurrentSession = *latest
	}

	return stats, nil
}

// Clear implements store.Store.
func (s *Store) Clear(ctx context.Context, source string, beforeEmitTime *float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, store.ErrClosed
	}

	where := ` WHERE 1=1`
	var args []any
	if source != "" {
		where += ` AND source = ?`
		args = append(args, source)
	}
	if beforeEmitTime != nil {
		where += ` AND emit_time < ?`
		args = append(args, *beforeEmitTime)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM records`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("storage: clear: %w", err)
	}
	return res.RowsAffected()
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, store.ErrClosed
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count: %w", err)
	}
	return n, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
