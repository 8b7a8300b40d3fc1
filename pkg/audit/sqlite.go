package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteConfig contains configuration for the SQLite recorder.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// QueryLimit is the default row cap for Query calls with no explicit
	// limit.
	// Default: 100
	QueryLimit int
}

// DefaultSQLiteConfig returns the default SQLite recorder configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		BusyTimeout:  5 * time.Second,
		QueryLimit:   100,
	}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	ts          INTEGER NOT NULL,
	op          TEXT NOT NULL,
	node        TEXT NOT NULL,
	attach_type TEXT NOT NULL DEFAULT '',
	programs    TEXT NOT NULL DEFAULT '[]',
	flags       TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events (ts);
CREATE INDEX IF NOT EXISTS idx_audit_events_node ON audit_events (node, ts);
`

// SQLiteRecorder implements Recorder and Querier backed by a SQLite
// database in WAL mode.
type SQLiteRecorder struct {
	db     *sql.DB
	config *SQLiteConfig
	insert *sql.Stmt
	logger *slog.Logger
}

// NewSQLiteRecorder opens (creating if needed) the audit database and
// prepares the insert path.
func NewSQLiteRecorder(config *SQLiteConfig) (*SQLiteRecorder, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("audit database path cannot be empty")
	}
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 10
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}
	if config.QueryLimit == 0 {
		config.QueryLimit = 100
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		config.Path, int(config.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	insert, err := db.Prepare(`INSERT INTO audit_events
		(id, ts, op, node, attach_type, programs, flags, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare audit insert: %w", err)
	}

	return &SQLiteRecorder{
		db:     db,
		config: config,
		insert: insert,
		logger: slog.Default().With("component", "audit.sqlite"),
	}, nil
}

// Record stores one event.
func (r *SQLiteRecorder) Record(ctx context.Context, ev *Event) error {
	programs, err := json.Marshal(ev.Programs)
	if err != nil {
		return fmt.Errorf("failed to encode program list: %w", err)
	}

	_, err = r.insert.ExecContext(ctx,
		ev.ID, ev.Time.UnixNano(), string(ev.Op), ev.Node,
		ev.AttachType, string(programs), ev.Flags, ev.Outcome, ev.Detail)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Query returns matching events, newest first.
func (r *SQLiteRecorder) Query(ctx context.Context, f QueryFilter) ([]*Event, error) {
	query := `SELECT id, ts, op, node, attach_type, programs, flags, outcome, detail
		FROM audit_events WHERE 1=1`
	var args []any

	if f.Node != "" {
		query += " AND node = ?"
		args = append(args, f.Node)
	}
	if f.Op != "" {
		query += " AND op = ?"
		args = append(args, string(f.Op))
	}
	if !f.Since.IsZero() {
		query += " AND ts >= ?"
		args = append(args, f.Since.UnixNano())
	}
	if !f.Until.IsZero() {
		query += " AND ts < ?"
		args = append(args, f.Until.UnixNano())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = r.config.QueryLimit
	}
	query += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit query failed: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var ev Event
		var ts int64
		var programs string
		var op string
		if err := rows.Scan(&ev.ID, &ts, &op, &ev.Node, &ev.AttachType,
			&programs, &ev.Flags, &ev.Outcome, &ev.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		ev.Time = time.Unix(0, ts).UTC()
		ev.Op = Operation(op)
		if err := json.Unmarshal([]byte(programs), &ev.Programs); err != nil {
			return nil, fmt.Errorf("failed to decode program list: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Count returns the total number of stored events.
func (r *SQLiteRecorder) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("audit count failed: %w", err)
	}
	return n, nil
}

// DeleteBefore removes events older than cutoff and returns how many were
// deleted.
func (r *SQLiteRecorder) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM audit_events WHERE ts < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("audit prune failed: %w", err)
	}
	return res.RowsAffected()
}

// TrimToMax deletes the oldest events beyond max and returns how many were
// deleted. A non-positive max is a no-op.
func (r *SQLiteRecorder) TrimToMax(ctx context.Context, max int64) (int64, error) {
	if max <= 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_events WHERE id IN (
		SELECT id FROM audit_events ORDER BY ts DESC LIMIT -1 OFFSET ?)`, max)
	if err != nil {
		return 0, fmt.Errorf("audit trim failed: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	if r.insert != nil {
		r.insert.Close()
	}
	return r.db.Close()
}
