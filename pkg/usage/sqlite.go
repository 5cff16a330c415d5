package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go driver, registered as "sqlite"
)

// Driver names accepted by NewSQLLedger.
const (
	DriverSQLite  = "sqlite"
	DriverSQLite3 = "sqlite3"
)

// SchemaVersion is the current ledger schema version.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
    id TEXT PRIMARY KEY,
    recorded_at INTEGER NOT NULL,
    session_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    api TEXT NOT NULL,
    attempt INTEGER NOT NULL,
    prompt_tokens INTEGER NOT NULL,
    completion_tokens INTEGER NOT NULL,
    total_tokens INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_recorded_at ON usage_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_usage_session ON usage_records(session_id);
CREATE INDEX IF NOT EXISTS idx_usage_provider ON usage_records(provider);
`

// SQLLedger stores records in a SQLite database through database/sql.
// The same code serves both the pure Go and the cgo driver.
type SQLLedger struct {
	db     *sql.DB
	driver string
	path   string
	logger *slog.Logger

	insertStmt *sql.Stmt
	closeOnce  sync.Once
}

// NewSQLLedger opens (creating if needed) the database at path with the
// given driver. Timestamps are stored as Unix nanoseconds so both drivers
// read them back identically.
func NewSQLLedger(driver, path string) (*SQLLedger, error) {
	if driver != DriverSQLite && driver != DriverSQLite3 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, driver)
	}
	if path == "" {
		return nil, newStorageError(driver, "open", fmt.Errorf("db path cannot be empty"))
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, newStorageError(driver, "open", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, newStorageError(driver, "open", err)
	}

	// SQLite supports a single writer; one connection also keeps the
	// pragmas below in effect and makes :memory: databases usable
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	l := &SQLLedger{
		db:     db,
		driver: driver,
		path:   path,
		logger: slog.Default().With("component", "usage.sqlite", "driver", driver),
	}

	if err := l.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	l.logger.Info("usage ledger opened", "path", path)
	return l, nil
}

func (l *SQLLedger) initialize() error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	if l.path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL;")
	}
	for _, p := range pragmas {
		if _, err := l.db.Exec(p); err != nil {
			return newStorageError(l.driver, "pragma", err)
		}
	}

	if _, err := l.db.Exec(schema); err != nil {
		return newStorageError(l.driver, "create_schema", err)
	}

	if _, err := l.db.Exec(
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?) ON CONFLICT(version) DO NOTHING`,
		SchemaVersion, time.Now().UnixNano(),
	); err != nil {
		return newStorageError(l.driver, "insert_schema_version", err)
	}

	var version int
	if err := l.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version); err != nil {
		return newStorageError(l.driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return newStorageError(l.driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := l.db.Prepare(`
		INSERT INTO usage_records (
			id, recorded_at, session_id, provider, model, api, attempt,
			prompt_tokens, completion_tokens, total_tokens, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return newStorageError(l.driver, "prepare", err)
	}
	l.insertStmt = stmt
	return nil
}

// Record inserts one record.
func (l *SQLLedger) Record(ctx context.Context, rec *Record) error {
	fillDefaults(rec)
	_, err := l.insertStmt.ExecContext(ctx,
		rec.ID, rec.Time.UnixNano(), rec.SessionID, rec.Provider, rec.Model, rec.API, rec.Attempt,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.Duration.Milliseconds(),
	)
	if err != nil {
		return newStorageError(l.driver, "record", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (l *SQLLedger) Query(ctx context.Context, q *Query) ([]*Record, error) {
	where, args := buildWhere(q)
	query := `SELECT id, recorded_at, session_id, provider, model, api, attempt,
		prompt_tokens, completion_tokens, total_tokens, duration_ms
		FROM usage_records` + where + ` ORDER BY recorded_at DESC`
	if q != nil && q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newStorageError(l.driver, "query", err)
	}
	defer rows.Close()

	var results []*Record
	for rows.Next() {
		var (
			rec        Record
			recordedAt int64
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &recordedAt, &rec.SessionID, &rec.Provider, &rec.Model, &rec.API, &rec.Attempt,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.TotalTokens, &durationMS); err != nil {
			return nil, newStorageError(l.driver, "scan", err)
		}
		rec.Time = time.Unix(0, recordedAt).UTC()
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError(l.driver, "query", err)
	}
	return results, nil
}

// Summarize aggregates matching records in SQL.
func (l *SQLLedger) Summarize(ctx context.Context, q *Query) ([]Summary, error) {
	where, args := buildWhere(q)
	rows, err := l.db.QueryContext(ctx, `
		SELECT provider, model, COUNT(*),
			COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(total_tokens), 0)
		FROM usage_records`+where+`
		GROUP BY provider, model
		ORDER BY provider, model`, args...)
	if err != nil {
		return nil, newStorageError(l.driver, "summarize", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Provider, &s.Model, &s.Turns, &s.PromptTokens, &s.CompletionTokens, &s.TotalTokens); err != nil {
			return nil, newStorageError(l.driver, "scan", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError(l.driver, "summarize", err)
	}
	return out, nil
}

// Prune deletes records older than before.
func (l *SQLLedger) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := l.db.ExecContext(ctx, `DELETE FROM usage_records WHERE recorded_at < ?`, before.UnixNano())
	if err != nil {
		return 0, newStorageError(l.driver, "prune", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, newStorageError(l.driver, "prune", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (l *SQLLedger) Ping(ctx context.Context) error {
	if err := l.db.PingContext(ctx); err != nil {
		return newStorageError(l.driver, "ping", err)
	}
	return nil
}

// Close closes the prepared statement and the database.
func (l *SQLLedger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.insertStmt != nil {
			_ = l.insertStmt.Close()
		}
		err = l.db.Close()
	})
	return err
}

func buildWhere(q *Query) (string, []interface{}) {
	if q == nil {
		return "", nil
	}

	var (
		conds []string
		args  []interface{}
	)
	if q.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.Provider != "" {
		conds = append(conds, "provider = ?")
		args = append(args, q.Provider)
	}
	if !q.Since.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if !q.Until.IsZero() {
		conds = append(conds, "recorded_at < ?")
		args = append(args, q.Until.UnixNano())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
