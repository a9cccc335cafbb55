// Package db provides the remote task repository over a relational
// backend.
//
// Three backends are supported, selected by DSN: embedded SQLite (the
// default, via ncruces/go-sqlite3 with WAL for concurrent reads),
// libsql URLs for hosted Turso databases, and Postgres DSNs via
// lib/pq. The repository issues single-statement queries and does not
// assume multi-statement transactional atomicity across its own
// operations; the backend owns row-level concurrency control.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	_ "github.com/tursodatabase/go-libsql"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// querier is the query surface the repository runs on. *sql.DB
// satisfies it; tests wrap it to count issued queries.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DB wraps the backend connection with task-repository functionality.
type DB struct {
	conn    *sql.DB
	q       querier
	dialect dialect
	dsn     string
}

// Open connects to the backend identified by dsn.
//
//   - postgres:// or postgresql:// DSNs use lib/pq
//   - libsql://, wss:// or https:// URLs use the libsql driver
//   - anything else is an embedded SQLite database path
//
// The caller MUST call Close when done.
func Open(dsn string) (*DB, error) {
	driver := "sqlite3"
	d := dialectSQLite

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driver = "postgres"
		d = dialectPostgres
	case strings.HasPrefix(dsn, "libsql://"), strings.HasPrefix(dsn, "wss://"), strings.HasPrefix(dsn, "https://"):
		driver = "libsql"
	default:
		if !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
			dsn = "file:" + dsn
		}
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, q: conn, dialect: d, dsn: dsn}

	if driver == "sqlite3" {
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		} {
			if _, err := conn.Exec(pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the backend connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.conn = nil
	return nil
}

// rebind rewrites ? placeholders to the backend's native style.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InitSchema creates the tasks, task_dependencies and sync_metadata
// tables with their indexes. Idempotent.
func (db *DB) InitSchema(ctx context.Context) error {
	metadataID := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	syncAtDefault := "DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))"
	if db.dialect == dialectPostgres {
		metadataID = "id BIGSERIAL PRIMARY KEY"
		syncAtDefault = `DEFAULT to_char(now() at time zone 'utc', 'YYYY-MM-DD"T"HH24:MI:SS.MS"Z"')`
	}

	ddl := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		parent_task_id TEXT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		priority TEXT NOT NULL DEFAULT 'medium',
		position INTEGER NOT NULL DEFAULT 0,
		subtask_position INTEGER,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (account_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_account_position
	    ON tasks(account_id, position);
	CREATE INDEX IF NOT EXISTS idx_tasks_parent
	    ON tasks(account_id, parent_task_id);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		account_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		depends_on_task_id TEXT NOT NULL,
		PRIMARY KEY (account_id, task_id, depends_on_task_id)
	);

	CREATE INDEX IF NOT EXISTS idx_deps_task
	    ON task_dependencies(account_id, task_id);

	CREATE TABLE IF NOT EXISTS sync_metadata (
		` + metadataID + `,
		table_name TEXT NOT NULL,
		record_key TEXT NOT NULL,
		last_json_hash TEXT,
		last_db_hash TEXT,
		last_sync_at TEXT NOT NULL ` + syncAtDefault + `,
		conflict_status TEXT NOT NULL DEFAULT 'none',
		UNIQUE (table_name, record_key)
	);
	`

	if _, err := db.q.ExecContext(ctx, ddl); err != nil {
		return &QueryError{Op: "init schema", Err: err}
	}
	return nil
}
