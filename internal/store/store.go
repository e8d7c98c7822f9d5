// Package store is the sole owner of entity lifetimes: users, templates,
// punches, devices and settings. Every exported method opens its own
// context-scoped call against the database; no session object is retained
// across requests.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/utils"
	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	NotFound   = utils.Error("store: record not found")
	Duplicate  = utils.Error("store: unique constraint violated")
	Constraint = utils.Error("store: constraint violation")
	Io         = utils.Error("store: io error")
)

const dialect = "sqlite3"

var goquDialect = goqu.Dialect(dialect)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	employee_code TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS templates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	template_path TEXT NOT NULL,
	quality INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_templates_user_id ON templates(user_id);

CREATE TABLE IF NOT EXISTS punches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	timestamp_utc TEXT NOT NULL,
	timestamp_local TEXT NOT NULL,
	punch_type TEXT NOT NULL,
	match_score INTEGER NOT NULL,
	device_id TEXT NOT NULL,
	synced INTEGER NOT NULL DEFAULT 0,
	sync_error TEXT,
	sync_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_punches_user_id ON punches(user_id);
CREATE INDEX IF NOT EXISTS idx_punches_synced ON punches(synced);

CREATE TABLE IF NOT EXISTS devices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	token TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	enrolled_user_agent TEXT
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store wraps the sqlite connection; WAL mode and foreign keys are enabled
// at connection time so template/device rows cascade-delete through
// SQLite itself, while punches (a ledger, no FK) are removed explicitly.
type Store struct {
	conn *sqlx.DB
}

// Open connects to the sqlite database at path, enables WAL mode and
// foreign keys, and creates the schema if it does not exist yet.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open(dialect, path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1) // single-writer-friendly per spec §9
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Store{conn: conn}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.conn.Close()
}

// DB exposes the underlying connection for callers that need a raw
// transaction (e.g. delete_user's cascading punch cleanup).
func (s *Store) DB() *sqlx.DB {
	return s.conn
}

func wrapExecErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return Duplicate
	case strings.Contains(msg, "FOREIGN KEY constraint failed"), strings.Contains(msg, "CHECK constraint failed"):
		return Constraint
	default:
		return err
	}
}

// nowUTC is overridable in tests that need deterministic timestamps.
var nowUTC = func() time.Time { return time.Now().UTC() }

func fetchOne(ctx context.Context, conn *sqlx.DB, qry *goqu.SelectDataset, target any) error {
	sqlQry, args, err := qry.Limit(1).ToSQL()
	if err != nil {
		return err
	}
	if err := conn.QueryRowxContext(ctx, sqlQry, args...).StructScan(target); err != nil {
		if err == sql.ErrNoRows {
			return NotFound
		}
		return err
	}
	return nil
}

func fetch(ctx context.Context, conn *sqlx.DB, qry *goqu.SelectDataset, target any) error {
	sqlQry, args, err := qry.ToSQL()
	if err != nil {
		return err
	}
	return conn.SelectContext(ctx, target, sqlQry, args...)
}
