// Package store provides SQLite-backed persistence for recipes, their
// versions, cooking sessions and the import cache, with optional FTS5
// full-text search.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS recipes (
	id                  TEXT PRIMARY KEY,
	owner               TEXT,
	name                TEXT NOT NULL,
	slug                TEXT NOT NULL,
	last_version_number INTEGER NOT NULL DEFAULT 0,
	search_text         TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_recipes_owner_slug ON recipes(owner, slug) WHERE owner IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_recipes_slug_no_owner ON recipes(slug) WHERE owner IS NULL;

CREATE TABLE IF NOT EXISTS recipe_versions (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	recipe_id         TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	version_number    INTEGER NOT NULL,
	version_semver    TEXT NOT NULL DEFAULT '',
	parent_version_id INTEGER REFERENCES recipe_versions(id) ON DELETE SET NULL,
	commit_message    TEXT NOT NULL DEFAULT '',
	author            TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	document          TEXT NOT NULL,
	checksum          TEXT NOT NULL,
	created_at        DATETIME NOT NULL,
	UNIQUE(recipe_id, version_number)
);

CREATE INDEX IF NOT EXISTS idx_versions_recipe ON recipe_versions(recipe_id, version_number DESC);

CREATE TABLE IF NOT EXISTS cooking_sessions (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	owner                  TEXT,
	recipe_version_id      INTEGER NOT NULL REFERENCES recipe_versions(id) ON DELETE CASCADE,
	started_at             DATETIME NOT NULL,
	ended_at               DATETIME,
	current_step_index     INTEGER NOT NULL DEFAULT 0,
	log_entries            TEXT NOT NULL DEFAULT '[]',
	session_notes          TEXT NOT NULL DEFAULT '',
	step_durations_seconds TEXT NOT NULL DEFAULT '[]',
	rating                 REAL,
	modifications          TEXT NOT NULL DEFAULT '',
	photos                 TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_sessions_version ON cooking_sessions(recipe_version_id);

CREATE TABLE IF NOT EXISTS import_cache (
	normalized_url TEXT PRIMARY KEY,
	url            TEXT NOT NULL,
	result         TEXT NOT NULL,
	checksum       TEXT NOT NULL,
	created_at     DATETIME NOT NULL
);
`

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the SQLite database and applies the schema.
// Write transactions take the database write lock up front
// (BEGIN IMMEDIATE), so read-then-write sequences such as version number
// assignment are serialized.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) timestamp() time.Time {
	return db.now().UTC()
}

// ownerArg maps the empty owner to NULL. Queries compare with "owner IS ?"
// so both owned and ownerless scopes use one statement.
func ownerArg(owner string) any {
	if owner == "" {
		return nil
	}
	return owner
}

// inTx runs fn in a write transaction, retrying once when SQLite reports
// the database busy or a uniqueness race.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := db.runTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if isTransient(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(2),
	)
	return err
}

func (db *DB) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isTransient(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy ||
		se.Code == sqlite3.ErrLocked ||
		se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
