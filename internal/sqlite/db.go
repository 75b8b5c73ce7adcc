// Package sqlite persists the registry: claims, token styles, the
// append-only event log, the deposit ledger and API credentials.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema if it does not exist.
func (db *DB) RunMigrations() error {
	migration := `
-- Claims: one row per live (pending or active) claim. An inactive token
-- has no row. idx is the global insertion counter, never reused.
CREATE TABLE IF NOT EXISTS claims (
    token_id TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    start_date INTEGER NOT NULL,
    duration INTEGER NOT NULL CHECK(duration BETWEEN 0 AND 65535),
    edit_buffer INTEGER NOT NULL CHECK(edit_buffer BETWEEN 0 AND 255),
    idx INTEGER NOT NULL UNIQUE,
    status INTEGER NOT NULL CHECK(status IN (1, 2)),
    deposit INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_claims_owner ON claims(owner);

-- Token display styles, kept independently of the claim row so an
-- expired or challenged token still renders.
CREATE TABLE IF NOT EXISTS token_styles (
    token_id TEXT PRIMARY KEY,
    foreground INTEGER NOT NULL,
    background INTEGER NOT NULL
);

-- Append-only event log. One block per registry transition.
CREATE TABLE IF NOT EXISTS events (
    block INTEGER NOT NULL,
    log_index INTEGER NOT NULL,
    type TEXT NOT NULL,
    token_id TEXT NOT NULL,
    account TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    PRIMARY KEY (block, log_index)
);

-- Deposit ledger: every unit paid in is eventually paid out exactly once.
CREATE TABLE IF NOT EXISTS ledger (
    id TEXT PRIMARY KEY,
    account TEXT NOT NULL,
    token_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('deposit', 'refund', 'reward', 'forfeit')),
    amount INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger(account);

-- Monotonic counters for claim indices and event blocks.
CREATE TABLE IF NOT EXISTS registry_state (
    id INTEGER PRIMARY KEY CHECK(id = 1),
    next_index INTEGER NOT NULL,
    next_block INTEGER NOT NULL
);
INSERT OR IGNORE INTO registry_state (id, next_index, next_block) VALUES (1, 0, 0);

-- Bearer credentials resolving to account identifiers.
CREATE TABLE IF NOT EXISTS credentials (
    token_hash TEXT PRIMARY KEY,
    account TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
