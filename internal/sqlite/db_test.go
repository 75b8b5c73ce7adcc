package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	// Verify all tables were created
	tables := []string{
		"claims",
		"token_styles",
		"events",
		"ledger",
		"registry_state",
		"credentials",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	// Migrations are idempotent
	require.NoError(t, db.RunMigrations())
}

// TestRegistryStateSeeded verifies the counter row exists after migration
func TestRegistryStateSeeded(t *testing.T) {
	db := NewTestDB(t)

	var nextIndex, nextBlock int64
	err := db.QueryRow("SELECT next_index, next_block FROM registry_state WHERE id = 1").
		Scan(&nextIndex, &nextBlock)
	require.NoError(t, err)
	require.Equal(t, int64(0), nextIndex)
	require.Equal(t, int64(0), nextBlock)

	// Re-running migrations must not reset advanced counters
	_, err = db.Exec("UPDATE registry_state SET next_index = 5, next_block = 9 WHERE id = 1")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	err = db.QueryRow("SELECT next_index, next_block FROM registry_state WHERE id = 1").
		Scan(&nextIndex, &nextBlock)
	require.NoError(t, err)
	require.Equal(t, int64(5), nextIndex)
	require.Equal(t, int64(9), nextBlock)
}

// TestClaimsTable verifies the claims table constraints
func TestClaimsTable(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO claims (token_id, owner, start_date, duration, edit_buffer, idx, status, deposit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"0x01", "alice", 0, 1, 5, 0, 1, 1000)
	require.NoError(t, err)

	// Duplicate index - should fail the UNIQUE constraint
	_, err = db.ExecContext(ctx,
		`INSERT INTO claims (token_id, owner, start_date, duration, edit_buffer, idx, status, deposit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"0x02", "bob", 0, 1, 5, 0, 1, 1000)
	require.Error(t, err, "should fail with duplicate idx")

	// Out-of-range duration - should fail the CHECK constraint
	_, err = db.ExecContext(ctx,
		`INSERT INTO claims (token_id, owner, start_date, duration, edit_buffer, idx, status, deposit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"0x03", "bob", 0, 70000, 5, 1, 1, 1000)
	require.Error(t, err, "should fail with out-of-range duration")

	// Invalid status - should fail the CHECK constraint
	_, err = db.ExecContext(ctx,
		`INSERT INTO claims (token_id, owner, start_date, duration, edit_buffer, idx, status, deposit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"0x04", "bob", 0, 1, 5, 2, 7, 1000)
	require.Error(t, err, "should fail with invalid status")
}

// TestLedgerTable verifies the ledger kind constraint
func TestLedgerTable(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO ledger (id, account, token_id, kind, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		"l1", "alice", "0x01", "deposit", 1000, 0)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO ledger (id, account, token_id, kind, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		"l2", "alice", "0x01", "bribe", 1000, 0)
	require.Error(t, err, "should fail with unknown ledger kind")
}

// TestEventsTable verifies the composite event identity
func TestEventsTable(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO events (block, log_index, type, token_id, account, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		0, 0, "claim.submitted", "0x01", "alice", 0)
	require.NoError(t, err)

	// Same block, different log index - fine
	_, err = db.ExecContext(ctx,
		`INSERT INTO events (block, log_index, type, token_id, account, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		0, 1, "claim.accepted", "0x01", "", 0)
	require.NoError(t, err)

	// Duplicate (block, log_index) - should fail
	_, err = db.ExecContext(ctx,
		`INSERT INTO events (block, log_index, type, token_id, account, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		0, 0, "claim.retracted", "0x01", "", 0)
	require.Error(t, err, "should fail with duplicate event identity")
}
