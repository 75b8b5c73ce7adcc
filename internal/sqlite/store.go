package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/claim"
	"github.com/easelhq/easel/internal/repository"
)

// Store implements claim.Store. Every mutation runs in a single
// transaction: the claim change, ledger entries and emitted events commit
// together or not at all.
type Store struct {
	db *DB
}

// NewStore creates a Store over an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

const claimColumns = "token_id, owner, start_date, duration, edit_buffer, idx, status, deposit"

// Claim retrieves the live claim on a token.
func (s *Store) Claim(ctx context.Context, token canvas.Token) (*claim.Claim, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+claimColumns+" FROM claims WHERE token_id = ?", token.String())
	c, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return c, nil
}

// Style retrieves the display style recorded for a token.
func (s *Store) Style(ctx context.Context, token canvas.Token) (canvas.Style, error) {
	var fg, bg uint32
	err := s.db.QueryRowContext(ctx,
		"SELECT foreground, background FROM token_styles WHERE token_id = ?", token.String(),
	).Scan(&fg, &bg)
	if err == sql.ErrNoRows {
		return canvas.Style{}, repository.ErrNotFound
	}
	if err != nil {
		return canvas.Style{}, fmt.Errorf("failed to get style: %w", err)
	}
	return canvas.Style{Foreground: canvas.Color(fg), Background: canvas.Color(bg)}, nil
}

// Claims returns every stored claim in ascending index order.
func (s *Store) Claims(ctx context.Context) ([]claim.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+claimColumns+" FROM claims ORDER BY idx ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []claim.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// CreateClaim inserts a claim together with its style, deposit entry and
// events, assigning the next insertion index.
func (s *Store) CreateClaim(ctx context.Context, c *claim.Claim, style canvas.Style, deposit *claim.LedgerEntry, evs []claim.Event) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		idx, err := nextCounter(ctx, tx, "next_index")
		if err != nil {
			return err
		}
		c.Index = idx

		_, err = tx.ExecContext(ctx, `
			INSERT INTO claims (token_id, owner, start_date, duration, edit_buffer, idx, status, deposit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.TokenID.String(), c.Owner, c.StartDate.UnixNano(),
			c.Duration, c.EditBuffer, c.Index, int(c.Status), int64(c.Deposit),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrConflict
			}
			return fmt.Errorf("failed to insert claim: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO token_styles (token_id, foreground, background) VALUES (?, ?, ?)
			ON CONFLICT(token_id) DO UPDATE SET foreground = excluded.foreground, background = excluded.background`,
			c.TokenID.String(), uint32(style.Foreground), uint32(style.Background),
		)
		if err != nil {
			return fmt.Errorf("failed to store style: %w", err)
		}

		if err := insertLedgerEntry(ctx, tx, deposit); err != nil {
			return err
		}
		return appendEvents(ctx, tx, evs)
	})
}

// ReplaceClaim swaps the claim on a token for a new one in a single
// transaction: the old row is deleted with its payout, the new claim is
// inserted under a fresh index with its style and deposit, and the event
// batch shares one block. A failure at any step rolls the whole swap back.
func (s *Store) ReplaceClaim(ctx context.Context, payout *claim.LedgerEntry, c *claim.Claim, style canvas.Style, deposit *claim.LedgerEntry, evs []claim.Event) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM claims WHERE token_id = ?", c.TokenID.String())
		if err != nil {
			return fmt.Errorf("failed to delete claim: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrNotFound
		}
		if err := insertLedgerEntry(ctx, tx, payout); err != nil {
			return err
		}

		idx, err := nextCounter(ctx, tx, "next_index")
		if err != nil {
			return err
		}
		c.Index = idx

		_, err = tx.ExecContext(ctx, `
			INSERT INTO claims (token_id, owner, start_date, duration, edit_buffer, idx, status, deposit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.TokenID.String(), c.Owner, c.StartDate.UnixNano(),
			c.Duration, c.EditBuffer, c.Index, int(c.Status), int64(c.Deposit),
		)
		if err != nil {
			return fmt.Errorf("failed to insert claim: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO token_styles (token_id, foreground, background) VALUES (?, ?, ?)
			ON CONFLICT(token_id) DO UPDATE SET foreground = excluded.foreground, background = excluded.background`,
			c.TokenID.String(), uint32(style.Foreground), uint32(style.Background),
		)
		if err != nil {
			return fmt.Errorf("failed to store style: %w", err)
		}

		if err := insertLedgerEntry(ctx, tx, deposit); err != nil {
			return err
		}
		return appendEvents(ctx, tx, evs)
	})
}

// ActivateClaim flips a claim to Active and appends its events.
func (s *Store) ActivateClaim(ctx context.Context, token canvas.Token, evs []claim.Event) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE claims SET status = ? WHERE token_id = ?",
			int(claim.StatusActive), token.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to activate claim: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrNotFound
		}
		return appendEvents(ctx, tx, evs)
	})
}

// DeleteClaim removes a claim, recording the payout and events atomically.
func (s *Store) DeleteClaim(ctx context.Context, token canvas.Token, payout *claim.LedgerEntry, evs []claim.Event) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM claims WHERE token_id = ?", token.String())
		if err != nil {
			return fmt.Errorf("failed to delete claim: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrNotFound
		}
		if err := insertLedgerEntry(ctx, tx, payout); err != nil {
			return err
		}
		return appendEvents(ctx, tx, evs)
	})
}

// SetDuration updates a claim's duration and held deposit.
func (s *Store) SetDuration(ctx context.Context, token canvas.Token, duration uint16, deposit uint64, payment *claim.LedgerEntry, evs []claim.Event) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE claims SET duration = ?, deposit = ? WHERE token_id = ?",
			duration, int64(deposit), token.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to update duration: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrNotFound
		}
		if err := insertLedgerEntry(ctx, tx, payment); err != nil {
			return err
		}
		return appendEvents(ctx, tx, evs)
	})
}

// EventsFrom returns all events at or after the given block in log order.
func (s *Store) EventsFrom(ctx context.Context, block uint64) ([]claim.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT block, log_index, type, token_id, account, created_at
		FROM events WHERE block >= ?
		ORDER BY block ASC, log_index ASC`, int64(block))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []claim.Event
	for rows.Next() {
		var ev claim.Event
		var tokenHex string
		var createdAt int64
		if err := rows.Scan(&ev.ID.Block, &ev.ID.LogIndex, &ev.Type, &tokenHex, &ev.Account, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		token, err := canvas.ParseToken(tokenHex)
		if err != nil {
			return nil, fmt.Errorf("corrupt event token: %w", err)
		}
		ev.TokenID = token
		ev.Time = time.Unix(0, createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LedgerTotals sums ledger amounts by kind.
func (s *Store) LedgerTotals(ctx context.Context) (map[claim.LedgerKind]uint64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, SUM(amount) FROM ledger GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger: %w", err)
	}
	defer rows.Close()

	totals := make(map[claim.LedgerKind]uint64)
	for rows.Next() {
		var kind string
		var sum int64
		if err := rows.Scan(&kind, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan ledger total: %w", err)
		}
		totals[claim.LedgerKind(kind)] = uint64(sum)
	}
	return totals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*claim.Claim, error) {
	var c claim.Claim
	var tokenHex string
	var startDate int64
	var status int
	var deposit int64
	if err := row.Scan(&tokenHex, &c.Owner, &startDate, &c.Duration, &c.EditBuffer, &c.Index, &status, &deposit); err != nil {
		return nil, err
	}
	token, err := canvas.ParseToken(tokenHex)
	if err != nil {
		return nil, fmt.Errorf("corrupt claim token: %w", err)
	}
	c.TokenID = token
	c.StartDate = time.Unix(0, startDate)
	c.Status = claim.Status(status)
	c.Deposit = uint64(deposit)
	return &c, nil
}

func insertLedgerEntry(ctx context.Context, tx *sql.Tx, entry *claim.LedgerEntry) error {
	if entry == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger (id, account, token_id, kind, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Account, entry.TokenID.String(), string(entry.Kind),
		int64(entry.Amount), entry.Time.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// appendEvents assigns one fresh block to the batch and writes the events
// with log indices in slice order, filling IDs in place.
func appendEvents(ctx context.Context, tx *sql.Tx, evs []claim.Event) error {
	if len(evs) == 0 {
		return nil
	}
	block, err := nextCounter(ctx, tx, "next_block")
	if err != nil {
		return err
	}
	for i := range evs {
		evs[i].ID = claim.EventID{Block: block, LogIndex: uint64(i)}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events (block, log_index, type, token_id, account, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			evs[i].ID.Block, evs[i].ID.LogIndex, string(evs[i].Type),
			evs[i].TokenID.String(), evs[i].Account, evs[i].Time.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
	}
	return nil
}

func nextCounter(ctx context.Context, tx *sql.Tx, column string) (uint64, error) {
	var value int64
	if err := tx.QueryRowContext(ctx,
		"SELECT "+column+" FROM registry_state WHERE id = 1").Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", column, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE registry_state SET "+column+" = ? WHERE id = 1", value+1); err != nil {
		return 0, fmt.Errorf("failed to advance %s: %w", column, err)
	}
	return uint64(value), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
