package claim

import (
	"context"
	"time"

	"github.com/easelhq/easel/internal/canvas"
)

// LedgerKind classifies a deposit-ledger movement. Every unit paid in as a
// deposit is eventually paid out as exactly one refund, reward or forfeit.
type LedgerKind string

const (
	LedgerDeposit LedgerKind = "deposit"
	LedgerRefund  LedgerKind = "refund"
	LedgerReward  LedgerKind = "reward"
	LedgerForfeit LedgerKind = "forfeit"
)

// LedgerEntry records one deposit movement against an account.
type LedgerEntry struct {
	ID      string       `json:"id"`
	Account string       `json:"account"`
	TokenID canvas.Token `json:"token_id"`
	Kind    LedgerKind   `json:"kind"`
	Amount  uint64       `json:"amount"`
	Time    time.Time    `json:"time"`
}

// Store provides transactional persistence for the registry. Each mutation
// is all-or-nothing: the claim change, its ledger entries and its events
// commit together or not at all. Mutations assign Index on created claims
// and fill event IDs in place (one block per call, log indices in slice
// order). Reads of absent tokens return repository.ErrNotFound.
type Store interface {
	Claim(ctx context.Context, token canvas.Token) (*Claim, error)
	Style(ctx context.Context, token canvas.Token) (canvas.Style, error)
	// Claims returns every stored claim in ascending index order.
	Claims(ctx context.Context) ([]Claim, error)

	CreateClaim(ctx context.Context, c *Claim, style canvas.Style, deposit *LedgerEntry, evs []Event) error
	ActivateClaim(ctx context.Context, token canvas.Token, evs []Event) error
	DeleteClaim(ctx context.Context, token canvas.Token, payout *LedgerEntry, evs []Event) error
	// ReplaceClaim deletes the claim on c.TokenID and creates c in its
	// place, in one transaction. A failure leaves the old claim intact.
	ReplaceClaim(ctx context.Context, payout *LedgerEntry, c *Claim, style canvas.Style, deposit *LedgerEntry, evs []Event) error
	SetDuration(ctx context.Context, token canvas.Token, duration uint16, deposit uint64, payment *LedgerEntry, evs []Event) error

	// EventsFrom returns all events at or after the given block, in log order.
	EventsFrom(ctx context.Context, block uint64) ([]Event, error)
	// LedgerTotals sums ledger amounts by kind, for conservation checks.
	LedgerTotals(ctx context.Context) (map[LedgerKind]uint64, error)
}
