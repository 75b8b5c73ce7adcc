package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/repository"
	"github.com/google/uuid"
)

// Params are the registry's economic and timing constants. Clients read
// them once per session; they are not expected to change while running.
type Params struct {
	DurationCostFactor   uint64        `json:"duration_cost_factor"`
	EditBufferCostFactor uint64        `json:"edit_buffer_cost_factor"`
	ChallengePeriod      time.Duration `json:"challenge_period"`
	TimeUnit             time.Duration `json:"time_unit"`
	MaxEditBuffer        uint8         `json:"max_edit_buffer"`
}

// Registry is the authoritative claim store and state machine. Transitions
// are strictly serialized: a single mutex makes every call all-or-nothing
// against shared state, and each mutation commits in one store transaction
// before its events are published to the feed.
type Registry struct {
	store         Store
	params        Params
	systemAccount string
	logger        *slog.Logger
	feed          *Feed
	now           func() time.Time

	mu sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the registry's time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry over the given store.
func NewRegistry(store Store, params Params, systemAccount string, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:         store,
		params:        params,
		systemAccount: systemAccount,
		logger:        logger,
		feed:          NewFeed(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Params returns the registry's configuration constants.
func (r *Registry) Params() Params {
	return r.params
}

// Cost returns the payment required for a claim with the given duration and
// edit buffer under the registry's cost factors.
func (r *Registry) Cost(duration uint16, editBuffer uint8) uint64 {
	return Cost(duration, editBuffer, r.params.DurationCostFactor, r.params.EditBufferCostFactor)
}

// DiffIndices returns the sorted bit positions where two tokens differ, the
// compact proof format challenges use.
func (r *Registry) DiffIndices(a, b canvas.Token) []byte {
	return canvas.DiffIndices(a, b)
}

// SubscribeEvents registers a live event subscription.
func (r *Registry) SubscribeEvents(buffer int) (<-chan Event, func()) {
	return r.feed.Subscribe(buffer)
}

// Seed installs the two sentinel claims on the zero and all-ones tokens,
// permanently Active and owned by the registry itself with maximal
// duration and indices 0 and 1. Idempotent; establishes that these
// identifiers can never be claimed by users.
func (r *Registry) Seed(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range []canvas.Token{canvas.Zero, canvas.Max()} {
		_, err := r.store.Claim(ctx, token)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("checking sentinel claim: %w", err)
		}

		now := r.now()
		c := &Claim{
			TokenID:   token,
			Owner:     r.systemAccount,
			StartDate: now,
			Duration:  MaxDuration,
			Status:    StatusActive,
		}
		evs := []Event{
			{Type: EventClaimSubmitted, TokenID: token, Account: r.systemAccount, Time: now},
			{Type: EventClaimAccepted, TokenID: token, Time: now},
		}
		if err := r.store.CreateClaim(ctx, c, canvas.Style{}, nil, evs); err != nil {
			return fmt.Errorf("seeding sentinel claim %s: %w", token, err)
		}
		r.feed.Publish(evs...)
		r.logger.Info("seeded sentinel claim", "token", token.String(), "index", c.Index)
	}
	return nil
}

// SubmitRequest describes a claim submission.
type SubmitRequest struct {
	Account    string
	TokenID    canvas.Token
	Duration   uint16
	EditBuffer uint8
	Style      canvas.Style
	Payment    uint64
}

// Submit creates a Pending claim on a token with no live claim. The payment
// must cover the claim cost and is held as the deposit. If an Active claim
// on the token has fully run out its duration, the expired claim is
// retracted on behalf of the system (no refund) and the slot is reclaimed,
// all within one store transaction.
func (r *Registry) Submit(ctx context.Context, req SubmitRequest) (*Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.EditBuffer > r.params.MaxEditBuffer {
		return nil, ErrEditBufferTooLarge
	}
	if req.Payment < r.Cost(req.Duration, req.EditBuffer) {
		return nil, ErrInsufficientPayment
	}

	now := r.now()
	var expired *Claim
	existing, err := r.store.Claim(ctx, req.TokenID)
	switch {
	case err == nil:
		if existing.Status != StatusActive || !existing.Expired(now, r.params.TimeUnit) {
			return nil, ErrClaimAlreadyExists
		}
		expired = existing
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("loading claim: %w", err)
	}

	c := &Claim{
		TokenID:    req.TokenID,
		Owner:      req.Account,
		StartDate:  now,
		Duration:   req.Duration,
		EditBuffer: req.EditBuffer,
		Status:     StatusPending,
		Deposit:    req.Payment,
	}
	deposit := r.ledgerEntry(req.Account, req.TokenID, LedgerDeposit, req.Payment, now)
	if expired != nil {
		// The expired claim forfeits its deposit and is replaced in the
		// same store transaction; a failure leaves it in place.
		payout := r.ledgerEntry(expired.Owner, expired.TokenID, LedgerForfeit, expired.Deposit, now)
		evs := []Event{
			{Type: EventClaimRetracted, TokenID: req.TokenID, Time: now},
			{Type: EventClaimSubmitted, TokenID: req.TokenID, Account: req.Account, Time: now},
		}
		if err := r.store.ReplaceClaim(ctx, payout, c, req.Style, deposit, evs); err != nil {
			return nil, fmt.Errorf("replacing expired claim: %w", err)
		}
		r.feed.Publish(evs...)
		r.logger.Info("expired claim replaced",
			"token", c.TokenID.String(), "previous_owner", expired.Owner,
			"owner", c.Owner, "index", c.Index, "deposit", c.Deposit)
	} else {
		evs := []Event{{Type: EventClaimSubmitted, TokenID: req.TokenID, Account: req.Account, Time: now}}
		if err := r.store.CreateClaim(ctx, c, req.Style, deposit, evs); err != nil {
			return nil, fmt.Errorf("creating claim: %w", err)
		}
		r.feed.Publish(evs...)
		r.logger.Info("claim submitted",
			"token", c.TokenID.String(), "owner", c.Owner, "index", c.Index, "deposit", c.Deposit)
	}

	// Authoritative infringement flagging: the new claim is durably
	// recorded, now warn if it is challengeable.
	if infringed, err := r.infringement(ctx, Candidate{TokenID: c.TokenID, EditBuffer: c.EditBuffer}, c.Index); err != nil {
		r.logger.Warn("infringement scan failed", "token", c.TokenID.String(), "error", err)
	} else if infringed != nil {
		r.logger.Warn("submitted claim infringes an existing claim",
			"token", c.TokenID.String(), "infringed", infringed.TokenID.String(),
			"distance", canvas.HammingDistance(c.TokenID, infringed.TokenID))
	}
	return c, nil
}

// Accept transitions a Pending claim to Active once its challenge period
// has elapsed.
func (r *Registry) Accept(ctx context.Context, token canvas.Token) (*Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.store.Claim(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoPendingClaim
		}
		return nil, fmt.Errorf("loading claim: %w", err)
	}
	if c.Status != StatusPending {
		return nil, ErrNoPendingClaim
	}
	now := r.now()
	if now.Before(c.StartDate.Add(r.params.ChallengePeriod)) {
		return nil, ErrStillInChallengePeriod
	}

	evs := []Event{{Type: EventClaimAccepted, TokenID: token, Time: now}}
	if err := r.store.ActivateClaim(ctx, token, evs); err != nil {
		return nil, fmt.Errorf("activating claim: %w", err)
	}
	r.feed.Publish(evs...)
	r.logger.Info("claim accepted", "token", token.String(), "owner", c.Owner)

	c.Status = StatusActive
	return c, nil
}

// Retract destroys a claim. Only the owner may retract, except an Active
// claim whose duration has fully elapsed, which anyone may retract to
// reclaim the slot. The deposit is refunded in full only while the claim is
// still Pending; an Active claim already spent its challenge-free guarantee
// and forfeits the deposit regardless of who retracts it. Returns the
// refunded amount.
func (r *Registry) Retract(ctx context.Context, account string, token canvas.Token) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.store.Claim(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrNoActiveClaim
		}
		return 0, fmt.Errorf("loading claim: %w", err)
	}
	now := r.now()
	expired := c.Status == StatusActive && c.Expired(now, r.params.TimeUnit)
	if c.Owner != account && !expired {
		return 0, ErrNotOwner
	}

	var refund uint64
	var payout *LedgerEntry
	if c.Status == StatusPending {
		refund = c.Deposit
		payout = r.ledgerEntry(c.Owner, token, LedgerRefund, c.Deposit, now)
	} else {
		payout = r.ledgerEntry(c.Owner, token, LedgerForfeit, c.Deposit, now)
	}

	evs := []Event{{Type: EventClaimRetracted, TokenID: token, Time: now}}
	if err := r.store.DeleteClaim(ctx, token, payout, evs); err != nil {
		return 0, fmt.Errorf("retracting claim: %w", err)
	}
	r.feed.Publish(evs...)
	r.logger.Info("claim retracted",
		"token", token.String(), "owner", c.Owner, "caller", account, "refund", refund)
	return refund, nil
}

// Challenge verifies an infringement proof against a live claim and, on
// success, destroys the challenged claim and pays its deposit to the
// caller. The caller must own the infringed claim. Returns the reward.
func (r *Registry) Challenge(ctx context.Context, account string, challengedToken, infringedToken canvas.Token, diffIndices []byte) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	infringed, err := r.store.Claim(ctx, infringedToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrNoActiveInfringedClaim
		}
		return 0, fmt.Errorf("loading infringed claim: %w", err)
	}
	challenged, err := r.store.Claim(ctx, challengedToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrNoActiveClaim
		}
		return 0, fmt.Errorf("loading challenged claim: %w", err)
	}
	if infringed.Owner != account {
		return 0, ErrNotOwner
	}
	if err := VerifyChallenge(challenged, infringed, diffIndices); err != nil {
		return 0, err
	}

	now := r.now()
	reward := challenged.Deposit
	payout := r.ledgerEntry(account, challengedToken, LedgerReward, reward, now)
	evs := []Event{{Type: EventClaimChallenged, TokenID: challengedToken, Account: account, Time: now}}
	if err := r.store.DeleteClaim(ctx, challengedToken, payout, evs); err != nil {
		return 0, fmt.Errorf("resolving challenge: %w", err)
	}
	r.feed.Publish(evs...)
	r.logger.Info("claim challenged",
		"token", challengedToken.String(), "infringed", infringedToken.String(),
		"payee", account, "reward", reward)
	return reward, nil
}

// ExtendDuration lengthens an Active claim owned by the caller. The
// extension is priced like a submission over the added duration and the
// payment joins the held deposit; an extension that would overflow the
// stored duration is rejected with no mutation.
func (r *Registry) ExtendDuration(ctx context.Context, account string, token canvas.Token, extension uint16, payment uint64) (*Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.store.Claim(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveClaim
		}
		return nil, fmt.Errorf("loading claim: %w", err)
	}
	if c.Status != StatusActive {
		return nil, ErrNoActiveClaim
	}
	if c.Owner != account {
		return nil, ErrNotOwner
	}
	if extension > MaxDuration-c.Duration {
		return nil, ErrDurationOverflow
	}
	if payment < r.Cost(extension, c.EditBuffer) {
		return nil, ErrInsufficientPayment
	}

	now := r.now()
	newDuration := c.Duration + extension
	newDeposit := c.Deposit + payment
	deposit := r.ledgerEntry(account, token, LedgerDeposit, payment, now)
	if err := r.store.SetDuration(ctx, token, newDuration, newDeposit, deposit, nil); err != nil {
		return nil, fmt.Errorf("extending claim: %w", err)
	}
	r.logger.Info("claim duration extended",
		"token", token.String(), "duration", newDuration, "extension", extension)

	c.Duration = newDuration
	c.Deposit = newDeposit
	return c, nil
}

// GetClaim returns a claim and its display style. Absent tokens fail with
// ErrNoActiveClaim.
func (r *Registry) GetClaim(ctx context.Context, token canvas.Token) (*Claim, canvas.Style, error) {
	c, err := r.store.Claim(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, canvas.Style{}, ErrNoActiveClaim
		}
		return nil, canvas.Style{}, fmt.Errorf("loading claim: %w", err)
	}
	style, err := r.store.Style(ctx, token)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, canvas.Style{}, fmt.Errorf("loading style: %w", err)
	}
	return c, style, nil
}

// ListClaims returns every stored claim in ascending index order.
func (r *Registry) ListClaims(ctx context.Context) ([]Claim, error) {
	return r.store.Claims(ctx)
}

// FindInfringement runs the infringement scan for a candidate over the
// registry's stored claims, for pre-submission checks.
func (r *Registry) FindInfringement(ctx context.Context, candidate Candidate) (*Claim, error) {
	claims, err := r.store.Claims(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	return FindInfringement(candidate, claims), nil
}

// EventsFrom returns the historical event log at or after the given block.
func (r *Registry) EventsFrom(ctx context.Context, block uint64) ([]Event, error) {
	return r.store.EventsFrom(ctx, block)
}

// infringement scans stored claims excluding the claim at selfIndex.
func (r *Registry) infringement(ctx context.Context, candidate Candidate, selfIndex uint64) (*Claim, error) {
	claims, err := r.store.Claims(ctx)
	if err != nil {
		return nil, err
	}
	others := claims[:0:0]
	for _, c := range claims {
		if c.Index != selfIndex {
			others = append(others, c)
		}
	}
	return FindInfringement(candidate, others), nil
}

func (r *Registry) ledgerEntry(account string, token canvas.Token, kind LedgerKind, amount uint64, now time.Time) *LedgerEntry {
	if amount == 0 {
		return nil
	}
	return &LedgerEntry{
		ID:      uuid.NewString(),
		Account: account,
		TokenID: token,
		Kind:    kind,
		Amount:  amount,
		Time:    now,
	}
}
