// Package mirror maintains a client-side, eventually-consistent projection
// of the registry by replaying its ordered, deduplicated event log.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/claim"
)

// Source is where the mirror reads registry state from: the historical
// event log, a live subscription and claim lookups for event enrichment.
type Source interface {
	Events(ctx context.Context, fromBlock uint64) ([]claim.Event, error)
	Subscribe(ctx context.Context) (<-chan claim.Event, func(), error)
	Claim(ctx context.Context, token canvas.Token) (*claim.Claim, canvas.Style, error)
}

// Renderer turns a token and its style into a displayable artifact (for
// example a data URI). Rendering is an external concern; the mirror only
// carries the result.
type Renderer func(canvas.Token, canvas.Style) string

// View is the mirror's read-only copy of a claim, enriched with the fields
// the UI derives from it. Views are rebuilt from events, never mutated by
// consumers.
type View struct {
	Claim        claim.Claim
	Style        canvas.Style
	Image        string
	Infringement *claim.Claim
}

// EntryStatus is the local status of the user's own in-flight submission.
// It mirrors registry events but may lag them.
type EntryStatus int

const (
	EntryPending EntryStatus = iota
	EntryRetracted
	EntryChallenged
	EntryAccepted
)

// NewClaimEntry tracks a claim the local user submitted, so the UI can show
// a countdown immediately without waiting for confirmation.
type NewClaimEntry struct {
	Claim           claim.Claim
	Style           canvas.Style
	AcceptEnabledAt time.Time
	Status          EntryStatus
}

// Mirror is an explicit, constructible state container (no module-level
// singleton). It owns only its derived projection; all mutation re-derives
// from a new event.
type Mirror struct {
	source          Source
	account         string
	challengePeriod time.Duration
	renderer        Renderer
	onInfringement  func(View)
	logger          *slog.Logger

	mu      sync.RWMutex
	claims  map[canvas.Token]*View
	seen    map[claim.EventID]struct{}
	entries []NewClaimEntry
	changes chan struct{}
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithRenderer installs an external bitmap renderer.
func WithRenderer(r Renderer) Option {
	return func(m *Mirror) { m.renderer = r }
}

// WithInfringementWarning installs the callback raised when a newly
// submitted claim infringes an existing one.
func WithInfringementWarning(fn func(View)) Option {
	return func(m *Mirror) { m.onInfringement = fn }
}

// New creates a mirror for the given local account. challengePeriod is the
// registry's configured waiting window, used to compute accept-enabled
// times for the user's own submissions.
func New(source Source, account string, challengePeriod time.Duration, logger *slog.Logger, opts ...Option) *Mirror {
	m := &Mirror{
		source:          source,
		account:         account,
		challengePeriod: challengePeriod,
		logger:          logger,
		claims:          make(map[canvas.Token]*View),
		seen:            make(map[claim.EventID]struct{}),
		changes:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run subscribes to live events, performs a full backfill, then applies
// live events until ctx is done. Subscribing before the backfill means the
// two windows overlap rather than gap; the per-event dedup absorbs the
// overlap. Re-running Run after a failure is the recovery path for any
// missed events.
func (m *Mirror) Run(ctx context.Context) error {
	live, cancel, err := m.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	if err := m.Backfill(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-live:
			if !ok {
				return errors.New("mirror: event subscription closed")
			}
			m.Apply(ctx, ev)
		}
	}
}

// Backfill reads the entire historical log in order and applies it.
func (m *Mirror) Backfill(ctx context.Context) error {
	events, err := m.source.Events(ctx, 0)
	if err != nil {
		return fmt.Errorf("backfilling events: %w", err)
	}
	for _, ev := range events {
		m.Apply(ctx, ev)
	}
	m.logger.Info("mirror backfill complete", "events", len(events), "claims", len(m.claims))
	return nil
}

// Apply folds one event into the projection. Duplicate events (by block and
// log index) are silently absorbed.
func (m *Mirror) Apply(ctx context.Context, ev claim.Event) {
	m.mu.Lock()
	if _, dup := m.seen[ev.ID]; dup {
		m.mu.Unlock()
		return
	}
	m.seen[ev.ID] = struct{}{}
	m.mu.Unlock()

	switch ev.Type {
	case claim.EventClaimSubmitted:
		m.applySubmitted(ctx, ev)
	case claim.EventClaimAccepted:
		m.applyAccepted(ev)
	case claim.EventClaimRetracted:
		m.applyRemoved(ev, EntryRetracted)
	case claim.EventClaimChallenged:
		m.applyRemoved(ev, EntryChallenged)
	default:
		m.logger.Warn("mirror: unknown event type", "type", string(ev.Type))
	}
	m.notify()
}

func (m *Mirror) applySubmitted(ctx context.Context, ev claim.Event) {
	c, style, err := m.source.Claim(ctx, ev.TokenID)
	if err != nil || c.Status == claim.StatusInactive {
		// The claim may already be gone again; a later retraction or
		// challenge event settles the projection.
		if err != nil {
			m.logger.Warn("mirror: claim lookup failed", "token", ev.TokenID.String(), "error", err)
		}
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	view := &View{Claim: *c, Style: style}
	if m.renderer != nil {
		view.Image = m.renderer(c.TokenID, style)
	}
	view.Infringement = claim.FindInfringement(
		claim.Candidate{TokenID: c.TokenID, EditBuffer: c.EditBuffer},
		m.snapshotLocked(),
	)
	m.claims[ev.TokenID] = view

	if view.Infringement != nil && m.onInfringement != nil {
		m.onInfringement(*view)
	}
	if c.Owner == m.account && c.Status == claim.StatusPending {
		m.entries = append(m.entries, NewClaimEntry{
			Claim:           *c,
			Style:           style,
			AcceptEnabledAt: c.StartDate.Add(m.challengePeriod),
			Status:          EntryPending,
		})
	}
}

func (m *Mirror) applyAccepted(ev claim.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if view, ok := m.claims[ev.TokenID]; ok {
		view.Claim.Status = claim.StatusActive
	}
	m.updateEntryLocked(ev.TokenID, EntryAccepted)
}

func (m *Mirror) applyRemoved(ev claim.Event, status EntryStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, ev.TokenID)
	m.updateEntryLocked(ev.TokenID, status)
}

func (m *Mirror) updateEntryLocked(token canvas.Token, status EntryStatus) {
	for i := range m.entries {
		if m.entries[i].Claim.TokenID == token && m.entries[i].Status == EntryPending {
			m.entries[i].Status = status
		}
	}
}

// Get returns the view for a token, if present.
func (m *Mirror) Get(token canvas.Token) (View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	view, ok := m.claims[token]
	if !ok {
		return View{}, false
	}
	return *view, true
}

// Snapshot returns all mirrored claims in reverse chronological order
// (descending insertion index).
func (m *Mirror) Snapshot() []View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	views := make([]View, 0, len(m.claims))
	for _, view := range m.claims {
		views = append(views, *view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Claim.Index > views[j].Claim.Index })
	return views
}

// UserClaims returns the local account's mirrored claims, newest first.
func (m *Mirror) UserClaims() []View {
	all := m.Snapshot()
	mine := all[:0]
	for _, view := range all {
		if view.Claim.Owner == m.account {
			mine = append(mine, view)
		}
	}
	return mine
}

// Entries returns the local user's tracked submissions.
func (m *Mirror) Entries() []NewClaimEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]NewClaimEntry(nil), m.entries...)
}

// PruneSettledEntries drops entries that are no longer pending, as the UI
// does when leaving the creation view.
func (m *Mirror) PruneSettledEntries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, entry := range m.entries {
		if entry.Status == EntryPending {
			kept = append(kept, entry)
		}
	}
	m.entries = kept
	m.notifyLocked()
}

// Changes returns a coalesced change-notification channel: one pending
// signal at most, consumers re-read snapshots on receipt.
func (m *Mirror) Changes() <-chan struct{} {
	return m.changes
}

// snapshotLocked returns claims ordered by descending index; callers hold mu.
func (m *Mirror) snapshotLocked() []claim.Claim {
	claims := make([]claim.Claim, 0, len(m.claims))
	for _, view := range m.claims {
		claims = append(claims, view.Claim)
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].Index > claims[j].Index })
	return claims
}

func (m *Mirror) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifyLocked()
}

func (m *Mirror) notifyLocked() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}
