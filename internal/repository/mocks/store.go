// Package mocks provides an in-memory claim.Store for service tests.
package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/claim"
	"github.com/easelhq/easel/internal/repository"
)

// Store is an in-memory implementation of claim.Store. Index and block
// counters behave like the persistent store: one block per mutation, log
// indices in emission order, claim indices never reused.
type Store struct {
	mu        sync.Mutex
	claims    map[canvas.Token]claim.Claim
	styles    map[canvas.Token]canvas.Style
	events    []claim.Event
	ledger    []claim.LedgerEntry
	nextIndex uint64
	nextBlock uint64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		claims: make(map[canvas.Token]claim.Claim),
		styles: make(map[canvas.Token]canvas.Style),
	}
}

func (s *Store) Claim(_ context.Context, token canvas.Token) (*claim.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) Style(_ context.Context, token canvas.Token) (canvas.Style, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	style, ok := s.styles[token]
	if !ok {
		return canvas.Style{}, repository.ErrNotFound
	}
	return style, nil
}

func (s *Store) Claims(_ context.Context) ([]claim.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]claim.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *Store) CreateClaim(_ context.Context, c *claim.Claim, style canvas.Style, deposit *claim.LedgerEntry, evs []claim.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[c.TokenID]; ok {
		return repository.ErrConflict
	}
	c.Index = s.nextIndex
	s.nextIndex++
	s.claims[c.TokenID] = *c
	s.styles[c.TokenID] = style
	s.append(deposit, evs)
	return nil
}

func (s *Store) ReplaceClaim(_ context.Context, payout *claim.LedgerEntry, c *claim.Claim, style canvas.Style, deposit *claim.LedgerEntry, evs []claim.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[c.TokenID]; !ok {
		return repository.ErrNotFound
	}
	if payout != nil {
		s.ledger = append(s.ledger, *payout)
	}
	c.Index = s.nextIndex
	s.nextIndex++
	s.claims[c.TokenID] = *c
	s.styles[c.TokenID] = style
	s.append(deposit, evs)
	return nil
}

func (s *Store) ActivateClaim(_ context.Context, token canvas.Token, evs []claim.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[token]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = claim.StatusActive
	s.claims[token] = c
	s.append(nil, evs)
	return nil
}

func (s *Store) DeleteClaim(_ context.Context, token canvas.Token, payout *claim.LedgerEntry, evs []claim.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[token]; !ok {
		return repository.ErrNotFound
	}
	delete(s.claims, token)
	s.append(payout, evs)
	return nil
}

func (s *Store) SetDuration(_ context.Context, token canvas.Token, duration uint16, deposit uint64, payment *claim.LedgerEntry, evs []claim.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[token]
	if !ok {
		return repository.ErrNotFound
	}
	c.Duration = duration
	c.Deposit = deposit
	s.claims[token] = c
	s.append(payment, evs)
	return nil
}

func (s *Store) EventsFrom(_ context.Context, block uint64) ([]claim.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []claim.Event
	for _, ev := range s.events {
		if ev.ID.Block >= block {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Store) LedgerTotals(_ context.Context) (map[claim.LedgerKind]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[claim.LedgerKind]uint64)
	for _, entry := range s.ledger {
		totals[entry.Kind] += entry.Amount
	}
	return totals, nil
}

// Ledger returns every recorded ledger entry, for assertions.
func (s *Store) Ledger() []claim.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]claim.LedgerEntry(nil), s.ledger...)
}

func (s *Store) append(entry *claim.LedgerEntry, evs []claim.Event) {
	if entry != nil {
		s.ledger = append(s.ledger, *entry)
	}
	if len(evs) == 0 {
		return
	}
	block := s.nextBlock
	s.nextBlock++
	for i := range evs {
		evs[i].ID = claim.EventID{Block: block, LogIndex: uint64(i)}
		s.events = append(s.events, evs[i])
	}
}
