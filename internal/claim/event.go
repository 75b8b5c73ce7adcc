package claim

import (
	"time"

	"github.com/easelhq/easel/internal/canvas"
)

// EventType identifies a registry transition in the append-only log.
type EventType string

const (
	EventClaimSubmitted  EventType = "claim.submitted"
	EventClaimAccepted   EventType = "claim.accepted"
	EventClaimRetracted  EventType = "claim.retracted"
	EventClaimChallenged EventType = "claim.challenged"
)

// EventID identifies an event by its position in the log. Mirrors dedup on
// this pair because backfill and live subscription windows can overlap.
type EventID struct {
	Block    uint64 `json:"block"`
	LogIndex uint64 `json:"log_index"`
}

// Event is one entry of the registry's ordered, append-only log. Account
// carries the submitter for ClaimSubmitted and the payee for
// ClaimChallenged; it is empty otherwise. The store assigns ID at append
// time: one block per transition, log indices in emission order.
type Event struct {
	ID      EventID      `json:"id"`
	Type    EventType    `json:"type"`
	TokenID canvas.Token `json:"token_id"`
	Account string       `json:"account,omitempty"`
	Time    time.Time    `json:"time"`
}
