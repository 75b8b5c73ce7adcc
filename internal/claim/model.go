// Package claim implements the claim registry core: the data model, the
// cost model, the infringement test, the challenge verification protocol
// and the lifecycle state machine.
package claim

import (
	"time"

	"github.com/easelhq/easel/internal/canvas"
)

// Status is the lifecycle state of a claim per token. An Inactive token has
// no stored record; the value exists for reads of absent tokens.
type Status int

const (
	StatusInactive Status = iota
	StatusPending
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	}
	return "unknown"
}

// MaxDuration is the largest storable duration, in time units. Extensions
// past it are rejected, never wrapped.
const MaxDuration = 1<<16 - 1

// Claim is the unit of ownership over a canvas token.
type Claim struct {
	TokenID    canvas.Token `json:"token_id"`
	Owner      string       `json:"owner"`
	StartDate  time.Time    `json:"start_date"`
	Duration   uint16       `json:"duration"`
	EditBuffer uint8        `json:"edit_buffer"`
	Index      uint64       `json:"index"`
	Status     Status       `json:"status"`
	Deposit    uint64       `json:"deposit"`
}

// ExpiresAt returns the instant the claim's active period ends, given the
// configured duration-to-real-time multiplier.
func (c *Claim) ExpiresAt(timeUnit time.Duration) time.Time {
	return c.StartDate.Add(time.Duration(c.Duration) * timeUnit)
}

// Expired reports whether the claim's duration has fully elapsed at now.
func (c *Claim) Expired(now time.Time, timeUnit time.Duration) bool {
	return !now.Before(c.ExpiresAt(timeUnit))
}

// Tolerance returns the effective similarity tolerance between two claims:
// either party's declared edit buffer is enough to consider them the same
// work.
func Tolerance(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}
