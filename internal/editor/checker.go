package editor

import (
	"sync"

	"github.com/easelhq/easel/internal/claim"
)

// Checker re-runs the infringement scan as the user edits. Checks are cheap
// to run redundantly; when results race, the one from the newest request
// wins and stale results are discarded. No cancellation is needed beyond
// the generation counter.
type Checker struct {
	onResult func(*claim.Claim)

	mu        sync.Mutex
	gen       uint64
	delivered uint64
	latest    *claim.Claim
}

// NewChecker creates a checker. onResult, if non-nil, receives each winning
// result (nil when no claim is in range). It runs with the checker's lock
// held and must not call back into the checker.
func NewChecker(onResult func(*claim.Claim)) *Checker {
	return &Checker{onResult: onResult, delivered: 0}
}

// Check scans the snapshot for the candidate asynchronously. The snapshot
// is the caller's copy; the checker never retains it.
func (c *Checker) Check(candidate claim.Candidate, snapshot []claim.Claim) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go func() {
		result := claim.FindInfringement(candidate, snapshot)

		c.mu.Lock()
		if gen < c.delivered {
			c.mu.Unlock()
			return
		}
		c.delivered = gen
		c.latest = result
		// Delivered under the lock so callbacks arrive in the same order
		// results are recorded; a stale result can never land after a
		// newer one.
		if c.onResult != nil {
			c.onResult(result)
		}
		c.mu.Unlock()
	}()
}

// Latest returns the most recent winning result, nil when the newest check
// found nothing in range.
func (c *Checker) Latest() *claim.Claim {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}
