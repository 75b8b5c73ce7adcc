package editor_test

import (
	"sync"
	"testing"
	"time"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/claim"
	"github.com/easelhq/easel/internal/editor"
	"github.com/stretchr/testify/require"
)

func checkerToken(bits ...uint) canvas.Token {
	var t canvas.Token
	for _, bit := range bits {
		t.SetBit(bit)
	}
	return t
}

func TestCheckerFindsInfringement(t *testing.T) {
	existing := checkerToken(10, 20, 30)
	snapshot := []claim.Claim{{TokenID: existing, EditBuffer: 5, Status: claim.StatusActive}}

	results := make(chan *claim.Claim, 1)
	checker := editor.NewChecker(func(c *claim.Claim) { results <- c })

	checker.Check(claim.Candidate{TokenID: checkerToken(10, 20, 31), EditBuffer: 0}, snapshot)

	select {
	case result := <-results:
		require.NotNil(t, result)
		require.Equal(t, existing, result.TokenID)
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
	require.NotNil(t, checker.Latest())
}

func TestCheckerNilWhenClear(t *testing.T) {
	snapshot := []claim.Claim{{TokenID: checkerToken(10, 20, 30), EditBuffer: 1, Status: claim.StatusActive}}

	results := make(chan *claim.Claim, 1)
	checker := editor.NewChecker(func(c *claim.Claim) { results <- c })

	// Far outside tolerance.
	checker.Check(claim.Candidate{TokenID: checkerToken(100, 101, 102, 103), EditBuffer: 1}, snapshot)

	select {
	case result := <-results:
		require.Nil(t, result)
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
	require.Nil(t, checker.Latest())
}

func TestCheckerNewestWins(t *testing.T) {
	existing := checkerToken(10)
	snapshot := []claim.Claim{{TokenID: existing, EditBuffer: 5, Status: claim.StatusActive}}

	var mu sync.Mutex
	var delivered []*claim.Claim
	done := make(chan struct{}, 8)
	checker := editor.NewChecker(func(c *claim.Claim) {
		mu.Lock()
		delivered = append(delivered, c)
		mu.Unlock()
		done <- struct{}{}
	})

	// Burst of edits; each check supersedes the previous one.
	for i := 0; i < 5; i++ {
		checker.Check(claim.Candidate{TokenID: checkerToken(10, 20+uint(i)), EditBuffer: 0}, snapshot)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
	// Stale checks may legitimately be discarded without delivery; drain
	// whatever else arrives.
	draining := true
	for draining {
		select {
		case <-done:
		case <-time.After(50 * time.Millisecond):
			draining = false
		}
	}

	// Whatever raced through, the retained result is from a real check and
	// stale generations never overwrite it afterwards.
	latest := checker.Latest()
	require.NotNil(t, latest)
	require.Equal(t, existing, latest.TokenID)
}

func TestCheckerDeliveryOrderMatchesLatest(t *testing.T) {
	existing := checkerToken(10)
	snapshot := []claim.Claim{{TokenID: existing, EditBuffer: 5, Status: claim.StatusActive}}

	var mu sync.Mutex
	var delivered []*claim.Claim
	done := make(chan struct{}, 64)
	checker := editor.NewChecker(func(c *claim.Claim) {
		// Dawdle on warnings so a trailing all-clear has every chance to
		// overtake on the way out.
		if c != nil {
			time.Sleep(5 * time.Millisecond)
		}
		mu.Lock()
		delivered = append(delivered, c)
		mu.Unlock()
		done <- struct{}{}
	})

	infringing := claim.Candidate{TokenID: checkerToken(10, 20), EditBuffer: 0}
	allClear := claim.Candidate{TokenID: checkerToken(100, 101, 102, 103), EditBuffer: 0}
	for i := 0; i < 10; i++ {
		checker.Check(infringing, snapshot)
		checker.Check(allClear, snapshot)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
	draining := true
	for draining {
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			draining = false
		}
	}

	// The last check was all-clear, so the final callback must agree with
	// the retained result: no stale warning trailing in afterwards.
	mu.Lock()
	last := delivered[len(delivered)-1]
	mu.Unlock()
	require.Nil(t, last)
	require.Nil(t, checker.Latest())
}
