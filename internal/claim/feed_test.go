package claim_test

import (
	"testing"

	"github.com/easelhq/easel/internal/claim"
	"github.com/stretchr/testify/require"
)

func TestFeedFanOut(t *testing.T) {
	feed := claim.NewFeed()
	a, cancelA := feed.Subscribe(4)
	b, cancelB := feed.Subscribe(4)
	defer cancelA()
	defer cancelB()

	ev := claim.Event{Type: claim.EventClaimSubmitted, Account: "alice"}
	feed.Publish(ev)

	require.Equal(t, ev, <-a)
	require.Equal(t, ev, <-b)
}

func TestFeedDropsWhenFull(t *testing.T) {
	feed := claim.NewFeed()
	ch, cancel := feed.Subscribe(1)
	defer cancel()

	feed.Publish(
		claim.Event{Type: claim.EventClaimSubmitted},
		claim.Event{Type: claim.EventClaimAccepted},
	)

	// The buffer held one event; the second was dropped, not blocked on.
	require.Equal(t, claim.EventClaimSubmitted, (<-ch).Type)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q", ev.Type)
	default:
	}
}

func TestFeedCancelClosesChannel(t *testing.T) {
	feed := claim.NewFeed()
	ch, cancel := feed.Subscribe(1)

	cancel()
	cancel() // idempotent

	_, open := <-ch
	require.False(t, open)

	// Publishing after cancellation is a no-op.
	feed.Publish(claim.Event{Type: claim.EventClaimSubmitted})
}
