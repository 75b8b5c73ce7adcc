package transport

import (
	"errors"
	"strings"
	"testing"

	"github.com/easelhq/easel/internal/claim"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest(strings.NewReader(
		`{"jsonrpc":"2.0","method":"getParams","id":1}`))
	require.NoError(t, err)
	require.Equal(t, "getParams", req.Method)
	require.Equal(t, float64(1), req.ID)

	_, err = ParseRequest(strings.NewReader(`{"jsonrpc":"1.0","method":"x"}`))
	require.Error(t, err, "wrong version")

	_, err = ParseRequest(strings.NewReader(`{"jsonrpc":"2.0"}`))
	require.Error(t, err, "missing method")

	_, err = ParseRequest(strings.NewReader(`{not json`))
	require.Error(t, err)
}

func TestReasonRoundTrip(t *testing.T) {
	taxonomy := []error{
		claim.ErrInsufficientPayment,
		claim.ErrClaimAlreadyExists,
		claim.ErrNoPendingClaim,
		claim.ErrStillInChallengePeriod,
		claim.ErrNotOwner,
		claim.ErrNoActiveClaim,
		claim.ErrNoActiveInfringedClaim,
		claim.ErrInvalidOrdering,
		claim.ErrTooManyDiffEntries,
		claim.ErrDoesNotProveInfringement,
		claim.ErrDurationOverflow,
		claim.ErrEditBufferTooLarge,
	}
	for _, sentinel := range taxonomy {
		reason := Reason(sentinel)
		require.NotEmpty(t, reason, "no wire identifier for %v", sentinel)
		require.Equal(t, sentinel, ReasonError(reason))
	}
}

func TestReasonWrappedError(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), claim.ErrNotOwner)
	require.Equal(t, "not_owner", Reason(wrapped))
}

func TestReasonUnknown(t *testing.T) {
	require.Empty(t, Reason(errors.New("disk full")))
	require.Nil(t, ReasonError("no_such_reason"))
}
