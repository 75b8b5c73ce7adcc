package claim_test

import (
	"testing"
	"time"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/claim"
	"github.com/stretchr/testify/require"
)

func challengePair(t *testing.T, earlierBuffer, laterBuffer uint8, flipped ...uint) (challenged, infringed *claim.Claim) {
	t.Helper()
	base := baseToken(t)
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	infringed = &claim.Claim{
		TokenID:    base,
		Owner:      "alice",
		StartDate:  start,
		EditBuffer: earlierBuffer,
		Status:     claim.StatusActive,
		Index:      2,
	}
	challenged = &claim.Claim{
		TokenID:    flipBits(base, flipped...),
		Owner:      "bob",
		StartDate:  start.Add(time.Minute),
		EditBuffer: laterBuffer,
		Status:     claim.StatusPending,
		Index:      3,
	}
	return challenged, infringed
}

func TestVerifyChallengeSuccess(t *testing.T) {
	challenged, infringed := challengePair(t, 5, 5, 3, 40, 99, 200, 201)
	proof := canvas.DiffIndices(challenged.TokenID, infringed.TokenID)
	require.Len(t, proof, 5)
	require.NoError(t, claim.VerifyChallenge(challenged, infringed, proof))
}

func TestVerifyChallengeAsymmetricTolerance(t *testing.T) {
	// Only the infringed claim's buffer covers the distance.
	challenged, infringed := challengePair(t, 5, 1, 3, 40, 99, 200, 201)
	proof := canvas.DiffIndices(challenged.TokenID, infringed.TokenID)
	require.NoError(t, claim.VerifyChallenge(challenged, infringed, proof))

	// Only the challenged claim's buffer covers the distance.
	challenged, infringed = challengePair(t, 1, 5, 3, 40, 99, 200, 201)
	proof = canvas.DiffIndices(challenged.TokenID, infringed.TokenID)
	require.NoError(t, claim.VerifyChallenge(challenged, infringed, proof))
}

func TestVerifyChallengeInfringedNotActive(t *testing.T) {
	challenged, infringed := challengePair(t, 5, 5, 3)
	infringed.Status = claim.StatusPending
	err := claim.VerifyChallenge(challenged, infringed, canvas.DiffIndices(challenged.TokenID, infringed.TokenID))
	require.ErrorIs(t, err, claim.ErrNoActiveInfringedClaim)
}

func TestVerifyChallengeOrdering(t *testing.T) {
	challenged, infringed := challengePair(t, 5, 5, 3)
	proof := canvas.DiffIndices(challenged.TokenID, infringed.TokenID)

	// Infringed claim submitted after the challenged one.
	infringed.StartDate = challenged.StartDate.Add(time.Second)
	require.ErrorIs(t, claim.VerifyChallenge(challenged, infringed, proof), claim.ErrInvalidOrdering)

	// Equal timestamps are not strictly earlier.
	infringed.StartDate = challenged.StartDate
	require.ErrorIs(t, claim.VerifyChallenge(challenged, infringed, proof), claim.ErrInvalidOrdering)
}

func TestVerifyChallengeSelfChallenge(t *testing.T) {
	_, infringed := challengePair(t, 5, 5, 3)
	later := *infringed
	later.StartDate = infringed.StartDate.Add(time.Hour)
	err := claim.VerifyChallenge(&later, infringed, nil)
	require.ErrorIs(t, err, claim.ErrInvalidOrdering)
}

func TestVerifyChallengeTooManyEntries(t *testing.T) {
	challenged, infringed := challengePair(t, 1, 2, 3, 40, 99)
	err := claim.VerifyChallenge(challenged, infringed, []byte{3, 40, 99})
	require.ErrorIs(t, err, claim.ErrTooManyDiffEntries)
}

func TestVerifyChallengeInexactProofs(t *testing.T) {
	challenged, infringed := challengePair(t, 10, 10, 3, 40, 99, 200, 201)
	proof := canvas.DiffIndices(challenged.TokenID, infringed.TokenID)

	// Omitting one truly differing position.
	require.ErrorIs(t,
		claim.VerifyChallenge(challenged, infringed, proof[:len(proof)-1]),
		claim.ErrDoesNotProveInfringement)

	// Adding an extra, non-differing position.
	require.ErrorIs(t,
		claim.VerifyChallenge(challenged, infringed, append(append([]byte(nil), proof...), 7)),
		claim.ErrDoesNotProveInfringement)

	// Nudging each index by one must break the proof.
	for i := range proof {
		for _, delta := range []int{-1, 1} {
			mutated := append([]byte(nil), proof...)
			mutated[i] = byte(int(mutated[i]) + delta)
			require.ErrorIs(t,
				claim.VerifyChallenge(challenged, infringed, mutated),
				claim.ErrDoesNotProveInfringement,
				"index %d delta %d", i, delta)
		}
	}
}

func TestVerifyChallengeDuplicateIndices(t *testing.T) {
	challenged, infringed := challengePair(t, 10, 10, 3, 40)
	err := claim.VerifyChallenge(challenged, infringed, []byte{3, 3, 40})
	require.ErrorIs(t, err, claim.ErrDoesNotProveInfringement)
}
