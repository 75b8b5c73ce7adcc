package claim

import "github.com/easelhq/easel/internal/canvas"

// VerifyChallenge proves or rejects that challenged infringes upon
// infringedUpon, using diffIndices as a compact proof of exactly which bit
// positions the two tokens differ at. Checks run in order, each failing
// with its own sentinel:
//
//  1. infringedUpon must be Active.
//  2. infringedUpon must strictly predate challenged and be a different
//     token (this also rejects self-challenge).
//  3. The proof may not list more positions than either claim's edit
//     buffer allows.
//  4. A bit vector with exactly the listed positions set must equal
//     challenged XOR infringedUpon — same indices, no more, no fewer, no
//     duplicates. Exact equality is required: a proof off by a single bit
//     is rejected, never accepted as "at least these bits differ".
//
// Pure; the registry applies the state change and payout on success.
func VerifyChallenge(challenged, infringedUpon *Claim, diffIndices []byte) error {
	if infringedUpon.Status != StatusActive {
		return ErrNoActiveInfringedClaim
	}
	if !infringedUpon.StartDate.Before(challenged.StartDate) || infringedUpon.TokenID == challenged.TokenID {
		return ErrInvalidOrdering
	}
	if len(diffIndices) > int(Tolerance(challenged.EditBuffer, infringedUpon.EditBuffer)) {
		return ErrTooManyDiffEntries
	}

	// Byte indices are structurally in [0, 256); only duplicates can
	// corrupt the reconstruction, and they are rejected before the bit is
	// trusted as part of the mask.
	var mask canvas.Token
	for _, idx := range diffIndices {
		if mask.Bit(uint(idx)) {
			return ErrDoesNotProveInfringement
		}
		mask.SetBit(uint(idx))
	}
	if mask != challenged.TokenID.Xor(infringedUpon.TokenID) {
		return ErrDoesNotProveInfringement
	}
	return nil
}
