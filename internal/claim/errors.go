package claim

import "errors"

var (
	// ErrInsufficientPayment indicates the payment does not cover the claim cost.
	ErrInsufficientPayment = errors.New("insufficient payment for claim")
	// ErrClaimAlreadyExists indicates a pending or active claim already holds the token.
	ErrClaimAlreadyExists = errors.New("claim on this token already exists")
	// ErrNoPendingClaim indicates no pending claim exists on the token.
	ErrNoPendingClaim = errors.New("no pending claim on the supplied token")
	// ErrStillInChallengePeriod indicates the claim cannot be accepted yet.
	ErrStillInChallengePeriod = errors.New("claim still within the challenge period")
	// ErrNotOwner indicates the caller does not own the claim.
	ErrNotOwner = errors.New("not the owner of this claim")
	// ErrNoActiveClaim indicates no claim exists on the token.
	ErrNoActiveClaim = errors.New("no active claim on the supplied token")
	// ErrNoActiveInfringedClaim indicates the infringed token has no active claim.
	ErrNoActiveInfringedClaim = errors.New("no active claim on the infringed token")
	// ErrInvalidOrdering indicates the infringed claim does not strictly
	// predate the challenged claim, or the tokens are identical.
	ErrInvalidOrdering = errors.New("claim upon the infringed token was not made before the claim upon the challenged token")
	// ErrTooManyDiffEntries indicates the proof lists more differing bits
	// than either claim's edit buffer allows.
	ErrTooManyDiffEntries = errors.New("invalid challenge: too many diff index entries")
	// ErrDoesNotProveInfringement indicates the supplied diff indices do not
	// exactly reproduce the difference between the two tokens.
	ErrDoesNotProveInfringement = errors.New("invalid challenge: provided diff indices do not prove infringement")
	// ErrDurationOverflow indicates an extension would overflow the stored duration field.
	ErrDurationOverflow = errors.New("extension overflows maximum claim duration")
	// ErrEditBufferTooLarge indicates the declared edit buffer exceeds the registry bound.
	ErrEditBufferTooLarge = errors.New("edit buffer exceeds registry maximum")
)
