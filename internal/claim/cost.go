package claim

// Cost computes the payment required for a claim:
//
//	(durationFactor + editBufferFactor * 2^editBuffer) * duration
//
// Pure; used to validate payment at submission, to price duration
// extensions and to size the challenge reward (the challenged claim's
// original cost). The registry configuration bounds editBuffer and the
// factors so the arithmetic cannot overflow uint64.
func Cost(duration uint16, editBuffer uint8, durationFactor, editBufferFactor uint64) uint64 {
	return (durationFactor + editBufferFactor<<editBuffer) * uint64(duration)
}
