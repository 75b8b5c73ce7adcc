package claim

import "github.com/easelhq/easel/internal/canvas"

// Candidate is the pair of fields the infringement test needs from a claim
// being composed; it lets clients pre-check a draft before spending funds.
type Candidate struct {
	TokenID    canvas.Token
	EditBuffer uint8
}

// FindInfringement scans claims for the one closest to the candidate within
// tolerance. A claim infringes when its Hamming distance d from the
// candidate satisfies d <= max(candidate.EditBuffer, claim.EditBuffer).
// Among infringing claims the smallest distance wins; on equal distance the
// first claim encountered in the supplied order wins, so the result is
// deterministic per input ordering. Returns nil when nothing is in range.
func FindInfringement(candidate Candidate, claims []Claim) *Claim {
	smallest := canvas.Width + 1
	var infringed *Claim
	for i := range claims {
		other := &claims[i]
		d := canvas.HammingDistance(candidate.TokenID, other.TokenID)
		if d < smallest && d <= int(Tolerance(candidate.EditBuffer, other.EditBuffer)) {
			smallest = d
			infringed = other
		}
	}
	return infringed
}
