// Package guard converts at-least-once webhook delivery into effectively-once
// processing by atomically claiming a fingerprint per logical inbound email.
package guard

import "context"

// ClaimResult reports the outcome of a claim attempt.
type ClaimResult int

const (
	// Acquired means the caller owns processing for this fingerprint.
	Acquired ClaimResult = iota
	// AlreadyClaimed means another in-flight delivery holds the claim.
	AlreadyClaimed
	// AlreadyCompleted means this fingerprint was fully processed before.
	AlreadyCompleted
)

func (r ClaimResult) String() string {
	switch r {
	case Acquired:
		return "acquired"
	case AlreadyClaimed:
		return "already_claimed"
	case AlreadyCompleted:
		return "already_completed"
	}
	return "unknown"
}

// Store is the shared claim store. Claim must be atomic: of any number of
// concurrent calls for the same fingerprint, exactly one observes Acquired.
// Claims abandoned for longer than the configured TTL become claimable again.
type Store interface {
	Claim(ctx context.Context, fingerprint string) (ClaimResult, error)
	Complete(ctx context.Context, fingerprint string) error
}
