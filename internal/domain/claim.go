package domain

import "time"

// ClaimState enumerates idempotency claim states.
type ClaimState string

const (
	ClaimStateClaimed   ClaimState = "CLAIMED"
	ClaimStateCompleted ClaimState = "COMPLETED"
)

// IdempotencyClaim gates processing of one logical inbound email. A claim in
// CLAIMED state older than the guard TTL is considered abandoned.
type IdempotencyClaim struct {
	Fingerprint string
	State       ClaimState
	ClaimedAt   time.Time
}
