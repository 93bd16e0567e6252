package guard

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/mailroom/internal/domain"
)

// MemoryStore is a single-process Store used when Redis is not configured,
// and by tests. Expired claimed entries are reclaimed lazily on Claim and
// swept periodically by the maintenance worker.
type MemoryStore struct {
	mu           sync.Mutex
	claims       map[string]domain.IdempotencyClaim
	claimTTL     time.Duration
	completedTTL time.Duration
	now          func() time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(claimTTL, completedTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		claims:       make(map[string]domain.IdempotencyClaim),
		claimTTL:     claimTTL,
		completedTTL: completedTTL,
		now:          time.Now,
	}
}

// Claim attempts to take ownership of the fingerprint.
func (s *MemoryStore) Claim(_ context.Context, fingerprint string) (ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	claim, exists := s.claims[fingerprint]
	if exists {
		switch claim.State {
		case domain.ClaimStateCompleted:
			if now.Sub(claim.ClaimedAt) < s.completedTTL {
				return AlreadyCompleted, nil
			}
		case domain.ClaimStateClaimed:
			if now.Sub(claim.ClaimedAt) < s.claimTTL {
				return AlreadyClaimed, nil
			}
			// Abandoned claim: the previous owner crashed. Take over.
		}
	}

	s.claims[fingerprint] = domain.IdempotencyClaim{
		Fingerprint: fingerprint,
		State:       domain.ClaimStateClaimed,
		ClaimedAt:   now,
	}
	return Acquired, nil
}

// Complete marks the fingerprint as fully processed.
func (s *MemoryStore) Complete(_ context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[fingerprint] = domain.IdempotencyClaim{
		Fingerprint: fingerprint,
		State:       domain.ClaimStateCompleted,
		ClaimedAt:   s.now(),
	}
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for fingerprint, claim := range s.claims {
		ttl := s.claimTTL
		if claim.State == domain.ClaimStateCompleted {
			ttl = s.completedTTL
		}
		if now.Sub(claim.ClaimedAt) >= ttl {
			delete(s.claims, fingerprint)
			removed++
		}
	}
	return removed
}

// Len reports the number of live claims.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}
