package guard

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/mailroom/internal/domain"
)

const keyPrefix = "mailroom:claim:"

// RedisStore backs the guard with Redis so claims are visible across
// instances. Claim TTL doubles as crash recovery: an instance that dies
// mid-processing leaves a claim that simply expires.
type RedisStore struct {
	client       *redis.Client
	claimTTL     time.Duration
	completedTTL time.Duration
}

// NewRedisStore constructs a store on an existing client.
func NewRedisStore(client *redis.Client, claimTTL, completedTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:       client,
		claimTTL:     claimTTL,
		completedTTL: completedTTL,
	}
}

// Claim atomically claims the fingerprint via SET NX EX.
func (s *RedisStore) Claim(ctx context.Context, fingerprint string) (ClaimResult, error) {
	key := keyPrefix + fingerprint
	ok, err := s.client.SetNX(ctx, key, string(domain.ClaimStateClaimed), s.claimTTL).Result()
	if err != nil {
		return AlreadyClaimed, err
	}
	if ok {
		return Acquired, nil
	}

	state, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SetNX and Get; let the retried delivery claim it.
			return AlreadyClaimed, nil
		}
		return AlreadyClaimed, err
	}
	if state == string(domain.ClaimStateCompleted) {
		return AlreadyCompleted, nil
	}
	return AlreadyClaimed, nil
}

// Complete transitions the claim to completed with a longer retention window.
func (s *RedisStore) Complete(ctx context.Context, fingerprint string) error {
	key := keyPrefix + fingerprint
	return s.client.Set(ctx, key, string(domain.ClaimStateCompleted), s.completedTTL).Err()
}
