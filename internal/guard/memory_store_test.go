package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSingleAcquire(t *testing.T) {
	store := NewMemoryStore(10*time.Minute, time.Hour)
	ctx := context.Background()

	first, err := store.Claim(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, Acquired, first)

	second, err := store.Claim(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, AlreadyClaimed, second)
}

func TestMemoryStoreConcurrentClaims(t *testing.T) {
	store := NewMemoryStore(10*time.Minute, time.Hour)
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	results := make([]ClaimResult, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, _ := store.Claim(ctx, "fp-shared")
			results[i] = result
		}(i)
	}
	wg.Wait()

	acquired := 0
	for _, result := range results {
		if result == Acquired {
			acquired++
		}
	}
	assert.Equal(t, 1, acquired, "exactly one concurrent claim may win")
}

func TestMemoryStoreCompletedClaim(t *testing.T) {
	store := NewMemoryStore(10*time.Minute, time.Hour)
	ctx := context.Background()

	_, err := store.Claim(ctx, "fp-done")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "fp-done"))

	result, err := store.Claim(ctx, "fp-done")
	require.NoError(t, err)
	assert.Equal(t, AlreadyCompleted, result)
}

func TestMemoryStoreAbandonedClaimReclaimed(t *testing.T) {
	store := NewMemoryStore(10*time.Minute, time.Hour)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }
	_, err := store.Claim(ctx, "fp-crashed")
	require.NoError(t, err)

	// Processing crashed; TTL elapses without Complete.
	store.now = func() time.Time { return now.Add(11 * time.Minute) }
	result, err := store.Claim(ctx, "fp-crashed")
	require.NoError(t, err)
	assert.Equal(t, Acquired, result)
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore(10*time.Minute, time.Hour)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }
	_, _ = store.Claim(ctx, "fp-old")
	require.NoError(t, store.Complete(ctx, "fp-completed"))
	require.Equal(t, 2, store.Len())

	store.now = func() time.Time { return now.Add(30 * time.Minute) }
	removed := store.Sweep()
	assert.Equal(t, 1, removed, "only the abandoned claim is past its TTL")
	assert.Equal(t, 1, store.Len())

	store.now = func() time.Time { return now.Add(2 * time.Hour) }
	removed = store.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, store.Len())
}
