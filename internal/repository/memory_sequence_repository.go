package repository

import (
	"context"
	"sync"
)

// MemorySequenceRepository is an in-memory SequenceRepository used when no
// database is configured, and by tests.
type MemorySequenceRepository struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewMemorySequenceRepository constructs an empty counter store.
func NewMemorySequenceRepository() *MemorySequenceRepository {
	return &MemorySequenceRepository{counters: make(map[string]int)}
}

// NextNumber atomically increments and returns the counter for dayKey.
func (r *MemorySequenceRepository) NextNumber(_ context.Context, dayKey string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[dayKey]++
	return r.counters[dayKey], nil
}
