package service

import "sync"

// ticketLocks serializes conversation merges per ticket number. Merges for
// different tickets proceed in parallel; merge-then-replace for the same
// ticket must not interleave.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*ticketLock
}

type ticketLock struct {
	mu   sync.Mutex
	refs int
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{locks: make(map[string]*ticketLock)}
}

// Lock acquires the mutex for the ticket number and returns its unlock func.
func (t *ticketLocks) Lock(number string) func() {
	t.mu.Lock()
	lock, ok := t.locks[number]
	if !ok {
		lock = &ticketLock{}
		t.locks[number] = lock
	}
	lock.refs++
	t.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		t.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(t.locks, number)
		}
		t.mu.Unlock()
	}
}
