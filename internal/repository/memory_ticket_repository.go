package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/mailroom/internal/domain"
)

// MemoryTicketRepository is an in-memory TicketRepository used when no
// database is configured, and by tests.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
}

// NewMemoryTicketRepository constructs an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]*domain.Ticket)}
}

// Create stores a new ticket.
func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.TicketNumber]; exists {
		return ErrDuplicateTicketNumber
	}
	now := time.Now()
	ticket.ID = uuid.New().String()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.TicketNumber] = cloneTicket(ticket)
	return nil
}

// GetByTicketNumber fetches a ticket copy.
func (r *MemoryTicketRepository) GetByTicketNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[number]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(ticket), nil
}

// FindBySenderEmail returns tickets for a sender, newest first.
func (r *MemoryTicketRepository) FindBySenderEmail(_ context.Context, sender string) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.SenderEmail == sender {
			result = append(result, *cloneTicket(ticket))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// ReplaceConversation swaps the conversation for a ticket.
func (r *MemoryTicketRepository) ReplaceConversation(_ context.Context, number string, entries []domain.ConversationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[number]
	if !ok {
		return ErrNotFound
	}
	ticket.Conversation = append([]domain.ConversationEntry(nil), entries...)
	ticket.UpdatedAt = time.Now()
	return nil
}

// UpdateStatus sets the ticket status.
func (r *MemoryTicketRepository) UpdateStatus(_ context.Context, number string, status domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[number]
	if !ok {
		return ErrNotFound
	}
	ticket.Status = status
	ticket.UpdatedAt = time.Now()
	return nil
}

// MarkAcknowledged records a successful acknowledgement send.
func (r *MemoryTicketRepository) MarkAcknowledged(_ context.Context, number string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[number]
	if !ok {
		return ErrNotFound
	}
	ticket.AckSent = true
	ticket.AckSentAt = &at
	ticket.AckFailure = ""
	ticket.UpdatedAt = time.Now()
	return nil
}

// MarkAcknowledgementFailed records a permanent acknowledgement failure.
func (r *MemoryTicketRepository) MarkAcknowledgementFailed(_ context.Context, number string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[number]
	if !ok {
		return ErrNotFound
	}
	ticket.AckFailure = reason
	ticket.UpdatedAt = time.Now()
	return nil
}

// Count reports the number of stored tickets.
func (r *MemoryTicketRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets)
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	clone.Conversation = append([]domain.ConversationEntry(nil), t.Conversation...)
	if t.AckSentAt != nil {
		at := *t.AckSentAt
		clone.AckSentAt = &at
	}
	return &clone
}
