package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusPendingApproval TicketStatus = "PENDING_APPROVAL"
	TicketStatusClosed          TicketStatus = "CLOSED"
)

// Ticket is the aggregate for one inbound inquiry and its full reply history.
type Ticket struct {
	ID           string
	TicketNumber string
	Status       TicketStatus
	SenderEmail  string
	SenderName   string
	Subject      string
	Summary      string
	Category     string
	Sentiment    string
	Conversation []ConversationEntry
	AckSent      bool
	AckSentAt    *time.Time
	AckFailure   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LatestEntry returns the newest conversation entry, or nil when empty.
func (t *Ticket) LatestEntry() *ConversationEntry {
	if len(t.Conversation) == 0 {
		return nil
	}
	return &t.Conversation[len(t.Conversation)-1]
}
