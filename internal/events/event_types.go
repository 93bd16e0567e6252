package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEmailReceived       EventType = "email_received"
	EventDuplicateSkipped    EventType = "duplicate_skipped"
	EventTicketCreated       EventType = "ticket_created"
	EventConversationMerged  EventType = "conversation_merged"
	EventAcknowledgementSent EventType = "acknowledgement_sent"
	EventAcknowledgementFail EventType = "acknowledgement_failed"
	EventProcessingFailed    EventType = "processing_failed"
)

// Event represents a domain event emitted by the routing pipeline.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TicketNumber string      `json:"ticket_number,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// EmailReceivedPayload payload.
type EmailReceivedPayload struct {
	Sender      string `json:"sender"`
	Subject     string `json:"subject"`
	Fingerprint string `json:"fingerprint"`
}

// DuplicateSkippedPayload payload.
type DuplicateSkippedPayload struct {
	Sender      string `json:"sender"`
	Fingerprint string `json:"fingerprint"`
	ClaimState  string `json:"claim_state"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Sender   string `json:"sender"`
	Subject  string `json:"subject"`
	Category string `json:"category,omitempty"`
}

// ConversationMergedPayload payload.
type ConversationMergedPayload struct {
	Candidates int `json:"candidates"`
	Added      int `json:"added"`
	Deduped    int `json:"deduped"`
	Length     int `json:"length"`
}

// AcknowledgementPayload payload.
type AcknowledgementPayload struct {
	Recipient string `json:"recipient"`
	Attempts  int    `json:"attempts"`
	Reason    string `json:"reason,omitempty"`
}

// ProcessingFailedPayload payload.
type ProcessingFailedPayload struct {
	Sender      string `json:"sender"`
	Fingerprint string `json:"fingerprint"`
	Stage       string `json:"stage"`
	Error       string `json:"error"`
}
