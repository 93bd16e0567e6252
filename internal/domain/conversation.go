package domain

import "time"

// ConversationEntry captures one discrete message within a ticket thread.
// Entries are never mutated after creation except for ThreadPosition, which
// is recomputed whenever the conversation is merged.
type ConversationEntry struct {
	MessageID      string
	ContentHash    string
	SenderEmail    string
	SenderName     string
	Timestamp      time.Time
	BodyText       string
	ThreadPosition int
}
