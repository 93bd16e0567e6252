package domain

import "time"

// InboundEmail is the normalized form of one delivered email, produced by the
// webhook intake layer before routing.
type InboundEmail struct {
	Sender     string
	SenderName string
	Subject    string
	BodyText   string
	Recipients []string
	MessageID  string
	Date       time.Time
}
