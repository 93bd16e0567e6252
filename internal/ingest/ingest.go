// Package ingest normalizes webhook payloads into domain.InboundEmail.
package ingest

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/spec-kit/mailroom/internal/domain"
)

// ErrNoSender is returned when no sender address can be determined.
var ErrNoSender = errors.New("inbound payload has no sender address")

// FormFields carries the flattened multipart/form fields of an inbound
// webhook delivery.
type FormFields struct {
	From      string
	Subject   string
	BodyPlain string
	BodyHTML  string
	To        string
	MessageID string
	Date      string
}

// FromForm builds a normalized email from webhook form fields.
func FromForm(fields FormFields) (*domain.InboundEmail, error) {
	sender, senderName := parseAddress(fields.From)
	if sender == "" {
		return nil, ErrNoSender
	}

	body := fields.BodyPlain
	if strings.TrimSpace(body) == "" {
		body = fields.BodyHTML
	}

	email := &domain.InboundEmail{
		Sender:     sender,
		SenderName: senderName,
		Subject:    strings.TrimSpace(fields.Subject),
		BodyText:   body,
		MessageID:  strings.TrimSpace(fields.MessageID),
		Date:       parseDate(fields.Date),
	}
	for _, rcpt := range strings.Split(fields.To, ",") {
		if addr, _ := parseAddress(rcpt); addr != "" {
			email.Recipients = append(email.Recipients, addr)
		}
	}
	return email, nil
}

func parseAddress(raw string) (address, name string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if parsed, err := mail.ParseAddress(raw); err == nil {
		return strings.ToLower(parsed.Address), parsed.Name
	}
	if strings.Contains(raw, "@") {
		return strings.ToLower(strings.Trim(raw, "<> ")), ""
	}
	return "", ""
}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(raw); err == nil {
		return t
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
