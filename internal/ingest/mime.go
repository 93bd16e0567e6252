package ingest

import (
	"io"
	"strings"

	gomail "github.com/emersion/go-message/mail"

	"github.com/spec-kit/mailroom/internal/domain"
)

// FromRawMessage builds a normalized email from a full RFC 5322 message, for
// providers that forward the original mail verbatim instead of flattened
// form fields.
func FromRawMessage(raw io.Reader) (*domain.InboundEmail, error) {
	reader, err := gomail.CreateReader(raw)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	header := reader.Header
	email := &domain.InboundEmail{}

	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		email.Sender = strings.ToLower(from[0].Address)
		email.SenderName = from[0].Name
	}
	if email.Sender == "" {
		return nil, ErrNoSender
	}
	if to, err := header.AddressList("To"); err == nil {
		for _, addr := range to {
			email.Recipients = append(email.Recipients, strings.ToLower(addr.Address))
		}
	}
	if subject, err := header.Subject(); err == nil {
		email.Subject = strings.TrimSpace(subject)
	}
	if id, err := header.MessageID(); err == nil {
		email.MessageID = id
	}
	if date, err := header.Date(); err == nil {
		email.Date = date
	}

	var plain, html string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		inline, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch contentType {
		case "text/plain":
			if plain == "" {
				plain = string(body)
			}
		case "text/html":
			if html == "" {
				html = string(body)
			}
		}
	}

	email.BodyText = plain
	if strings.TrimSpace(email.BodyText) == "" {
		email.BodyText = html
	}
	return email, nil
}
