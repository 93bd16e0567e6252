// Package mailer implements the outbound email transport.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/spec-kit/mailroom/internal/ack"
	"github.com/spec-kit/mailroom/internal/config"
)

// SMTPMailer sends mail over SMTP, optionally with TLS.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	useTLS   bool
}

// NewSMTPMailer builds a mailer from config.
func NewSMTPMailer(cfg config.MailerConfig) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		useTLS:   cfg.UseTLS,
	}
}

// Send delivers one message. Connection failures come back as plain errors
// so the dispatcher retries them; server-side rejections after a session is
// established are wrapped as permanent.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	client, err := m.dial(addr)
	if err != nil {
		return fmt.Errorf("connect smtp %s: %w", addr, err)
	}
	defer client.Close()

	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			return &ack.PermanentError{Err: fmt.Errorf("smtp auth: %w", err)}
		}
	}

	if err := client.Mail(m.from); err != nil {
		return &ack.PermanentError{Err: fmt.Errorf("smtp mail from: %w", err)}
	}
	if err := client.Rcpt(to); err != nil {
		return &ack.PermanentError{Err: fmt.Errorf("smtp rcpt %s: %w", to, err)}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMessage(m.from, to, subject, textBody, htmlBody)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return &ack.PermanentError{Err: fmt.Errorf("smtp close data: %w", err)}
	}
	return client.Quit()
}

func (m *SMTPMailer) dial(addr string) (*smtp.Client, error) {
	if m.useTLS {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host})
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, m.host)
	}
	return smtp.Dial(addr)
}

const multipartBoundary = "mailroom-alt-boundary"

func buildMessage(from, to, subject, textBody, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")

	if htmlBody == "" {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(textBody)
		return []byte(b.String())
	}

	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", multipartBoundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", multipartBoundary, textBody)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", multipartBoundary, htmlBody)
	fmt.Fprintf(&b, "--%s--\r\n", multipartBoundary)
	return []byte(b.String())
}

var _ ack.Mailer = (*SMTPMailer)(nil)
