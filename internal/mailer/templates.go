package mailer

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/spec-kit/mailroom/internal/ack"
)

// AckTemplateData feeds the acknowledgement templates.
type AckTemplateData struct {
	TicketNumber string
	SenderName   string
	Subject      string
}

const ackTextTemplate = `Hello {{if .SenderName}}{{.SenderName}}{{else}}there{{end}},

Thank you for contacting us. Your request has been received and assigned
ticket {{.TicketNumber}}.

Please keep [{{.TicketNumber}}] in the subject line of any replies so we can
route them to the right conversation.

We will get back to you as soon as possible.
`

const ackHTMLTemplate = `<html><body>
<p>Hello {{if .SenderName}}{{.SenderName}}{{else}}there{{end}},</p>
<p>Thank you for contacting us. Your request has been received and assigned
ticket <strong>{{.TicketNumber}}</strong>.</p>
<p>Please keep <strong>[{{.TicketNumber}}]</strong> in the subject line of any
replies so we can route them to the right conversation.</p>
<p>We will get back to you as soon as possible.</p>
</body></html>`

var (
	ackText = texttemplate.Must(texttemplate.New("ack_text").Parse(ackTextTemplate))
	ackHTML = htmltemplate.Must(htmltemplate.New("ack_html").Parse(ackHTMLTemplate))
)

// RenderAcknowledgement renders the acknowledgement content for a ticket. The
// subject carries the bracketed ticket reference so replies resolve
// deterministically.
func RenderAcknowledgement(data AckTemplateData) (ack.Content, error) {
	var text, html strings.Builder
	if err := ackText.Execute(&text, data); err != nil {
		return ack.Content{}, err
	}
	if err := ackHTML.Execute(&html, data); err != nil {
		return ack.Content{}, err
	}

	subject := "Re: " + data.Subject
	if strings.TrimSpace(data.Subject) == "" {
		subject = "Your support request"
	}
	subject = "[" + data.TicketNumber + "] " + subject

	return ack.Content{
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}
