package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFormParsesDisplayNameAddress(t *testing.T) {
	email, err := FromForm(FormFields{
		From:      "Jane Doe <Jane@Example.com>",
		Subject:   "  Leave policy question  ",
		BodyPlain: "How many vacation days do I have?",
		To:        "support@acme.test, HR Desk <hr@acme.test>",
		MessageID: "<abc@mail.example.com>",
		Date:      "Mon, 02 Jun 2025 10:30:00 +0000",
	})
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", email.Sender)
	assert.Equal(t, "Jane Doe", email.SenderName)
	assert.Equal(t, "Leave policy question", email.Subject)
	assert.Equal(t, []string{"support@acme.test", "hr@acme.test"}, email.Recipients)
	assert.Equal(t, "<abc@mail.example.com>", email.MessageID)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC), email.Date.UTC())
}

func TestFromFormBareAddress(t *testing.T) {
	email, err := FromForm(FormFields{
		From:      "bob@example.com",
		BodyPlain: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", email.Sender)
	assert.Empty(t, email.SenderName)
	assert.True(t, email.Date.IsZero())
}

func TestFromFormMissingSender(t *testing.T) {
	_, err := FromForm(FormFields{Subject: "no sender", BodyPlain: "body"})
	assert.ErrorIs(t, err, ErrNoSender)

	_, err = FromForm(FormFields{From: "not an address", BodyPlain: "body"})
	assert.ErrorIs(t, err, ErrNoSender)
}

func TestFromFormFallsBackToHTMLBody(t *testing.T) {
	email, err := FromForm(FormFields{
		From:     "jane@example.com",
		BodyHTML: "<p>only html here</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>only html here</p>", email.BodyText)
}

func TestFromFormAcceptsRFC3339Date(t *testing.T) {
	email, err := FromForm(FormFields{
		From:      "jane@example.com",
		BodyPlain: "hi",
		Date:      "2025-06-02T10:30:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC), email.Date)
}

const rawMessage = "From: Jane Doe <jane@example.com>\r\n" +
	"To: support@acme.test\r\n" +
	"Subject: Broken badge reader\r\n" +
	"Message-Id: <raw-1@mail.example.com>\r\n" +
	"Date: Mon, 02 Jun 2025 10:30:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"The badge reader on floor 3 is not responding.\r\n"

func TestFromRawMessageParsesHeadersAndBody(t *testing.T) {
	email, err := FromRawMessage(strings.NewReader(rawMessage))
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", email.Sender)
	assert.Equal(t, "Jane Doe", email.SenderName)
	assert.Equal(t, "Broken badge reader", email.Subject)
	assert.Equal(t, []string{"support@acme.test"}, email.Recipients)
	assert.Equal(t, "raw-1@mail.example.com", email.MessageID)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC), email.Date.UTC())
	assert.Contains(t, email.BodyText, "badge reader on floor 3")
}

func TestFromRawMessageWithoutSender(t *testing.T) {
	raw := "Subject: anonymous\r\n\r\nbody\r\n"
	_, err := FromRawMessage(strings.NewReader(raw))
	assert.ErrorIs(t, err, ErrNoSender)
}
