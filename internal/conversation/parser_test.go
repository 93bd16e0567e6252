package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mailroom/internal/domain"
)

func TestExtractSimpleReply(t *testing.T) {
	e := NewHeuristicExtractor()
	date := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	candidates := e.Extract(&domain.InboundEmail{
		Sender:     "jane@example.com",
		SenderName: "Jane Doe",
		BodyText:   "Thanks, that answers my question.",
		Date:       date,
	})

	require.Len(t, candidates, 1)
	assert.Equal(t, "jane@example.com", candidates[0].SenderEmail)
	assert.Equal(t, "Jane Doe", candidates[0].SenderName)
	assert.Equal(t, date, candidates[0].Timestamp)
	assert.Equal(t, "Thanks, that answers my question.", candidates[0].Body)
}

func TestExtractEmptyBody(t *testing.T) {
	e := NewHeuristicExtractor()
	assert.Empty(t, e.Extract(&domain.InboundEmail{Sender: "jane@example.com", BodyText: "  \n\t"}))
}

func TestExtractQuotedGmailThread(t *testing.T) {
	e := NewHeuristicExtractor()
	body := "Any update on this?\n" +
		"\n" +
		"On Mon, 2 Jun 2025 15:04, <support@example.com> wrote:\n" +
		"> We are looking into your request.\n" +
		"> You will hear from us shortly.\n"

	candidates := e.Extract(&domain.InboundEmail{Sender: "jane@example.com", BodyText: body})

	require.Len(t, candidates, 2)
	assert.Equal(t, "jane@example.com", candidates[0].SenderEmail)
	assert.Equal(t, "Any update on this?", candidates[0].Body)
	assert.Equal(t, "support@example.com", candidates[1].SenderEmail)
	assert.Equal(t, "We are looking into your request.\nYou will hear from us shortly.", candidates[1].Body)
}

func TestExtractOutlookOriginalMessage(t *testing.T) {
	e := NewHeuristicExtractor()
	body := "Please see my follow-up below.\n" +
		"\n" +
		"-----Original Message-----\n" +
		"From: \"Support Team\" <support@example.com>\n" +
		"Sent: Mon, 2 Jun 2025 10:30:00 +0000\n" +
		"\n" +
		"Your ticket has been received.\n"

	candidates := e.Extract(&domain.InboundEmail{Sender: "jane@example.com", BodyText: body})

	require.Len(t, candidates, 2)
	assert.Equal(t, "support@example.com", candidates[1].SenderEmail)
	assert.Equal(t, "Support Team", candidates[1].SenderName)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC), candidates[1].Timestamp.UTC())
	assert.Equal(t, "Your ticket has been received.", candidates[1].Body)
}

func TestExtractStripsHTML(t *testing.T) {
	e := NewHeuristicExtractor()
	candidates := e.Extract(&domain.InboundEmail{
		Sender:   "jane@example.com",
		BodyText: "<html><body><p>Hello <b>team</b>,</p><p>my badge stopped working.</p></body></html>",
	})

	require.Len(t, candidates, 1)
	assert.NotContains(t, candidates[0].Body, "<")
	assert.Contains(t, candidates[0].Body, "my badge stopped working")
}

func TestExtractAttributesUnlabeledQuoteToSender(t *testing.T) {
	e := NewHeuristicExtractor()
	body := "Top reply.\n" +
		"\n" +
		"On Mon, 2 Jun 2025 at 10:30 wrote:\n" +
		"> quoted text without an address\n"

	candidates := e.Extract(&domain.InboundEmail{Sender: "jane@example.com", BodyText: body})

	require.Len(t, candidates, 2)
	assert.Equal(t, "jane@example.com", candidates[1].SenderEmail,
		"quoted block without an address falls back to the delivering sender")
}
