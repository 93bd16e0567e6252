package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/repository"
	"github.com/spec-kit/mailroom/internal/service"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

// TicketsHandler exposes read access to tickets.
type TicketsHandler struct {
	routing *service.RoutingService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(routing *service.RoutingService) *TicketsHandler {
	return &TicketsHandler{routing: routing}
}

// GetTicket GET /tickets/:number.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	number := c.Params("number")
	ticket, err := h.routing.GetTicket(c.UserContext(), number)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_number": number})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": ticketView(ticket)})
}

type conversationEntryView struct {
	MessageID      string `json:"message_id"`
	SenderEmail    string `json:"sender_email"`
	SenderName     string `json:"sender_name,omitempty"`
	Timestamp      string `json:"timestamp"`
	BodyText       string `json:"body_text"`
	ThreadPosition int    `json:"thread_position"`
}

type ticketResponse struct {
	TicketNumber string                  `json:"ticket_number"`
	Status       string                  `json:"status"`
	SenderEmail  string                  `json:"sender_email"`
	SenderName   string                  `json:"sender_name,omitempty"`
	Subject      string                  `json:"subject"`
	Summary      string                  `json:"summary,omitempty"`
	Category     string                  `json:"category,omitempty"`
	Sentiment    string                  `json:"sentiment,omitempty"`
	AckSent      bool                    `json:"acknowledgement_sent"`
	AckSentAt    *string                 `json:"acknowledgement_sent_at,omitempty"`
	AckFailure   string                  `json:"acknowledgement_failure,omitempty"`
	CreatedAt    string                  `json:"created_at"`
	Conversation []conversationEntryView `json:"conversation"`
}

func ticketView(ticket *domain.Ticket) ticketResponse {
	view := ticketResponse{
		TicketNumber: ticket.TicketNumber,
		Status:       string(ticket.Status),
		SenderEmail:  ticket.SenderEmail,
		SenderName:   ticket.SenderName,
		Subject:      ticket.Subject,
		Summary:      ticket.Summary,
		Category:     ticket.Category,
		Sentiment:    ticket.Sentiment,
		AckSent:      ticket.AckSent,
		AckFailure:   ticket.AckFailure,
		CreatedAt:    ticket.CreatedAt.UTC().Format(time.RFC3339),
		Conversation: make([]conversationEntryView, 0, len(ticket.Conversation)),
	}
	if ticket.AckSentAt != nil {
		at := ticket.AckSentAt.UTC().Format(time.RFC3339)
		view.AckSentAt = &at
	}
	for _, entry := range ticket.Conversation {
		view.Conversation = append(view.Conversation, conversationEntryView{
			MessageID:      entry.MessageID,
			SenderEmail:    entry.SenderEmail,
			SenderName:     entry.SenderName,
			Timestamp:      entry.Timestamp.UTC().Format(time.RFC3339),
			BodyText:       entry.BodyText,
			ThreadPosition: entry.ThreadPosition,
		})
	}
	return view
}
