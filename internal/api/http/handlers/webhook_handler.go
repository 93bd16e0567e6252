package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/ingest"
	"github.com/spec-kit/mailroom/internal/service"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

// WebhookHandler receives inbound email deliveries.
type WebhookHandler struct {
	routing *service.RoutingService
	logger  *zap.Logger
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(routing *service.RoutingService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{routing: routing, logger: logger}
}

// Inbound POST /webhook/inbound. Providers deliver either flattened form
// fields or the raw RFC 5322 message in an "email" field. Any syntactically
// valid email gets a success response; processing failures are logged and
// surfaced through metrics, never to the sending provider, which would only
// retry-storm.
func (h *WebhookHandler) Inbound(c *fiber.Ctx) error {
	email, err := h.normalize(c)
	if err != nil {
		if errors.Is(err, ingest.ErrNoSender) {
			return apperrors.NewValidationError("sender address required", nil)
		}
		return apperrors.NewValidationError("unparseable payload", map[string]any{"reason": err.Error()})
	}

	result, err := h.routing.ProcessInboundEmail(c.UserContext(), email)
	if err != nil {
		h.logger.Error("inbound processing failed",
			zap.String("sender", email.Sender),
			zap.String("subject", email.Subject),
			zap.Error(err))
		return c.JSON(fiber.Map{"status": "accepted"})
	}

	response := fiber.Map{
		"status":  "processed",
		"created": result.Created,
		"ack":     string(result.Ack),
	}
	if result.Duplicate {
		response["status"] = "duplicate"
	}
	if result.TicketNumber != "" {
		response["ticket_number"] = result.TicketNumber
	}
	return c.JSON(response)
}

func (h *WebhookHandler) normalize(c *fiber.Ctx) (*domain.InboundEmail, error) {
	if raw := c.FormValue("email"); strings.TrimSpace(raw) != "" {
		return ingest.FromRawMessage(strings.NewReader(raw))
	}
	return ingest.FromForm(ingest.FormFields{
		From:      firstFormValue(c, "from", "sender"),
		Subject:   c.FormValue("subject"),
		BodyPlain: firstFormValue(c, "text", "body-plain"),
		BodyHTML:  firstFormValue(c, "html", "body-html"),
		To:        firstFormValue(c, "to", "recipient"),
		MessageID: firstFormValue(c, "message-id", "Message-Id"),
		Date:      c.FormValue("date"),
	})
}

func firstFormValue(c *fiber.Ctx, keys ...string) string {
	for _, key := range keys {
		if val := c.FormValue(key); val != "" {
			return val
		}
	}
	return ""
}
