package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/events"
)

// EventLogService mirrors routing events into the structured log so the
// pipeline's decisions are traceable without a dashboard.
type EventLogService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewEventLogService creates the service.
func NewEventLogService(dispatcher events.Dispatcher, logger *zap.Logger) *EventLogService {
	return &EventLogService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (s *EventLogService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventEmailReceived, s.handle)
	s.dispatcher.Subscribe(events.EventDuplicateSkipped, s.handle)
	s.dispatcher.Subscribe(events.EventTicketCreated, s.handle)
	s.dispatcher.Subscribe(events.EventConversationMerged, s.handle)
	s.dispatcher.Subscribe(events.EventAcknowledgementSent, s.handle)
	s.dispatcher.Subscribe(events.EventAcknowledgementFail, s.handle)
	s.dispatcher.Subscribe(events.EventProcessingFailed, s.handle)
}

func (s *EventLogService) handle(_ context.Context, event events.Event) error {
	s.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_number", event.TicketNumber),
		zap.Any("payload", event.Payload))
	return nil
}
