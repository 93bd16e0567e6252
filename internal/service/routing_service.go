package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/ack"
	"github.com/spec-kit/mailroom/internal/conversation"
	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/events"
	"github.com/spec-kit/mailroom/internal/guard"
	"github.com/spec-kit/mailroom/internal/mailer"
	"github.com/spec-kit/mailroom/internal/observability"
	"github.com/spec-kit/mailroom/internal/repository"
	"github.com/spec-kit/mailroom/internal/resolver"
	"github.com/spec-kit/mailroom/internal/sequence"
)

// AckStatus summarizes how acknowledgement dispatch ended for one call.
type AckStatus string

const (
	AckStatusSent    AckStatus = "sent"
	AckStatusFailed  AckStatus = "failed"
	AckStatusSkipped AckStatus = "skipped"
)

// ProcessResult is returned to the webhook layer for every inbound email.
type ProcessResult struct {
	TicketNumber string
	Created      bool
	Duplicate    bool
	Ack          AckStatus
}

// RoutingService composes the routing pipeline: claim, resolve, allocate or
// load, merge, persist, acknowledge.
type RoutingService struct {
	guard     guard.Store
	resolver  *resolver.Resolver
	sequencer *sequence.Sequencer
	merger    *conversation.Merger
	acks      *ack.Dispatcher
	tickets   repository.TicketRepository
	events    events.Dispatcher
	metrics   *observability.Metrics
	logger    *zap.Logger
	locks     *ticketLocks
	now       func() time.Time
}

// RoutingDependencies bundles collaborators for the routing service.
type RoutingDependencies struct {
	Guard      guard.Store
	Resolver   *resolver.Resolver
	Sequencer  *sequence.Sequencer
	Merger     *conversation.Merger
	Dispatcher *ack.Dispatcher
	TicketRepo repository.TicketRepository
	Events     events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewRoutingService constructs the service.
func NewRoutingService(deps RoutingDependencies) *RoutingService {
	return &RoutingService{
		guard:     deps.Guard,
		resolver:  deps.Resolver,
		sequencer: deps.Sequencer,
		merger:    deps.Merger,
		acks:      deps.Dispatcher,
		tickets:   deps.TicketRepo,
		events:    deps.Events,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		locks:     newTicketLocks(),
		now:       time.Now,
	}
}

// ProcessInboundEmail is the single entry point for one delivered email. A
// duplicate delivery is a successful no-op; any failure past the claim still
// completes the claim so the fingerprint never wedges.
func (s *RoutingService) ProcessInboundEmail(ctx context.Context, email *domain.InboundEmail) (ProcessResult, error) {
	fingerprint := guard.Fingerprint(email)

	claim, err := s.guard.Claim(ctx, fingerprint)
	if err != nil {
		return ProcessResult{}, err
	}
	if claim != guard.Acquired {
		s.metrics.InboundDuplicate.Inc()
		s.publish(ctx, events.Event{
			Type: events.EventDuplicateSkipped,
			Payload: events.DuplicateSkippedPayload{
				Sender:      email.Sender,
				Fingerprint: fingerprint,
				ClaimState:  claim.String(),
			},
		})
		s.logger.Info("duplicate delivery skipped",
			zap.String("sender", email.Sender),
			zap.String("fingerprint", fingerprint),
			zap.String("claim", claim.String()))
		return ProcessResult{Duplicate: true, Ack: AckStatusSkipped}, nil
	}

	// Complete even on downstream failure; redelivery of a failed email is
	// governed by the claim TTL, not by leaving the claim wedged.
	defer func() {
		if err := s.guard.Complete(context.WithoutCancel(ctx), fingerprint); err != nil {
			s.logger.Warn("failed to complete claim; TTL will expire it",
				zap.String("fingerprint", fingerprint), zap.Error(err))
		}
	}()

	s.metrics.InboundReceived.Inc()
	s.publish(ctx, events.Event{
		Type: events.EventEmailReceived,
		Payload: events.EmailReceivedPayload{
			Sender:      email.Sender,
			Subject:     email.Subject,
			Fingerprint: fingerprint,
		},
	})

	result, err := s.route(ctx, email)
	if err != nil {
		s.metrics.InboundFailed.Inc()
		s.publish(ctx, events.Event{
			Type: events.EventProcessingFailed,
			Payload: events.ProcessingFailedPayload{
				Sender:      email.Sender,
				Fingerprint: fingerprint,
				Stage:       result.stage,
				Error:       err.Error(),
			},
		})
		return ProcessResult{}, err
	}

	return result.ProcessResult, nil
}

type routeResult struct {
	ProcessResult
	stage string
}

func (s *RoutingService) route(ctx context.Context, email *domain.InboundEmail) (routeResult, error) {
	decision := s.resolver.Resolve(ctx, email)

	if decision.Existing {
		_, err := s.tickets.GetByTicketNumber(ctx, decision.TicketNumber)
		if err == nil {
			return s.appendToTicket(ctx, decision.TicketNumber, email)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return routeResult{stage: "lookup"}, err
		}
		// A reference to a ticket that no longer resolves falls through to
		// creation rather than dropping the email.
		s.logger.Warn("referenced ticket not found, creating new",
			zap.String("ticket_number", decision.TicketNumber),
			zap.String("sender", email.Sender))
	}

	return s.createTicket(ctx, email, decision)
}

func (s *RoutingService) createTicket(ctx context.Context, email *domain.InboundEmail, decision resolver.Decision) (routeResult, error) {
	number, err := s.sequencer.Allocate(ctx, s.now())
	if err != nil {
		return routeResult{stage: "allocate"}, err
	}

	merged, stats := s.merger.Merge(nil, email)

	ticket := &domain.Ticket{
		TicketNumber: number,
		Status:       domain.TicketStatusOpen,
		SenderEmail:  email.Sender,
		SenderName:   email.SenderName,
		Subject:      email.Subject,
		Conversation: merged,
	}
	if decision.Enrichment != nil {
		ticket.Summary = decision.Enrichment.Summary
		ticket.Category = decision.Enrichment.Category
		ticket.Sentiment = decision.Enrichment.Sentiment
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return routeResult{stage: "create"}, err
	}

	s.metrics.TicketsCreated.Inc()
	s.metrics.EntriesMerged.Add(float64(stats.Added))
	s.publish(ctx, events.Event{
		Type:         events.EventTicketCreated,
		TicketNumber: number,
		Payload: events.TicketCreatedPayload{
			Sender:   email.Sender,
			Subject:  email.Subject,
			Category: ticket.Category,
		},
	})
	s.publishMerge(ctx, number, stats, len(merged))

	ackStatus := s.acknowledge(ctx, ticket)
	return routeResult{ProcessResult: ProcessResult{
		TicketNumber: number,
		Created:      true,
		Ack:          ackStatus,
	}}, nil
}

func (s *RoutingService) appendToTicket(ctx context.Context, number string, email *domain.InboundEmail) (routeResult, error) {
	unlock := s.locks.Lock(number)
	// Reload under the lock so the merge starts from the committed thread.
	current, err := s.tickets.GetByTicketNumber(ctx, number)
	if err != nil {
		unlock()
		return routeResult{stage: "reload"}, err
	}

	merged, stats := s.merger.Merge(current.Conversation, email)
	if stats.Added > 0 {
		if err := s.tickets.ReplaceConversation(ctx, number, merged); err != nil {
			unlock()
			return routeResult{stage: "merge"}, err
		}
	}
	reopened := false
	if current.Status == domain.TicketStatusClosed && stats.Added > 0 {
		if err := s.tickets.UpdateStatus(ctx, number, domain.TicketStatusOpen); err != nil {
			unlock()
			return routeResult{stage: "reopen"}, err
		}
		reopened = true
	}
	unlock()

	s.metrics.EntriesMerged.Add(float64(stats.Added))
	s.metrics.EntriesDeduped.Add(float64(stats.Deduped))
	s.publishMerge(ctx, number, stats, len(merged))
	if reopened {
		s.logger.Info("closed ticket reopened by follow-up", zap.String("ticket_number", number))
	}

	return routeResult{ProcessResult: ProcessResult{
		TicketNumber: number,
		Ack:          AckStatusSkipped,
	}}, nil
}

// acknowledge sends the one-time acknowledgement for a freshly created
// ticket. Delivery failure is recorded but never unwinds ticket creation.
func (s *RoutingService) acknowledge(ctx context.Context, ticket *domain.Ticket) AckStatus {
	if ticket.AckSent {
		return AckStatusSkipped
	}

	content, err := mailer.RenderAcknowledgement(mailer.AckTemplateData{
		TicketNumber: ticket.TicketNumber,
		SenderName:   ticket.SenderName,
		Subject:      ticket.Subject,
	})
	if err != nil {
		s.logger.Error("failed to render acknowledgement",
			zap.String("ticket_number", ticket.TicketNumber), zap.Error(err))
		return AckStatusFailed
	}

	outcome := s.acks.Send(ctx, ticket.TicketNumber, ticket.SenderEmail, content)
	if outcome.Sent {
		s.metrics.AcksSent.Inc()
		if err := s.tickets.MarkAcknowledged(ctx, ticket.TicketNumber, s.now()); err != nil {
			s.logger.Error("failed to persist acknowledgement marker",
				zap.String("ticket_number", ticket.TicketNumber), zap.Error(err))
		}
		s.publish(ctx, events.Event{
			Type:         events.EventAcknowledgementSent,
			TicketNumber: ticket.TicketNumber,
			Payload: events.AcknowledgementPayload{
				Recipient: ticket.SenderEmail,
				Attempts:  outcome.Attempts,
			},
		})
		return AckStatusSent
	}

	s.metrics.AcksFailed.Inc()
	if err := s.tickets.MarkAcknowledgementFailed(ctx, ticket.TicketNumber, outcome.Reason); err != nil {
		s.logger.Error("failed to persist acknowledgement failure",
			zap.String("ticket_number", ticket.TicketNumber), zap.Error(err))
	}
	s.publish(ctx, events.Event{
		Type:         events.EventAcknowledgementFail,
		TicketNumber: ticket.TicketNumber,
		Payload: events.AcknowledgementPayload{
			Recipient: ticket.SenderEmail,
			Attempts:  outcome.Attempts,
			Reason:    outcome.Reason,
		},
	})
	return AckStatusFailed
}

// GetTicket fetches a ticket with its conversation for the read endpoint.
func (s *RoutingService) GetTicket(ctx context.Context, number string) (*domain.Ticket, error) {
	return s.tickets.GetByTicketNumber(ctx, number)
}

func (s *RoutingService) publishMerge(ctx context.Context, number string, stats conversation.MergeStats, length int) {
	s.publish(ctx, events.Event{
		Type:         events.EventConversationMerged,
		TicketNumber: number,
		Payload: events.ConversationMergedPayload{
			Candidates: stats.Candidates,
			Added:      stats.Added,
			Deduped:    stats.Deduped,
			Length:     length,
		},
	})
}

func (s *RoutingService) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	event.ID = uuid.New().String()
	event.Timestamp = s.now()
	_ = s.events.Publish(ctx, event)
}
