package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/ack"
	"github.com/spec-kit/mailroom/internal/classifier"
	"github.com/spec-kit/mailroom/internal/conversation"
	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/events"
	"github.com/spec-kit/mailroom/internal/guard"
	"github.com/spec-kit/mailroom/internal/observability"
	"github.com/spec-kit/mailroom/internal/repository"
	"github.com/spec-kit/mailroom/internal/resolver"
	"github.com/spec-kit/mailroom/internal/sequence"
)

var routingNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type countingMailer struct {
	mu    sync.Mutex
	sends int
	err   error
}

func (m *countingMailer) Send(context.Context, string, string, string, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sends++
	return nil
}

func (m *countingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, *domain.InboundEmail) (*classifier.Result, error) {
	return nil, errors.New("model unavailable")
}

type routingFixture struct {
	service *RoutingService
	tickets *repository.MemoryTicketRepository
	mailer  *countingMailer
}

func newRoutingFixture(t *testing.T) *routingFixture {
	t.Helper()
	return newRoutingFixtureWithMailer(t, &countingMailer{})
}

func newRoutingFixtureWithMailer(t *testing.T, m *countingMailer) *routingFixture {
	t.Helper()
	logger := zap.NewNop()
	tickets := repository.NewMemoryTicketRepository()
	counters := repository.NewMemorySequenceRepository()

	dispatcher := ack.NewDispatcher(m, logger, 2, time.Millisecond)

	svc := NewRoutingService(RoutingDependencies{
		Guard:      guard.NewMemoryStore(10*time.Minute, time.Hour),
		Resolver:   resolver.NewResolver("HR", failingClassifier{}, logger),
		Sequencer:  sequence.NewSequencer("HR", counters, tickets, logger),
		Merger:     conversation.NewMerger(conversation.NewHeuristicExtractor()),
		Dispatcher: dispatcher,
		TicketRepo: tickets,
		Events:     events.NewInMemoryDispatcher(),
		Metrics:    observability.NewMetrics(nil),
		Logger:     logger,
	})
	svc.now = func() time.Time { return routingNow }

	return &routingFixture{service: svc, tickets: tickets, mailer: m}
}

func newInquiry() *domain.InboundEmail {
	return &domain.InboundEmail{
		Sender:     "jane@example.com",
		SenderName: "Jane Doe",
		Subject:    "Question about leave policy",
		BodyText:   "How many vacation days do I have left?",
		MessageID:  "<inquiry-1@mail.example.com>",
		Date:       routingNow,
	}
}

func TestProcessNewInquiryCreatesTicket(t *testing.T) {
	f := newRoutingFixture(t)

	result, err := f.service.ProcessInboundEmail(context.Background(), newInquiry())
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, "HR-20250601-0001", result.TicketNumber)
	assert.Equal(t, AckStatusSent, result.Ack)

	ticket, err := f.tickets.GetByTicketNumber(context.Background(), "HR-20250601-0001")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.True(t, ticket.AckSent)
	require.Len(t, ticket.Conversation, 1)
	assert.Equal(t, 1, ticket.Conversation[0].ThreadPosition)
	assert.Equal(t, "jane@example.com", ticket.Conversation[0].SenderEmail)
}

func TestProcessFollowUpAppendsToTicket(t *testing.T) {
	f := newRoutingFixture(t)

	_, err := f.service.ProcessInboundEmail(context.Background(), newInquiry())
	require.NoError(t, err)

	followUp := &domain.InboundEmail{
		Sender:    "jane@example.com",
		Subject:   "Re: [HR-20250601-0001] Question about leave policy",
		BodyText:  "Following up, is there any update?",
		MessageID: "<inquiry-2@mail.example.com>",
		Date:      routingNow.Add(time.Hour),
	}
	result, err := f.service.ProcessInboundEmail(context.Background(), followUp)
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Equal(t, "HR-20250601-0001", result.TicketNumber)
	assert.Equal(t, AckStatusSkipped, result.Ack)

	ticket, err := f.tickets.GetByTicketNumber(context.Background(), "HR-20250601-0001")
	require.NoError(t, err)
	require.Len(t, ticket.Conversation, 2)
	assert.Equal(t, 2, ticket.Conversation[1].ThreadPosition)
	assert.Equal(t, "Following up, is there any update?", ticket.Conversation[1].BodyText)

	assert.Equal(t, 1, f.mailer.count(), "follow-ups never trigger a second acknowledgement")
	assert.Equal(t, 1, f.tickets.Count())
}

func TestProcessDuplicateDeliveryIsNoOp(t *testing.T) {
	f := newRoutingFixture(t)

	first, err := f.service.ProcessInboundEmail(context.Background(), newInquiry())
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := f.service.ProcessInboundEmail(context.Background(), newInquiry())
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.True(t, second.Duplicate)
	assert.Equal(t, 1, f.tickets.Count(), "duplicate webhook must not create a second ticket")
	assert.Equal(t, 1, f.mailer.count(), "duplicate webhook must not re-send the acknowledgement")
}

func TestProcessConcurrentDuplicatesCreateOneTicket(t *testing.T) {
	f := newRoutingFixture(t)

	const deliveries = 16
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.service.ProcessInboundEmail(context.Background(), newInquiry())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.tickets.Count())
	assert.Equal(t, 1, f.mailer.count())
}

func TestProcessAckFailureDoesNotBlockCreation(t *testing.T) {
	f := newRoutingFixtureWithMailer(t, &countingMailer{err: errors.New("connection refused")})

	result, err := f.service.ProcessInboundEmail(context.Background(), newInquiry())
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, AckStatusFailed, result.Ack)

	ticket, err := f.tickets.GetByTicketNumber(context.Background(), result.TicketNumber)
	require.NoError(t, err)
	assert.False(t, ticket.AckSent)
	assert.Contains(t, ticket.AckFailure, "connection refused")
}

func TestProcessFollowUpReopensClosedTicket(t *testing.T) {
	f := newRoutingFixture(t)

	first, err := f.service.ProcessInboundEmail(context.Background(), newInquiry())
	require.NoError(t, err)
	require.NoError(t, f.tickets.UpdateStatus(context.Background(), first.TicketNumber, domain.TicketStatusClosed))

	followUp := &domain.InboundEmail{
		Sender:    "jane@example.com",
		Subject:   "Re: [HR-20250601-0001] Question about leave policy",
		BodyText:  "This is happening again.",
		MessageID: "<inquiry-3@mail.example.com>",
		Date:      routingNow.Add(48 * time.Hour),
	}
	_, err = f.service.ProcessInboundEmail(context.Background(), followUp)
	require.NoError(t, err)

	ticket, err := f.tickets.GetByTicketNumber(context.Background(), first.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
}

func TestProcessStaleReferenceFallsBackToNewTicket(t *testing.T) {
	f := newRoutingFixture(t)

	email := &domain.InboundEmail{
		Sender:    "jane@example.com",
		Subject:   "Re: [HR-20240101-0099] old thread",
		BodyText:  "Reviving an ancient conversation.",
		MessageID: "<inquiry-4@mail.example.com>",
		Date:      routingNow,
	}
	result, err := f.service.ProcessInboundEmail(context.Background(), email)
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, "HR-20250601-0001", result.TicketNumber)
}

func TestProcessClassifierOutageStillCreatesTicket(t *testing.T) {
	// The fixture classifier always errors; an email with no ticket pattern
	// must still route to a new ticket.
	f := newRoutingFixture(t)

	result, err := f.service.ProcessInboundEmail(context.Background(), &domain.InboundEmail{
		Sender:    "bob@example.com",
		Subject:   "Payroll question",
		BodyText:  "My last payslip looks wrong.",
		MessageID: "<inquiry-5@mail.example.com>",
		Date:      routingNow,
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
}
