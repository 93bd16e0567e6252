// Package sequence allocates date-scoped, strictly increasing ticket numbers.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/repository"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

// DayKeyFormat is the calendar-day scope for counters.
const DayKeyFormat = "20060102"

// Sequencer allocates ticket numbers of the form PREFIX-YYYYMMDD-NNNN.
type Sequencer struct {
	prefix     string
	counters   repository.SequenceRepository
	tickets    repository.TicketRepository
	logger     *zap.Logger
	onFallback func()
	nowNano    func() int64
}

// Option customizes a Sequencer.
type Option func(*Sequencer)

// WithFallbackHook registers a callback fired when the degraded numbering
// scheme is used.
func WithFallbackHook(fn func()) Option {
	return func(s *Sequencer) {
		if fn != nil {
			s.onFallback = fn
		}
	}
}

// NewSequencer constructs the sequencer.
func NewSequencer(prefix string, counters repository.SequenceRepository, tickets repository.TicketRepository, logger *zap.Logger, opts ...Option) *Sequencer {
	s := &Sequencer{
		prefix:     prefix,
		counters:   counters,
		tickets:    tickets,
		logger:     logger,
		onFallback: func() {},
		nowNano:    func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allocate returns a unique ticket number for the given date. The counter
// increment and read-back are one atomic operation; a post-format uniqueness
// check guards against a corrupted counter. When the counter store is
// unreachable the error is surfaced as retryable rather than guessing a
// number that could collide.
func (s *Sequencer) Allocate(ctx context.Context, date time.Time) (string, error) {
	dayKey := date.UTC().Format(DayKeyFormat)

	for attempt := 0; attempt < 2; attempt++ {
		n, err := s.counters.NextNumber(ctx, dayKey)
		if err != nil {
			return "", apperrors.NewTransient("sequence counter unavailable", err)
		}
		number := fmt.Sprintf("%s-%s-%04d", s.prefix, dayKey, n)

		taken, err := s.isTaken(ctx, number)
		if err != nil {
			return "", apperrors.NewTransient("ticket store unavailable during uniqueness check", err)
		}
		if !taken {
			return number, nil
		}
		s.logger.Warn("allocated ticket number already exists, retrying",
			zap.String("ticket_number", number))
	}

	// Two collisions in a row means the counter no longer reflects issued
	// numbers. Fall back to a clock component that cannot repeat within the
	// day, and flag the degradation operationally.
	fallback := fmt.Sprintf("%s-%s-%d", s.prefix, dayKey, s.nowNano()%1_000_000_000)
	s.logger.Warn("sequence counter degraded, issuing clock-based ticket number",
		zap.String("ticket_number", fallback))
	s.onFallback()
	return fallback, nil
}

func (s *Sequencer) isTaken(ctx context.Context, number string) (bool, error) {
	_, err := s.tickets.GetByTicketNumber(ctx, number)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, err
}
