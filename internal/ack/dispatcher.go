// Package ack delivers the one-time acknowledgement email for a ticket with
// bounded retries.
package ack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Mailer is the outbound transport used for acknowledgements.
type Mailer interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// PermanentError marks a provider rejection that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent delivery failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether the failure is a provider rejection.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// Content is the rendered acknowledgement payload.
type Content struct {
	Subject  string
	TextBody string
	HTMLBody string
}

// Outcome reports the final delivery result.
type Outcome struct {
	Sent     bool
	Attempts int
	Reason   string
}

// Dispatcher sends acknowledgements with increasing backoff on transient
// failures. Callers gate invocation on the ticket's acknowledgement flag:
// this type never decides whether an acknowledgement is due, only how hard
// to try delivering it.
type Dispatcher struct {
	mailer      Mailer
	logger      *zap.Logger
	maxAttempts int
	backoffStep time.Duration
	sleep       func(context.Context, time.Duration) error
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(mailer Mailer, logger *zap.Logger, maxAttempts int, backoffStep time.Duration) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Dispatcher{
		mailer:      mailer,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffStep: backoffStep,
		sleep:       sleepContext,
	}
}

// Send attempts delivery up to maxAttempts times. Transient transport errors
// back off and retry; permanent provider rejections stop immediately.
func (d *Dispatcher) Send(ctx context.Context, ticketNumber, recipient string, content Content) Outcome {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		err := d.mailer.Send(ctx, recipient, content.Subject, content.TextBody, content.HTMLBody)
		if err == nil {
			d.logger.Info("acknowledgement sent",
				zap.String("ticket_number", ticketNumber),
				zap.String("recipient", recipient),
				zap.Int("attempt", attempt))
			return Outcome{Sent: true, Attempts: attempt}
		}
		lastErr = err

		if IsPermanent(err) {
			d.logger.Error("acknowledgement rejected by provider",
				zap.String("ticket_number", ticketNumber),
				zap.Error(err))
			return Outcome{Attempts: attempt, Reason: err.Error()}
		}

		d.logger.Warn("acknowledgement send failed, will retry",
			zap.String("ticket_number", ticketNumber),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < d.maxAttempts {
			if err := d.sleep(ctx, time.Duration(attempt)*d.backoffStep); err != nil {
				return Outcome{Attempts: attempt, Reason: "cancelled: " + lastErr.Error()}
			}
		}
	}

	d.logger.Error("acknowledgement retries exhausted",
		zap.String("ticket_number", ticketNumber),
		zap.Error(lastErr))
	return Outcome{Attempts: d.maxAttempts, Reason: lastErr.Error()}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
