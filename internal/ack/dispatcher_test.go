package ack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeMailer struct {
	errs  []error
	calls int
}

func (f *fakeMailer) Send(context.Context, string, string, string, string) error {
	f.calls++
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

func newTestDispatcher(mailer Mailer) (*Dispatcher, *[]time.Duration) {
	d := NewDispatcher(mailer, zap.NewNop(), 3, 2*time.Second)
	var waits []time.Duration
	d.sleep = func(_ context.Context, wait time.Duration) error {
		waits = append(waits, wait)
		return nil
	}
	return d, &waits
}

func TestSendFirstAttemptSucceeds(t *testing.T) {
	mailer := &fakeMailer{}
	d, waits := newTestDispatcher(mailer)

	outcome := d.Send(context.Background(), "HR-20250601-0001", "jane@example.com", Content{Subject: "hi"})

	assert.True(t, outcome.Sent)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Empty(t, *waits)
}

func TestSendRetriesTransientWithIncreasingBackoff(t *testing.T) {
	mailer := &fakeMailer{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	d, waits := newTestDispatcher(mailer)

	outcome := d.Send(context.Background(), "HR-20250601-0001", "jane@example.com", Content{Subject: "hi"})

	assert.True(t, outcome.Sent)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *waits)
}

func TestSendPermanentFailureDoesNotRetry(t *testing.T) {
	mailer := &fakeMailer{errs: []error{&PermanentError{Err: errors.New("mailbox does not exist")}}}
	d, waits := newTestDispatcher(mailer)

	outcome := d.Send(context.Background(), "HR-20250601-0001", "jane@example.com", Content{Subject: "hi"})

	assert.False(t, outcome.Sent)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, 1, mailer.calls, "provider rejections are final for this payload")
	assert.Contains(t, outcome.Reason, "mailbox does not exist")
	assert.Empty(t, *waits)
}

func TestSendExhaustsRetries(t *testing.T) {
	mailer := &fakeMailer{errs: []error{
		errors.New("timeout"), errors.New("timeout"), errors.New("timeout"),
	}}
	d, _ := newTestDispatcher(mailer)

	outcome := d.Send(context.Background(), "HR-20250601-0001", "jane@example.com", Content{Subject: "hi"})

	assert.False(t, outcome.Sent)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Contains(t, outcome.Reason, "timeout")
}

func TestSendStopsOnCancelledContext(t *testing.T) {
	mailer := &fakeMailer{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	d := NewDispatcher(mailer, zap.NewNop(), 3, 2*time.Second)
	d.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	outcome := d.Send(context.Background(), "HR-20250601-0001", "jane@example.com", Content{Subject: "hi"})

	assert.False(t, outcome.Sent)
	assert.Equal(t, 1, outcome.Attempts)
}
