package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes prometheus counters for the routing pipeline.
type Metrics struct {
	InboundReceived  prometheus.Counter
	InboundDuplicate prometheus.Counter
	InboundFailed    prometheus.Counter
	TicketsCreated   prometheus.Counter
	EntriesMerged    prometheus.Counter
	EntriesDeduped   prometheus.Counter
	AcksSent         prometheus.Counter
	AcksFailed       prometheus.Counter
	SequenceFallback prometheus.Counter

	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// NewMetrics builds and registers all collectors on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InboundReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailroom_inbound_emails_total",
			Help: "Inbound emails accepted by the webhook.",
		}),
		InboundDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailroom_inbound_duplicates_total",
			Help: "Inbound emails short-circuited by the fingerprint guard.",
		}),
		InboundFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailroom_inbound_failures_total",
			Help: "Inbound emails that failed after claiming.",
		}),
		TicketsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailroom_tickets_created_total",
			Help: "Tickets allocated for new inquiries.",
		}),
		EntriesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailroom_conversation_entries_merged_total",
			Help: "Conversation entries appended by the merger.",
		}),
		EntriesDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailroom_conversation_entries_deduped_total",
			Help: "Candidate entries dropped as duplicates.",
		}),
		AcksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailroom_acknowledgements_sent_total",
			Help: "Acknowledgement emails delivered.",
		}),
		AcksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailroom_acknowledgements_failed_total",
			Help: "Acknowledgement sends that exhausted retries.",
		}),
		SequenceFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailroom_sequence_fallbacks_total",
			Help: "Ticket numbers issued via the degraded clock scheme.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailroom_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailroom_http_errors_total",
			Help: "HTTP errors by path, method and code.",
		}, []string{"path", "method", "code"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.InboundReceived, m.InboundDuplicate, m.InboundFailed,
			m.TicketsCreated, m.EntriesMerged, m.EntriesDeduped,
			m.AcksSent, m.AcksFailed, m.SequenceFallback,
			m.requests, m.errors,
		)
	}
	return m
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(path, method, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, status).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}
