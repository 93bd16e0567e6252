// Package classifier adapts the external AI classification capability. Its
// output is best-effort enrichment: routing never fails because a
// classification call failed.
package classifier

import (
	"context"

	"github.com/spec-kit/mailroom/internal/domain"
)

// Classification labels an email as a new inquiry or a follow-up.
type Classification string

const (
	ClassificationNew      Classification = "NEW"
	ClassificationExisting Classification = "EXISTING"
)

// Result carries the classifier verdict plus extracted metadata that is
// passed through onto the ticket.
type Result struct {
	Classification Classification
	TicketNumber   string
	Confidence     float64
	Summary        string
	Category       string
	Sentiment      string
}

// Classifier is the external classification capability.
type Classifier interface {
	Classify(ctx context.Context, email *domain.InboundEmail) (*Result, error)
}
