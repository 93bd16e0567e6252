// Package resolver decides whether an inbound email opens a new ticket or
// continues an existing one.
package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/classifier"
	"github.com/spec-kit/mailroom/internal/domain"
)

// Decision is the routing verdict for one inbound email.
type Decision struct {
	Existing     bool
	TicketNumber string
	Enrichment   *classifier.Result
}

// Resolver runs the two-stage decision: a deterministic ticket-reference
// pattern match first, classification as fallback. The pattern stage is
// authoritative when it fires; the classifier is best-effort and any failure
// there defaults the email to a new ticket.
type Resolver struct {
	pattern    *regexp.Regexp
	classifier classifier.Classifier
	logger     *zap.Logger
}

// NewResolver constructs a resolver for the given ticket number prefix.
func NewResolver(prefix string, cls classifier.Classifier, logger *zap.Logger) *Resolver {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(prefix) + `-\d{8}-\d{4}`)
	return &Resolver{
		pattern:    pattern,
		classifier: cls,
		logger:     logger,
	}
}

// Resolve classifies the email. Subject takes priority over body; the first
// match wins.
func (r *Resolver) Resolve(ctx context.Context, email *domain.InboundEmail) Decision {
	if number := r.findReference(email.Subject); number != "" {
		return Decision{Existing: true, TicketNumber: number}
	}
	if number := r.findReference(email.BodyText); number != "" {
		return Decision{Existing: true, TicketNumber: number}
	}

	result, err := r.classifier.Classify(ctx, email)
	if err != nil {
		r.logger.Warn("classification unavailable, defaulting to new ticket",
			zap.String("sender", email.Sender), zap.Error(err))
		return Decision{}
	}

	decision := Decision{Enrichment: result}
	if result.Classification == classifier.ClassificationExisting {
		// The classifier's extracted number is only trusted when it matches
		// the required format exactly.
		if number := r.findReference(result.TicketNumber); number != "" {
			decision.Existing = true
			decision.TicketNumber = number
			return decision
		}
		r.logger.Warn("classifier reported existing ticket without a valid reference",
			zap.String("sender", email.Sender),
			zap.String("reported", result.TicketNumber))
	}
	return decision
}

func (r *Resolver) findReference(text string) string {
	match := r.pattern.FindString(text)
	if match == "" {
		return ""
	}
	return normalizeReference(match)
}

func normalizeReference(match string) string {
	parts := strings.SplitN(match, "-", 2)
	if len(parts) != 2 {
		return strings.ToUpper(match)
	}
	return fmt.Sprintf("%s-%s", strings.ToUpper(parts[0]), parts[1])
}
