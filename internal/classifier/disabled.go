package classifier

import (
	"context"
	"errors"

	"github.com/spec-kit/mailroom/internal/domain"
)

// ErrDisabled is returned when no classification endpoint is configured.
var ErrDisabled = errors.New("classifier not configured")

// Disabled is a Classifier that always errors, forcing the resolver onto its
// default-to-new path.
type Disabled struct{}

// Classify always returns ErrDisabled.
func (Disabled) Classify(_ context.Context, _ *domain.InboundEmail) (*Result, error) {
	return nil, ErrDisabled
}

var _ Classifier = Disabled{}
