package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/mailroom/internal/domain"
)

func TestFingerprintPrefersMessageID(t *testing.T) {
	a := &domain.InboundEmail{Sender: "a@example.com", Subject: "x", MessageID: "<abc@mail>"}
	b := &domain.InboundEmail{Sender: "b@example.com", Subject: "y", MessageID: "abc@mail"}

	assert.Equal(t, Fingerprint(a), Fingerprint(b), "same message id must map to same fingerprint regardless of other fields")
}

func TestFingerprintCompositeIsStable(t *testing.T) {
	date := time.Date(2025, 6, 1, 10, 30, 12, 0, time.UTC)
	a := &domain.InboundEmail{Sender: "Jane@Example.com ", Subject: "Question   about  leave", Date: date}
	b := &domain.InboundEmail{Sender: "jane@example.com", Subject: "Question about leave", Date: date.Add(20 * time.Second)}

	assert.Equal(t, Fingerprint(a), Fingerprint(b), "normalization and minute bucketing must align redeliveries")
}

func TestFingerprintCompositeDiffersAcrossBuckets(t *testing.T) {
	date := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	a := &domain.InboundEmail{Sender: "jane@example.com", Subject: "hello", Date: date}
	b := &domain.InboundEmail{Sender: "jane@example.com", Subject: "hello", Date: date.Add(2 * time.Minute)}

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDiffersBySender(t *testing.T) {
	date := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	a := &domain.InboundEmail{Sender: "jane@example.com", Subject: "hello", Date: date}
	b := &domain.InboundEmail{Sender: "john@example.com", Subject: "hello", Date: date}

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
