package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// NormalizeContent collapses all whitespace runs to single spaces so that
// reflowed copies of the same text hash identically.
func NormalizeContent(body string) string {
	return strings.Join(strings.Fields(body), " ")
}

// ContentHash digests the normalized body. Two entries with the same hash are
// the same message regardless of transport identifiers.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(NormalizeContent(body)))
	return hex.EncodeToString(sum[:])
}

// DeriveMessageID builds a deterministic entry identifier from the sender,
// the transport source identifier and a truncated content sample. Repeated
// parses of the same physical message must yield the same identifier, so
// nothing random participates.
func DeriveMessageID(sender, sourceID, body string) string {
	normalized := NormalizeContent(body)
	if len(normalized) > 64 {
		normalized = normalized[:64]
	}
	seed := fmt.Sprintf("%s|%s|%s", strings.ToLower(strings.TrimSpace(sender)), strings.Trim(sourceID, "<>"), normalized)
	sum := sha256.Sum256([]byte(seed))
	return "entry-" + hex.EncodeToString(sum[:12])
}
