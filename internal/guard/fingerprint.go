package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/mailroom/internal/domain"
)

// Fingerprint derives a stable idempotency key for one logical inbound email.
// A transport Message-ID wins when present; otherwise the key is a digest of
// normalized sender, normalized subject and a minute-resolution time bucket,
// so redelivery of the same message always maps to the same key.
func Fingerprint(email *domain.InboundEmail) string {
	if id := strings.TrimSpace(email.MessageID); id != "" {
		return digest("msgid|" + strings.Trim(id, "<>"))
	}

	ts := email.Date
	if ts.IsZero() {
		ts = time.Now()
	}
	bucket := ts.UTC().Truncate(time.Minute).Format("200601021504")
	composite := fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(email.Sender)),
		normalizeSubject(email.Subject),
		bucket,
	)
	return digest(composite)
}

func normalizeSubject(subject string) string {
	return strings.ToLower(strings.Join(strings.Fields(subject), " "))
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}
