package conversation

import (
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/spec-kit/mailroom/internal/domain"
)

// Candidate is one discrete message extracted from a raw email body. A zero
// Timestamp means the parser found no usable date and the merger must
// synthesize one.
type Candidate struct {
	SenderEmail string
	SenderName  string
	Timestamp   time.Time
	Body        string
}

// Extractor turns a raw inbound email into candidate entries. Extraction may
// be delegated to an external structured-extraction capability; the merge
// semantics stay in this package either way.
type Extractor interface {
	Extract(email *domain.InboundEmail) []Candidate
}

var (
	// "On Mon, 2 Jun 2025 at 10:30, Jane Doe <jane@example.com> wrote:"
	quoteIntroPattern = regexp.MustCompile(`(?mi)^\s*>?\s*On .{4,120}?,?\s*(?:<?([\w.+-]+@[\w.-]+\.\w+)>?)?\s*wrote:\s*$`)
	// Outlook style separators.
	originalMessagePattern = regexp.MustCompile(`(?mi)^\s*-{2,}\s*(?:Original Message|Forwarded message)\s*-{2,}\s*$`)
	fromHeaderPattern      = regexp.MustCompile(`(?mi)^\s*From:\s*(?:"?([^"<\r\n]*)"?\s*)?<?([\w.+-]+@[\w.-]+\.\w+)>?\s*$`)
	sentHeaderPattern      = regexp.MustCompile(`(?mi)^\s*(?:Sent|Date):\s*(.+)$`)
	quotedLinePattern      = regexp.MustCompile(`(?m)^>\s?`)
)

var quoteDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Monday, January 2, 2006 3:04 PM",
	"2 Jan 2006 15:04",
	"2006-01-02 15:04",
}

// HeuristicExtractor splits quoted reply chains without external help. The
// top of the body is attributed to the delivering sender; each quoted block
// below a recognized separator becomes its own candidate attributed to the
// address found in the separator, when one is present.
type HeuristicExtractor struct {
	sanitizer *bluemonday.Policy
}

// NewHeuristicExtractor constructs the extractor.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{sanitizer: bluemonday.StrictPolicy()}
}

// Extract implements Extractor.
func (e *HeuristicExtractor) Extract(email *domain.InboundEmail) []Candidate {
	body := e.toPlainText(email.BodyText)
	if strings.TrimSpace(body) == "" {
		return nil
	}

	segments := splitQuotedThread(body)
	candidates := make([]Candidate, 0, len(segments))
	for i, seg := range segments {
		text := strings.TrimSpace(stripQuoteMarkers(seg.text))
		if text == "" {
			continue
		}
		candidate := Candidate{
			SenderEmail: seg.senderEmail,
			SenderName:  seg.senderName,
			Timestamp:   seg.timestamp,
			Body:        text,
		}
		if i == 0 {
			// Top segment is the fresh reply from the delivering sender.
			candidate.SenderEmail = email.Sender
			candidate.SenderName = email.SenderName
			candidate.Timestamp = email.Date
		}
		if candidate.SenderEmail == "" {
			candidate.SenderEmail = email.Sender
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

func (e *HeuristicExtractor) toPlainText(body string) string {
	if !strings.Contains(body, "<") || !strings.Contains(body, ">") {
		return body
	}
	stripped := e.sanitizer.Sanitize(body)
	if strings.TrimSpace(stripped) == "" {
		return body
	}
	return stripped
}

type segment struct {
	senderEmail string
	senderName  string
	timestamp   time.Time
	text        string
}

// splitQuotedThread walks the body line by line, starting a new segment at
// every quote introduction or original-message separator.
func splitQuotedThread(body string) []segment {
	lines := strings.Split(body, "\n")
	segments := []segment{{}}
	current := &segments[0]
	var buf []string

	flush := func() {
		current.text = strings.Join(buf, "\n")
		buf = buf[:0]
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := quoteIntroPattern.FindStringSubmatch(line); m != nil {
			flush()
			segments = append(segments, segment{senderEmail: strings.ToLower(m[1])})
			current = &segments[len(segments)-1]
			current.timestamp = parseQuoteIntroDate(line)
			continue
		}
		if originalMessagePattern.MatchString(line) {
			flush()
			segments = append(segments, segment{})
			current = &segments[len(segments)-1]
			// Outlook blocks carry From:/Sent: headers on following lines.
			continue
		}
		if current.senderEmail == "" {
			if m := fromHeaderPattern.FindStringSubmatch(stripQuoteMarkers(line)); m != nil && len(segments) > 1 {
				current.senderName = strings.TrimSpace(m[1])
				current.senderEmail = strings.ToLower(m[2])
				continue
			}
		}
		if current.timestamp.IsZero() && len(segments) > 1 {
			if m := sentHeaderPattern.FindStringSubmatch(stripQuoteMarkers(line)); m != nil {
				current.timestamp = parseQuoteDate(strings.TrimSpace(m[1]))
				continue
			}
		}
		buf = append(buf, line)
	}
	flush()
	return segments
}

func parseQuoteIntroDate(line string) time.Time {
	trimmed := strings.TrimSpace(stripQuoteMarkers(line))
	trimmed = strings.TrimPrefix(trimmed, "On ")
	if idx := strings.LastIndex(trimmed, " wrote:"); idx > 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.LastIndex(trimmed, ","); idx > 0 {
		// Drop the trailing author portion ("..., Jane Doe <jane@...>").
		if t := parseQuoteDate(strings.TrimSpace(trimmed[:idx])); !t.IsZero() {
			return t
		}
	}
	return parseQuoteDate(trimmed)
}

func parseQuoteDate(value string) time.Time {
	for _, layout := range quoteDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func stripQuoteMarkers(text string) string {
	return quotedLinePattern.ReplaceAllString(text, "")
}
