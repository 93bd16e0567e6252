// Package conversation owns the merge semantics for ticket threads:
// candidate extraction, content-based dedup, timestamp repair and
// chronological renumbering.
package conversation

import (
	"sort"
	"time"

	"github.com/spec-kit/mailroom/internal/domain"
)

// missingTimestampStep is added to the previous entry's timestamp when a
// candidate carries no date, preserving relative order without fabricating a
// wildly wrong time.
const missingTimestampStep = 5 * time.Second

// MergeStats reports what a merge did.
type MergeStats struct {
	Candidates int
	Added      int
	Deduped    int
}

// Merger merges parsed candidates into an existing ordered conversation.
type Merger struct {
	extractor Extractor
	now       func() time.Time
}

// NewMerger constructs a merger with the given extractor.
func NewMerger(extractor Extractor) *Merger {
	return &Merger{extractor: extractor, now: time.Now}
}

// Merge parses the email, drops duplicates against the existing thread,
// repairs missing timestamps and returns the re-sorted, renumbered
// conversation. An email yielding no new content is a successful no-op: the
// existing entries come back renumbered but otherwise unchanged.
func (m *Merger) Merge(existing []domain.ConversationEntry, email *domain.InboundEmail) ([]domain.ConversationEntry, MergeStats) {
	candidates := m.extractor.Extract(email)
	stats := MergeStats{Candidates: len(candidates)}

	seenHashes := make(map[string]struct{}, len(existing))
	seenIDs := make(map[string]struct{}, len(existing))
	for _, entry := range existing {
		seenHashes[entry.ContentHash] = struct{}{}
		seenIDs[entry.MessageID] = struct{}{}
	}

	merged := append([]domain.ConversationEntry(nil), existing...)
	for _, candidate := range candidates {
		entry := domain.ConversationEntry{
			MessageID:   DeriveMessageID(candidate.SenderEmail, email.MessageID, candidate.Body),
			ContentHash: ContentHash(candidate.Body),
			SenderEmail: candidate.SenderEmail,
			SenderName:  candidate.SenderName,
			Timestamp:   candidate.Timestamp,
			BodyText:    candidate.Body,
		}

		if _, dup := seenHashes[entry.ContentHash]; dup {
			stats.Deduped++
			continue
		}
		if _, dup := seenIDs[entry.MessageID]; dup {
			stats.Deduped++
			continue
		}

		if entry.Timestamp.IsZero() {
			entry.Timestamp = m.nextTimestamp(merged)
		}

		seenHashes[entry.ContentHash] = struct{}{}
		seenIDs[entry.MessageID] = struct{}{}
		merged = append(merged, entry)
		stats.Added++
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	for i := range merged {
		merged[i].ThreadPosition = i + 1
	}
	return merged, stats
}

// nextTimestamp chains a synthesized timestamp off the latest entry so far,
// or uses the current time for the very first entry of a thread.
func (m *Merger) nextTimestamp(entries []domain.ConversationEntry) time.Time {
	if len(entries) == 0 {
		return m.now()
	}
	latest := entries[0].Timestamp
	for _, entry := range entries[1:] {
		if entry.Timestamp.After(latest) {
			latest = entry.Timestamp
		}
	}
	return latest.Add(missingTimestampStep)
}
