package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mailroom/internal/domain"
)

// ErrNotFound is returned when no ticket matches the lookup.
var ErrNotFound = errors.New("ticket not found")

// ErrDuplicateTicketNumber is returned when a create collides on ticket_number.
var ErrDuplicateTicketNumber = errors.New("ticket number already exists")

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByTicketNumber(ctx context.Context, number string) (*domain.Ticket, error)
	FindBySenderEmail(ctx context.Context, sender string) ([]domain.Ticket, error)
	// ReplaceConversation swaps the full ordered conversation for a ticket in
	// one transaction. Merge-then-replace is not commutative, so callers
	// serialize replacements per ticket.
	ReplaceConversation(ctx context.Context, number string, entries []domain.ConversationEntry) error
	UpdateStatus(ctx context.Context, number string, status domain.TicketStatus) error
	MarkAcknowledged(ctx context.Context, number string, at time.Time) error
	MarkAcknowledgementFailed(ctx context.Context, number string, reason string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (ticket_number, status, sender_email, sender_name, subject, summary, category, sentiment, ack_sent, ack_sent_at, ack_failure)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Status,
		ticket.SenderEmail,
		ticket.SenderName,
		ticket.Subject,
		ticket.Summary,
		ticket.Category,
		ticket.Sentiment,
		ticket.AckSent,
		ticket.AckSentAt,
		ticket.AckFailure,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	if err := insertEntries(ctx, tx, ticket.TicketNumber, ticket.Conversation); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByTicketNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	const query = `
        SELECT id, ticket_number, status, sender_email, sender_name, subject, summary, category, sentiment,
               ack_sent, ack_sent_at, ack_failure, created_at, updated_at
        FROM tickets WHERE ticket_number=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, number).Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Status,
		&ticket.SenderEmail,
		&ticket.SenderName,
		&ticket.Subject,
		&ticket.Summary,
		&ticket.Category,
		&ticket.Sentiment,
		&ticket.AckSent,
		&ticket.AckSentAt,
		&ticket.AckFailure,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	entries, err := r.loadConversation(ctx, number)
	if err != nil {
		return nil, err
	}
	ticket.Conversation = entries
	return &ticket, nil
}

func (r *ticketRepository) FindBySenderEmail(ctx context.Context, sender string) ([]domain.Ticket, error) {
	const query = `
        SELECT id, ticket_number, status, sender_email, sender_name, subject, summary, category, sentiment,
               ack_sent, ack_sent_at, ack_failure, created_at, updated_at
        FROM tickets WHERE sender_email=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, sender)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.Status,
			&ticket.SenderEmail,
			&ticket.SenderName,
			&ticket.Subject,
			&ticket.Summary,
			&ticket.Category,
			&ticket.Sentiment,
			&ticket.AckSent,
			&ticket.AckSentAt,
			&ticket.AckFailure,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ReplaceConversation(ctx context.Context, number string, entries []domain.ConversationEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM conversation_entries WHERE ticket_number=$1`, number); err != nil {
		return err
	}
	if err := insertEntries(ctx, tx, number, entries); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE tickets SET updated_at=NOW() WHERE ticket_number=$1`, number); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, number string, status domain.TicketStatus) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE tickets SET status=$1, updated_at=NOW() WHERE ticket_number=$2`, status, number)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) MarkAcknowledged(ctx context.Context, number string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE tickets SET ack_sent=TRUE, ack_sent_at=$1, ack_failure='', updated_at=NOW() WHERE ticket_number=$2`, at, number)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) MarkAcknowledgementFailed(ctx context.Context, number string, reason string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE tickets SET ack_failure=$1, updated_at=NOW() WHERE ticket_number=$2`, reason, number)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) loadConversation(ctx context.Context, number string) ([]domain.ConversationEntry, error) {
	const query = `
        SELECT message_id, content_hash, sender_email, sender_name, entry_timestamp, body_text, thread_position
        FROM conversation_entries WHERE ticket_number=$1 ORDER BY thread_position ASC`
	rows, err := r.pool.Query(ctx, query, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ConversationEntry
	for rows.Next() {
		var entry domain.ConversationEntry
		if err := rows.Scan(
			&entry.MessageID,
			&entry.ContentHash,
			&entry.SenderEmail,
			&entry.SenderName,
			&entry.Timestamp,
			&entry.BodyText,
			&entry.ThreadPosition,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func insertEntries(ctx context.Context, tx pgx.Tx, number string, entries []domain.ConversationEntry) error {
	const query = `
        INSERT INTO conversation_entries (ticket_number, message_id, content_hash, sender_email, sender_name, entry_timestamp, body_text, thread_position)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for _, entry := range entries {
		if _, err := tx.Exec(ctx, query,
			number,
			entry.MessageID,
			entry.ContentHash,
			entry.SenderEmail,
			entry.SenderName,
			entry.Timestamp,
			entry.BodyText,
			entry.ThreadPosition,
		); err != nil {
			return err
		}
	}
	return nil
}
