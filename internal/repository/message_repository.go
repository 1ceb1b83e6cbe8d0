package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

// MessageRepository stores the conversation as explicit rows.
type MessageRepository interface {
	// Append inserts messages; rows that already exist for the same
	// complaint and sequence are skipped.
	Append(ctx context.Context, messages ...domain.Message) error
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.Message, error)
	CountByComplaint(ctx context.Context, complaintID string) (int, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Append(ctx context.Context, messages ...domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	const query = `
        INSERT INTO complaint_messages (id, complaint_id, sequence, kind, sender, recipient, body, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (complaint_id, sequence) DO NOTHING`
	batch := &pgx.Batch{}
	for _, m := range messages {
		id := m.ID
		if !validID(id) {
			id = uuid.NewString()
		}
		batch.Queue(query, id, m.ComplaintID, m.Sequence, m.Kind, m.Sender, m.Recipient, m.Body, m.CreatedAt)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *messageRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.Message, error) {
	if !validID(complaintID) {
		return []domain.Message{}, nil
	}
	const query = `
        SELECT id, complaint_id, sequence, kind, sender, recipient, body, created_at
        FROM complaint_messages WHERE complaint_id=$1 ORDER BY sequence ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ComplaintID, &m.Sequence, &m.Kind, &m.Sender, &m.Recipient, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *messageRepository) CountByComplaint(ctx context.Context, complaintID string) (int, error) {
	if !validID(complaintID) {
		return 0, nil
	}
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM complaint_messages WHERE complaint_id=$1`, complaintID).Scan(&count)
	return count, err
}
