package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

// NotificationRepository stores inbox rows.
type NotificationRepository interface {
	// Create inserts n; an existing row with the same id is left untouched.
	Create(ctx context.Context, n domain.Notification) error
	List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, recipientID, id string) error
	UnreadCount(ctx context.Context, recipientID string) (int, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n domain.Notification) error {
	const query = `
        INSERT INTO notifications (id, recipient_id, message, type, related_id, read, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (id) DO NOTHING`
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query, n.ID, n.RecipientID, n.Message, n.Type, n.RelatedID, n.Read, metadata, n.CreatedAt)
	return err
}

func (r *notificationRepository) List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	limit, _ = pagination(limit, 0)
	const query = `
        SELECT id, recipient_id, message, type, related_id, read, metadata, created_at
        FROM notifications
        WHERE recipient_id=$1 AND ($2::boolean = FALSE OR read = FALSE)
        ORDER BY created_at DESC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Notification{}
	for rows.Next() {
		var (
			n        domain.Notification
			metadata []byte
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Message, &n.Type, &n.RelatedID, &n.Read, &metadata, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
				return nil, err
			}
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	if !validID(id) {
		return apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE notifications SET read=TRUE WHERE id=$1 AND recipient_id=$2`, id, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE notifications SET read=TRUE WHERE recipient_id=$1 AND read=FALSE`, recipientID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) Delete(ctx context.Context, recipientID, id string) error {
	if !validID(id) {
		return apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id=$1 AND recipient_id=$2`, id, recipientID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	return nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND read=FALSE`, recipientID).Scan(&count)
	return count, err
}
