package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/careflow-service/internal/domain"
)

// NotificationRepository handles persistence for workflow notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]domain.Notification, error)
	// MarkRead sets the read flag. Marking an already-read row again is a
	// no-op, not an error.
	MarkRead(ctx context.Context, id string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient, title, message, category, entity_type, entity_id, read_flag)
        VALUES ($1,$2,$3,$4,$5,$6,false)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		n.Recipient,
		n.Title,
		n.Message,
		n.Category,
		n.EntityType,
		n.EntityID,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	const query = `
        SELECT id, recipient, title, message, category, entity_type, entity_id, read_flag, created_at
        FROM notifications WHERE id=$1`

	var n domain.Notification
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.Recipient,
		&n.Title,
		&n.Message,
		&n.Category,
		&n.EntityType,
		&n.EntityID,
		&n.Read,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
        SELECT id, recipient, title, message, category, entity_type, entity_id, read_flag, created_at
        FROM notifications WHERE recipient=$1
        ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.Recipient,
			&n.Title,
			&n.Message,
			&n.Category,
			&n.EntityType,
			&n.EntityID,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	const query = `UPDATE notifications SET read_flag=true WHERE id=$1`

	_, err := r.pool.Exec(ctx, query, id)
	return err
}
