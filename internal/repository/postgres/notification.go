package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/mediconnect-api/internal/model"
)

type notificationRepository struct {
	q querier
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (user_id, message)
		VALUES ($1, $2)
		RETURNING id, is_read, created_at
	`
	err := r.q.QueryRowxContext(ctx, query, n.UserID, n.Message).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID int64) (bool, error) {
	result, err := r.q.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *notificationRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear notifications: %w", err)
	}
	return result.RowsAffected()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.q.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Notification, error) {
	query := `
		SELECT id, user_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var notifications []*model.Notification
	if err := r.q.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}
