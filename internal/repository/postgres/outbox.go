package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/mediconnect-api/internal/model"
)

type outboxRepository struct {
	q querier
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	event.Status = model.OutboxStatusPending

	_, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		[]byte(event.Payload),
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// GetPendingEventsWithLock must run inside WithTx for the row locks to hold
// until the statuses are written back.
func (r *outboxRepository) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, payload, status, error_message, retry_count,
		       retry_at, created_at, processed_at, updated_at
		FROM outbox_events
		WHERE status = 'pending'
		AND (retry_at IS NULL OR retry_at <= NOW())
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	var events []*model.OutboxEvent
	if err := r.q.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = 'processed', processed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// MarkFailed keeps the event pending until retryAt, or fails it for good
// when retryAt is nil.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error {
	query := `
		UPDATE outbox_events
		SET status = CASE WHEN $3::timestamptz IS NULL THEN 'failed' ELSE status END,
		    error_message = $2,
		    retry_at = $3,
		    retry_count = retry_count + 1,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.q.ExecContext(ctx, query, id, errorMessage, retryAt); err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.q.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
