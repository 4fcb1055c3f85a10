package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
)

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

type notificationRow struct {
	ID          string          `db:"id"`
	RecipientID string          `db:"recipient_id"`
	Template    json.RawMessage `db:"template"`
	Priority    string          `db:"priority"`
	ScheduledAt time.Time       `db:"scheduled_at"`
	ExpiresAt   *time.Time      `db:"expires_at"`
	Metadata    json.RawMessage `db:"metadata"`
	Cancelled   bool            `db:"is_cancelled"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (row *notificationRow) toModel() (*model.Notification, error) {
	var template model.MessageTemplate
	if err := json.Unmarshal(row.Template, &template); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification template: %w", err)
	}

	metadata := map[string]any{}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification metadata: %w", err)
		}
	}

	return &model.Notification{
		ID:          model.NotificationID(row.ID),
		RecipientID: model.UserID(row.RecipientID),
		Template:    &template,
		Priority:    model.Priority(row.Priority),
		ScheduledAt: row.ScheduledAt,
		ExpiresAt:   row.ExpiresAt,
		Metadata:    metadata,
		Cancelled:   row.Cancelled,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

const notificationColumns = `
	id, recipient_id, template, priority, scheduled_at,
	expires_at, metadata, is_cancelled, created_at, updated_at
`

func (r *notificationRepository) Get(ctx context.Context, id model.NotificationID) (*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	var row notificationRow
	if err := r.db.GetContext(ctx, &row, query, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("notification", err)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return row.toModel()
}

func (r *notificationRepository) Save(ctx context.Context, notification *model.Notification) error {
	template, err := json.Marshal(notification.Template)
	if err != nil {
		return fmt.Errorf("failed to marshal notification template: %w", err)
	}
	metadata, err := json.Marshal(notification.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal notification metadata: %w", err)
	}

	query := `
		INSERT INTO notifications (
			id, recipient_id, template, priority, scheduled_at,
			expires_at, metadata, is_cancelled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			template = EXCLUDED.template,
			priority = EXCLUDED.priority,
			scheduled_at = EXCLUDED.scheduled_at,
			expires_at = EXCLUDED.expires_at,
			metadata = EXCLUDED.metadata,
			is_cancelled = EXCLUDED.is_cancelled,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		string(notification.ID),
		string(notification.RecipientID),
		template,
		notification.Priority.String(),
		notification.ScheduledAt,
		notification.ExpiresAt,
		metadata,
		notification.Cancelled,
		notification.CreatedAt,
		notification.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	return nil
}

// ListPending returns sendable notifications, most urgent first.
func (r *notificationRepository) ListPending(ctx context.Context, limit int) ([]*model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE is_cancelled = false
		  AND scheduled_at <= NOW()
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY
			CASE priority
				WHEN 'critical' THEN 0
				WHEN 'high' THEN 1
				WHEN 'normal' THEN 2
				ELSE 3
			END,
			scheduled_at
		LIMIT $1
	`

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}

	return rowsToNotifications(rows)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID model.UserID) ([]*model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
	`

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, string(recipientID)); err != nil {
		return nil, fmt.Errorf("failed to list notifications by recipient: %w", err)
	}

	return rowsToNotifications(rows)
}

func (r *notificationRepository) Delete(ctx context.Context, id model.NotificationID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("notification", nil)
	}

	return nil
}

func rowsToNotifications(rows []notificationRow) ([]*model.Notification, error) {
	notifications := make([]*model.Notification, 0, len(rows))
	for i := range rows {
		n, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}
