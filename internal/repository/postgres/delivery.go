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

type deliveryRepository struct {
	BaseRepository
}

func NewDeliveryRepository(base BaseRepository) repository.DeliveryRepository {
	return &deliveryRepository{base}
}

type deliveryRow struct {
	ID             string          `db:"id"`
	NotificationID string          `db:"notification_id"`
	UserID         string          `db:"user_id"`
	Strategy       string          `db:"strategy"`
	RetryPolicy    json.RawMessage `db:"retry_policy"`
	Status         string          `db:"status"`
	Attempts       json.RawMessage `db:"attempts"`
	StartedAt      *time.Time      `db:"started_at"`
	CompletedAt    *time.Time      `db:"completed_at"`
	FinalResult    json.RawMessage `db:"final_result"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (row *deliveryRow) toModel(notification *model.Notification, user *model.User) (*model.Delivery, error) {
	var policy model.RetryPolicy
	if err := json.Unmarshal(row.RetryPolicy, &policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal retry policy: %w", err)
	}

	var attempts []*model.DeliveryAttempt
	if len(row.Attempts) > 0 {
		if err := json.Unmarshal(row.Attempts, &attempts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal delivery attempts: %w", err)
		}
	}

	var finalResult *model.DeliveryResult
	if len(row.FinalResult) > 0 && string(row.FinalResult) != "null" {
		finalResult = &model.DeliveryResult{}
		if err := json.Unmarshal(row.FinalResult, finalResult); err != nil {
			return nil, fmt.Errorf("failed to unmarshal final result: %w", err)
		}
	}

	return &model.Delivery{
		ID:           model.DeliveryID(row.ID),
		Notification: notification,
		User:         user,
		Strategy:     model.Strategy(row.Strategy),
		RetryPolicy:  policy,
		Status:       model.Status(row.Status),
		Attempts:     attempts,
		StartedAt:    row.StartedAt,
		CompletedAt:  row.CompletedAt,
		FinalResult:  finalResult,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

const deliveryColumns = `
	id, notification_id, user_id, strategy, retry_policy, status,
	attempts, started_at, completed_at, final_result, created_at, updated_at
`

func (r *deliveryRepository) Get(ctx context.Context, id model.DeliveryID) (d *model.Delivery, err error) {
	defer func(start time.Time) { r.track("get_delivery", start, err) }(time.Now())

	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`

	var row deliveryRow
	if err := r.db.GetContext(ctx, &row, query, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("delivery", err)
		}
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}

	return r.hydrate(ctx, &row)
}

func (r *deliveryRepository) Save(ctx context.Context, delivery *model.Delivery) (err error) {
	defer func(start time.Time) { r.track("save_delivery", start, err) }(time.Now())

	policy, err := json.Marshal(delivery.RetryPolicy)
	if err != nil {
		return fmt.Errorf("failed to marshal retry policy: %w", err)
	}
	attempts, err := json.Marshal(delivery.Attempts)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery attempts: %w", err)
	}
	finalResult, err := json.Marshal(delivery.FinalResult)
	if err != nil {
		return fmt.Errorf("failed to marshal final result: %w", err)
	}

	query := `
		INSERT INTO deliveries (
			id, notification_id, user_id, strategy, retry_policy, status,
			attempts, started_at, completed_at, final_result, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			strategy = EXCLUDED.strategy,
			retry_policy = EXCLUDED.retry_policy,
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			final_result = EXCLUDED.final_result,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		string(delivery.ID),
		string(delivery.Notification.ID),
		string(delivery.User.ID),
		delivery.Strategy.String(),
		policy,
		delivery.Status.String(),
		attempts,
		delivery.StartedAt,
		delivery.CompletedAt,
		finalResult,
		delivery.CreatedAt,
		delivery.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save delivery: %w", err)
	}

	return nil
}

func (r *deliveryRepository) ListByNotification(ctx context.Context, notificationID model.NotificationID) ([]*model.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE notification_id = $1
		ORDER BY created_at
	`

	var rows []deliveryRow
	if err := r.db.SelectContext(ctx, &rows, query, string(notificationID)); err != nil {
		return nil, fmt.Errorf("failed to list deliveries by notification: %w", err)
	}

	return r.hydrateAll(ctx, rows)
}

func (r *deliveryRepository) ListPendingRetries(ctx context.Context) ([]*model.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE status = 'retrying'
		ORDER BY updated_at
	`

	var rows []deliveryRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list pending retries: %w", err)
	}

	return r.hydrateAll(ctx, rows)
}

func (r *deliveryRepository) Stats(ctx context.Context, days int) (stats *model.DeliveryStats, err error) {
	defer func(start time.Time) { r.track("delivery_stats", start, err) }(time.Now())

	query := `
		SELECT
			status,
			COUNT(*) AS total,
			AVG(COALESCE(jsonb_array_length(attempts), 0)) AS avg_attempts
		FROM deliveries
		WHERE created_at >= NOW() - ($1 * INTERVAL '1 day')
		GROUP BY status
	`

	var rows []struct {
		Status      string  `db:"status"`
		Total       int64   `db:"total"`
		AvgAttempts float64 `db:"avg_attempts"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, days); err != nil {
		return nil, fmt.Errorf("failed to query delivery stats: %w", err)
	}

	stats = &model.DeliveryStats{
		Days:     days,
		ByStatus: map[string]int64{},
	}

	var weightedAttempts float64
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Total
		stats.Total += row.Total
		weightedAttempts += row.AvgAttempts * float64(row.Total)
	}
	if stats.Total > 0 {
		stats.AvgAttempts = weightedAttempts / float64(stats.Total)
		stats.SuccessRate = float64(stats.ByStatus[model.StatusDelivered.String()]) / float64(stats.Total) * 100
	}

	return stats, nil
}

// hydrate loads the notification and user a delivery references. The
// aggregate is useless without them: every state transition consults
// recipient channels and notification readiness.
func (r *deliveryRepository) hydrate(ctx context.Context, row *deliveryRow) (*model.Delivery, error) {
	var nRow notificationRow
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	if err := r.db.GetContext(ctx, &nRow, query, row.NotificationID); err != nil {
		return nil, fmt.Errorf("failed to load delivery notification: %w", err)
	}
	notification, err := nRow.toModel()
	if err != nil {
		return nil, err
	}

	var uRow userRow
	query = `
		SELECT id, name, email, phone, chat_id, is_active, preferences, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &uRow, query, row.UserID); err != nil {
		return nil, fmt.Errorf("failed to load delivery user: %w", err)
	}

	return row.toModel(notification, uRow.toModel())
}

func (r *deliveryRepository) hydrateAll(ctx context.Context, rows []deliveryRow) ([]*model.Delivery, error) {
	deliveries := make([]*model.Delivery, 0, len(rows))
	for i := range rows {
		d, err := r.hydrate(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}
