package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	apperrors "github.com/jwalitptl/notify-api/pkg/errors"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

type userRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Email       string         `db:"email"`
	Phone       string         `db:"phone"`
	ChatID      string         `db:"chat_id"`
	Active      bool           `db:"is_active"`
	Preferences pq.StringArray `db:"preferences"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (row *userRow) toModel() *model.User {
	return &model.User{
		ID:          model.UserID(row.ID),
		Name:        row.Name,
		Email:       row.Email,
		Phone:       row.Phone,
		ChatID:      row.ChatID,
		Active:      row.Active,
		Preferences: []string(row.Preferences),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (r *userRepository) Get(ctx context.Context, id model.UserID) (u *model.User, err error) {
	defer func(start time.Time) { r.track("get_user", start, err) }(time.Now())

	query := `
		SELECT id, name, email, phone, chat_id, is_active, preferences, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return row.toModel(), nil
}

func (r *userRepository) Save(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (
			id, name, email, phone, chat_id, is_active,
			preferences, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			chat_id = EXCLUDED.chat_id,
			is_active = EXCLUDED.is_active,
			preferences = EXCLUDED.preferences,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		string(user.ID),
		user.Name,
		user.Email,
		user.Phone,
		user.ChatID,
		user.Active,
		pq.StringArray(user.Preferences),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (r *userRepository) ListActive(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT id, name, email, phone, chat_id, is_active, preferences, created_at, updated_at
		FROM users
		WHERE is_active = true
		ORDER BY created_at
	`

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	users := make([]*model.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toModel())
	}
	return users, nil
}

func (r *userRepository) Delete(ctx context.Context, id model.UserID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("user", nil)
	}

	return nil
}
