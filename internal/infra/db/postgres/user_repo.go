package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
	"telegram-mood-diary/internal/infra/metrics"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	start := time.Now()
	const q = `
INSERT INTO users (id, chat_id, username, first_name, notification_time, tz_offset_minutes, registered_at, last_active_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (chat_id) DO UPDATE SET
  username=$3, first_name=$4, notification_time=$5, tz_offset_minutes=$6, last_active_at=$8;`
	_, err = ex.Exec(ctx, q, u.ID, u.ChatID, u.Username, u.FirstName, u.NotificationTime, u.TzOffsetMinutes, u.RegisteredAt, u.LastActiveAt)
	metrics.ObserveDBQuery("user", "save", float64(time.Since(start).Milliseconds()))
	return err
}

func (r *UserRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.User, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, chat_id, username, first_name, notification_time, tz_offset_minutes, registered_at, last_active_at
  FROM users WHERE chat_id=$1;`
	var u model.User
	err = ex.QueryRow(ctx, q, chatID).Scan(&u.ID, &u.ChatID, &u.Username, &u.FirstName, &u.NotificationTime, &u.TzOffsetMinutes, &u.RegisteredAt, &u.LastActiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindWithReminder(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, chat_id, username, first_name, notification_time, tz_offset_minutes, registered_at, last_active_at
  FROM users WHERE notification_time IS NOT NULL;`
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query users with reminder: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.ChatID, &u.Username, &u.FirstName, &u.NotificationTime, &u.TzOffsetMinutes, &u.RegisteredAt, &u.LastActiveAt); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *UserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepo) CountInactiveUsers(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE last_active_at < $1;`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count inactive: %w", err)
	}
	return n, nil
}
