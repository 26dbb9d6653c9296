package repository

import (
	"context"
	"time"

	"telegram-mood-diary/internal/domain/model"
)

// UserRepository persists Telegram users and their reminder settings.
type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByChatID(ctx context.Context, tx Tx, chatID int64) (*model.User, error)
	// FindWithReminder returns all users with a daily diary reminder set.
	FindWithReminder(ctx context.Context, tx Tx) ([]*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
	CountInactiveUsers(ctx context.Context, tx Tx, since time.Time) (int, error)
}
