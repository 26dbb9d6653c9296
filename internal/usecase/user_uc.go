package usecase

import (
	"context"
	"errors"
	"time"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
	"telegram-mood-diary/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user-related operations used by bot flows and the
// reminder worker.
type UserUseCase interface {
	RegisterOrFetch(ctx context.Context, chatID int64, username, firstName string) (*model.User, error)
	GetByChatID(ctx context.Context, chatID int64) (*model.User, error)
	// SetReminder stores the daily diary reminder clock ("HH:MM", user-local).
	SetReminder(ctx context.Context, chatID int64, clock string) error
	DisableReminder(ctx context.Context, chatID int64) error
	// SetTimezone stores the user's UTC offset in minutes.
	SetTimezone(ctx context.Context, chatID int64, offsetMinutes int) error
	Count(ctx context.Context) (int, error)
	CountInactiveSince(ctx context.Context, since time.Time) (int, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, tm: tm, log: logger}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, chatID int64, username, firstName string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	var user *model.User
	// Read and write run as one atomic step so two parallel /start updates
	// cannot both insert.
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByChatID(ctx, tx, chatID)
		switch {
		case err == nil:
			if username != "" && usr.Username != username {
				usr.Username = username
			}
			if firstName != "" && usr.FirstName != firstName {
				usr.FirstName = firstName
			}
			usr.Touch()
			if err = u.users.Save(ctx, tx, usr); err != nil {
				u.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to update user")
				return err
			}
			user = usr
			return nil
		case errors.Is(err, domain.ErrNotFound):
			nu, err := model.NewUser("", chatID, username, firstName)
			if err != nil {
				return err
			}
			if err = u.users.Save(ctx, tx, nu); err != nil {
				u.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to create user")
				return err
			}
			user = nu
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userUC) GetByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	return u.users.FindByChatID(ctx, repository.NoTX, chatID)
}

func (u *userUC) SetReminder(ctx context.Context, chatID int64, clock string) error {
	if err := model.ValidateClock(clock); err != nil {
		return err
	}
	usr, err := u.users.FindByChatID(ctx, repository.NoTX, chatID)
	if err != nil {
		return err
	}
	usr.NotificationTime = &clock
	return u.users.Save(ctx, repository.NoTX, usr)
}

func (u *userUC) DisableReminder(ctx context.Context, chatID int64) error {
	usr, err := u.users.FindByChatID(ctx, repository.NoTX, chatID)
	if err != nil {
		return err
	}
	usr.NotificationTime = nil
	return u.users.Save(ctx, repository.NoTX, usr)
}

func (u *userUC) SetTimezone(ctx context.Context, chatID int64, offsetMinutes int) error {
	// UTC-12 .. UTC+14 covers every real zone.
	if offsetMinutes < -12*60 || offsetMinutes > 14*60 {
		return domain.ErrInvalidArgument
	}
	usr, err := u.users.FindByChatID(ctx, repository.NoTX, chatID)
	if err != nil {
		return err
	}
	usr.TzOffsetMinutes = offsetMinutes
	return u.users.Save(ctx, repository.NoTX, usr)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	return u.users.CountUsers(ctx, repository.NoTX)
}

func (u *userUC) CountInactiveSince(ctx context.Context, since time.Time) (int, error) {
	return u.users.CountInactiveUsers(ctx, repository.NoTX, since)
}
