package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/adapter"
	"telegram-mood-diary/internal/domain/ports/repository"
	"telegram-mood-diary/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase delivers daily diary and survey reminders. The
// scheduler calls CheckAndSendDue once a minute; a reminder fires on the
// tick whose user-local clock equals the stored "HH:MM".
type NotificationUseCase interface {
	CheckAndSendDue(ctx context.Context, now time.Time) (int, error)
}

type notificationUC struct {
	users   repository.UserRepository
	entries repository.EntryRepository
	surveys repository.SurveyRepository
	bot     adapter.TelegramBotPort
	log     *zerolog.Logger
}

func NewNotificationUseCase(
	users repository.UserRepository,
	entries repository.EntryRepository,
	surveys repository.SurveyRepository,
	bot adapter.TelegramBotPort,
	logger *zerolog.Logger,
) *notificationUC {
	return &notificationUC{users: users, entries: entries, surveys: surveys, bot: bot, log: logger}
}

func (n *notificationUC) CheckAndSendDue(ctx context.Context, now time.Time) (int, error) {
	sent := 0

	users, err := n.users.FindWithReminder(ctx, repository.NoTX)
	if err != nil {
		return 0, err
	}
	byChat := make(map[int64]*model.User, len(users))
	for _, usr := range users {
		byChat[usr.ChatID] = usr
		if usr.NotificationTime == nil || *usr.NotificationTime != usr.LocalClock(now) {
			continue
		}
		if n.diaryFilledToday(ctx, usr, now) {
			continue
		}
		text := "Time for your daily check-in. Send /entry to record today."
		if err := n.bot.SendMessage(ctx, usr.ChatID, text); err != nil {
			n.log.Warn().Err(err).Int64("chat_id", usr.ChatID).Msg("diary reminder send failed")
			continue
		}
		metrics.IncReminder("diary")
		sent++
	}

	prefs, err := n.surveys.FindDueReminders(ctx, repository.NoTX)
	if err != nil {
		return sent, err
	}
	for i := range prefs {
		p := &prefs[i]
		usr := byChat[p.ChatID]
		if usr == nil {
			usr, err = n.users.FindByChatID(ctx, repository.NoTX, p.ChatID)
			if err != nil {
				continue
			}
			byChat[p.ChatID] = usr
		}
		if p.NotificationTime != usr.LocalClock(now) {
			continue
		}
		localDate := now.UTC().Add(time.Duration(usr.TzOffsetMinutes) * time.Minute).Format("2006-01-02")
		count, err := n.surveys.CountResponsesOn(ctx, repository.NoTX, p.ChatID, p.TemplateID, localDate)
		if err != nil || count > 0 {
			continue
		}
		t, err := n.surveys.FindTemplateByID(ctx, repository.NoTX, p.TemplateID)
		if err != nil {
			continue
		}
		text := fmt.Sprintf("Reminder: time to fill %q. Send /fill to start.", t.Name)
		if err := n.bot.SendMessage(ctx, p.ChatID, text); err != nil {
			n.log.Warn().Err(err).Int64("chat_id", p.ChatID).Msg("survey reminder send failed")
			continue
		}
		metrics.IncReminder("survey")
		sent++
	}

	return sent, nil
}

// diaryFilledToday suppresses the reminder once the user has already
// recorded their local day.
func (n *notificationUC) diaryFilledToday(ctx context.Context, usr *model.User, now time.Time) bool {
	localDate := now.UTC().Add(time.Duration(usr.TzOffsetMinutes) * time.Minute).Format("2006-01-02")
	_, err := n.entries.FindByDate(ctx, repository.NoTX, usr.ChatID, localDate)
	if err == nil {
		return true
	}
	if !errors.Is(err, domain.ErrNotFound) {
		n.log.Warn().Err(err).Int64("chat_id", usr.ChatID).Msg("reminder entry lookup failed")
	}
	return false
}
