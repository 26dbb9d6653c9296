package sched

import (
	"context"
	"time"

	"telegram-mood-diary/internal/usecase"

	"github.com/rs/zerolog"
)

// ReminderWorker ticks once a minute and fires whatever diary or survey
// reminders are due on that minute. The interval should stay at one minute:
// reminders match the user's local "HH:MM" exactly, so a longer interval
// skips minutes and a shorter one double-fires.
type ReminderWorker struct {
	interval time.Duration
	notifUC  usecase.NotificationUseCase
	log      *zerolog.Logger
}

func NewReminderWorker(interval time.Duration, notifUC usecase.NotificationUseCase, logger *zerolog.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	compLog := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{
		interval: interval,
		notifUC:  notifUC,
		log:      &compLog,
	}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting reminder worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping reminder worker")
			return ctx.Err()
		case now := <-ticker.C:
			w.runCheck(ctx, now)
		}
	}
}

func (w *ReminderWorker) runCheck(ctx context.Context, now time.Time) {
	sent, err := w.notifUC.CheckAndSendDue(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("reminder check failed")
	}
	if sent > 0 {
		w.log.Info().Int("count", sent).Msg("reminders sent")
	}
}
