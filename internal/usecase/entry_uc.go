package usecase

import (
	"context"
	"time"

	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
	"telegram-mood-diary/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ EntryUseCase = (*entryUC)(nil)

// EntryUseCase covers the daily diary record lifecycle.
type EntryUseCase interface {
	// Save validates and upserts the entry; a second save on the same date
	// replaces the first.
	Save(ctx context.Context, e *model.Entry) error
	Get(ctx context.Context, chatID int64, date string) (*model.Entry, error)
	// List returns entries newest first; empty bounds leave the range open.
	List(ctx context.Context, chatID int64, fromDate, toDate string) ([]model.Entry, error)
	Delete(ctx context.Context, chatID int64, date string) error
	Count(ctx context.Context, chatID int64) (int, error)
}

type entryUC struct {
	entries repository.EntryRepository
	cache   SummaryCache
	log     *zerolog.Logger
}

func NewEntryUseCase(entries repository.EntryRepository, cache SummaryCache, logger *zerolog.Logger) *entryUC {
	return &entryUC{entries: entries, cache: cache, log: logger}
}

func (u *entryUC) Save(ctx context.Context, e *model.Entry) error {
	defer logging.TraceDuration(u.log, "EntryUC.Save")()

	if e.Date == "" {
		e.Date = time.Now().UTC().Format("2006-01-02")
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if err := u.entries.Upsert(ctx, repository.NoTX, e); err != nil {
		return err
	}
	u.dropCache(ctx, e.ChatID)
	return nil
}

func (u *entryUC) Get(ctx context.Context, chatID int64, date string) (*model.Entry, error) {
	return u.entries.FindByDate(ctx, repository.NoTX, chatID, date)
}

func (u *entryUC) List(ctx context.Context, chatID int64, fromDate, toDate string) ([]model.Entry, error) {
	return u.entries.Find(ctx, repository.NoTX, chatID, fromDate, toDate)
}

func (u *entryUC) Delete(ctx context.Context, chatID int64, date string) error {
	if err := u.entries.Delete(ctx, repository.NoTX, chatID, date); err != nil {
		return err
	}
	u.dropCache(ctx, chatID)
	return nil
}

func (u *entryUC) Count(ctx context.Context, chatID int64) (int, error) {
	return u.entries.Count(ctx, repository.NoTX, chatID)
}

// dropCache is best-effort; a stale summary is not worth failing a write.
func (u *entryUC) dropCache(ctx context.Context, chatID int64) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Invalidate(ctx, chatID); err != nil {
		u.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to invalidate summary cache")
	}
}
