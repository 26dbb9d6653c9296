package usecase

import (
	"context"
	"time"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
	"telegram-mood-diary/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ImpressionUseCase = (*impressionUC)(nil)

// ImpressionUseCase records and queries timestamped observations and their
// tags.
type ImpressionUseCase interface {
	// Add saves the impression and attaches the named tags, creating any
	// that do not exist yet. Tag names are normalized before storage.
	Add(ctx context.Context, imp *model.Impression, tagNames []string) (int64, error)
	Get(ctx context.Context, chatID, id int64) (*model.Impression, error)
	List(ctx context.Context, chatID int64, f repository.ImpressionFilter) ([]model.Impression, error)
	Delete(ctx context.Context, chatID, id int64) error
	// LinkToEntry ties an impression to the diary entry of the given date.
	// Fails with ErrNotFound when either side is missing.
	LinkToEntry(ctx context.Context, chatID, id int64, entryDate string) error
	// Unlink clears the impression's diary entry reference.
	Unlink(ctx context.Context, chatID, id int64) error
	Tags(ctx context.Context, chatID int64) ([]model.Tag, error)
}

type impressionUC struct {
	impressions repository.ImpressionRepository
	entries     repository.EntryRepository
	tm          repository.TransactionManager
	cache       SummaryCache
	log         *zerolog.Logger
}

func NewImpressionUseCase(
	impressions repository.ImpressionRepository,
	entries repository.EntryRepository,
	tm repository.TransactionManager,
	cache SummaryCache,
	logger *zerolog.Logger,
) *impressionUC {
	return &impressionUC{impressions: impressions, entries: entries, tm: tm, cache: cache, log: logger}
}

func (u *impressionUC) Add(ctx context.Context, imp *model.Impression, tagNames []string) (int64, error) {
	defer logging.TraceDuration(u.log, "ImpressionUC.Add")()

	now := time.Now().UTC()
	if imp.Date == "" {
		imp.Date = now.Format("2006-01-02")
	}
	if imp.Time == "" {
		imp.Time = now.Format("15:04:05")
	}
	if err := imp.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		id, err = u.impressions.Save(ctx, tx, imp)
		if err != nil {
			return err
		}
		tagIDs := make([]int64, 0, len(tagNames))
		for _, name := range tagNames {
			name = model.NormalizeTagName(name)
			if name == "" {
				continue
			}
			tagID, err := u.impressions.UpsertTag(ctx, tx, imp.ChatID, name, "")
			if err != nil {
				return err
			}
			tagIDs = append(tagIDs, tagID)
		}
		return u.impressions.AttachTags(ctx, tx, id, tagIDs)
	})
	if err != nil {
		return 0, err
	}
	u.dropCache(ctx, imp.ChatID)
	return id, nil
}

func (u *impressionUC) Get(ctx context.Context, chatID, id int64) (*model.Impression, error) {
	return u.impressions.FindByID(ctx, repository.NoTX, chatID, id)
}

func (u *impressionUC) List(ctx context.Context, chatID int64, f repository.ImpressionFilter) ([]model.Impression, error) {
	return u.impressions.Find(ctx, repository.NoTX, chatID, f)
}

func (u *impressionUC) Delete(ctx context.Context, chatID, id int64) error {
	if err := u.impressions.Delete(ctx, repository.NoTX, chatID, id); err != nil {
		return err
	}
	u.dropCache(ctx, chatID)
	return nil
}

func (u *impressionUC) LinkToEntry(ctx context.Context, chatID, id int64, entryDate string) error {
	if _, err := time.Parse("2006-01-02", entryDate); err != nil {
		return domain.ErrInvalidArgument
	}
	// The target entry must exist; a dangling link would render as a broken
	// reference in summaries.
	if _, err := u.entries.FindByDate(ctx, repository.NoTX, chatID, entryDate); err != nil {
		return err
	}
	return u.impressions.SetEntryDate(ctx, repository.NoTX, chatID, id, entryDate)
}

func (u *impressionUC) Unlink(ctx context.Context, chatID, id int64) error {
	return u.impressions.SetEntryDate(ctx, repository.NoTX, chatID, id, "")
}

func (u *impressionUC) Tags(ctx context.Context, chatID int64) ([]model.Tag, error) {
	return u.impressions.FindTags(ctx, repository.NoTX, chatID)
}

func (u *impressionUC) dropCache(ctx context.Context, chatID int64) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Invalidate(ctx, chatID); err != nil {
		u.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to invalidate summary cache")
	}
}
