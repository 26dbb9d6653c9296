package repository

import (
	"context"

	"telegram-mood-diary/internal/domain/model"
)

// ImpressionFilter narrows impression listings. Zero values mean "no filter".
type ImpressionFilter struct {
	Date     string // exact YYYY-MM-DD
	FromDate string
	ToDate   string
	Category model.ImpressionCategory
	WithTags bool
}

// ImpressionRepository persists impressions and their tags.
type ImpressionRepository interface {
	Save(ctx context.Context, tx Tx, imp *model.Impression) (int64, error)
	Find(ctx context.Context, tx Tx, chatID int64, f ImpressionFilter) ([]model.Impression, error)
	FindByID(ctx context.Context, tx Tx, chatID, id int64) (*model.Impression, error)
	// Delete returns domain.ErrNotFound when the impression does not exist or
	// belongs to another chat.
	Delete(ctx context.Context, tx Tx, chatID, id int64) error
	SetEntryDate(ctx context.Context, tx Tx, chatID, id int64, entryDate string) error

	// UpsertTag creates the tag or returns the existing one's ID. Names are
	// stored normalized.
	UpsertTag(ctx context.Context, tx Tx, chatID int64, name, color string) (int64, error)
	AttachTags(ctx context.Context, tx Tx, impressionID int64, tagIDs []int64) error
	FindTags(ctx context.Context, tx Tx, chatID int64) ([]model.Tag, error)
}
