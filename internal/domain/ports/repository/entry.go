package repository

import (
	"context"

	"telegram-mood-diary/internal/domain/model"
)

// EntryRepository persists diary entries, one per chat per date. The scored
// payload is encrypted at rest by the implementation; only the date column
// stays plaintext so range queries work without decrypting.
type EntryRepository interface {
	// Upsert replaces any existing entry for the same (chat, date).
	Upsert(ctx context.Context, tx Tx, e *model.Entry) error
	// Find returns entries for the chat, newest date first. Either bound may
	// be empty to leave the range open.
	Find(ctx context.Context, tx Tx, chatID int64, fromDate, toDate string) ([]model.Entry, error)
	FindByDate(ctx context.Context, tx Tx, chatID int64, date string) (*model.Entry, error)
	Delete(ctx context.Context, tx Tx, chatID int64, date string) error
	Count(ctx context.Context, tx Tx, chatID int64) (int, error)
}
