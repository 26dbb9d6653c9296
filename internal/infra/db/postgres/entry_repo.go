package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
	"telegram-mood-diary/internal/infra/metrics"
	"telegram-mood-diary/internal/infra/security"
)

var _ repository.EntryRepository = (*EntryRepo)(nil)

// EntryRepo stores diary entries with the scored payload encrypted. The
// date column stays plaintext so range filters run in SQL.
type EntryRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService
}

func NewEntryRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *EntryRepo {
	return &EntryRepo{pool: pool, enc: enc}
}

func (r *EntryRepo) seal(e *model.Entry) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	ct, err := r.enc.Encrypt(string(data))
	if err != nil {
		metrics.IncCryptoFailure("encrypt")
		return "", err
	}
	return ct, nil
}

func (r *EntryRepo) open(chatID int64, date, payload string, createdAt time.Time) (*model.Entry, error) {
	plain, err := r.enc.Decrypt(payload)
	if err != nil {
		metrics.IncCryptoFailure("decrypt")
		return nil, fmt.Errorf("%w: entry %s", domain.ErrDecryptFailed, date)
	}
	var e model.Entry
	if err := json.Unmarshal([]byte(plain), &e); err != nil {
		return nil, err
	}
	e.ChatID = chatID
	e.Date = date
	e.CreatedAt = createdAt
	return &e, nil
}

func (r *EntryRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.Entry) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	payload, err := r.seal(e)
	if err != nil {
		return err
	}
	start := time.Now()
	const q = `
INSERT INTO entries (chat_id, entry_date, encrypted_data)
VALUES ($1,$2,$3)
ON CONFLICT (chat_id, entry_date) DO UPDATE SET encrypted_data=$3, created_at=now();`
	_, err = ex.Exec(ctx, q, e.ChatID, e.Date, payload)
	metrics.ObserveDBQuery("entry", "upsert", float64(time.Since(start).Milliseconds()))
	return err
}

func (r *EntryRepo) Find(ctx context.Context, tx repository.Tx, chatID int64, fromDate, toDate string) ([]model.Entry, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT entry_date, encrypted_data, created_at FROM entries WHERE chat_id=$1`
	args := []interface{}{chatID}
	if fromDate != "" {
		args = append(args, fromDate)
		q += fmt.Sprintf(" AND entry_date >= $%d", len(args))
	}
	if toDate != "" {
		args = append(args, toDate)
		q += fmt.Sprintf(" AND entry_date <= $%d", len(args))
	}
	q += ` ORDER BY entry_date DESC;`

	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []model.Entry
	for rows.Next() {
		var (
			date, payload string
			createdAt     time.Time
		)
		if err := rows.Scan(&date, &payload, &createdAt); err != nil {
			return nil, err
		}
		e, err := r.open(chatID, date, payload, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *EntryRepo) FindByDate(ctx context.Context, tx repository.Tx, chatID int64, date string) (*model.Entry, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var (
		payload   string
		createdAt time.Time
	)
	err = ex.QueryRow(ctx, `SELECT encrypted_data, created_at FROM entries WHERE chat_id=$1 AND entry_date=$2;`, chatID, date).
		Scan(&payload, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.open(chatID, date, payload, createdAt)
}

func (r *EntryRepo) Delete(ctx context.Context, tx repository.Tx, chatID int64, date string) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM entries WHERE chat_id=$1 AND entry_date=$2;`, chatID, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EntryRepo) Count(ctx context.Context, tx repository.Tx, chatID int64) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM entries WHERE chat_id=$1;`, chatID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}
