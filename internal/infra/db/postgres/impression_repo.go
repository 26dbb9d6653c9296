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
	"telegram-mood-diary/internal/infra/security"
)

var _ repository.ImpressionRepository = (*ImpressionRepo)(nil)

// ImpressionRepo stores impressions with the text encrypted; category,
// intensity and dates stay plaintext so filters and analytics run in SQL.
type ImpressionRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService
}

func NewImpressionRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *ImpressionRepo {
	return &ImpressionRepo{pool: pool, enc: enc}
}

func (r *ImpressionRepo) Save(ctx context.Context, tx repository.Tx, imp *model.Impression) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	ct, err := r.enc.Encrypt(imp.Text)
	if err != nil {
		metrics.IncCryptoFailure("encrypt")
		return 0, err
	}
	start := time.Now()
	const q = `
INSERT INTO impressions (chat_id, encrypted_text, impression_date, impression_time, category, intensity, entry_date)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id;`
	var id int64
	err = ex.QueryRow(ctx, q, imp.ChatID, ct, imp.Date, imp.Time, string(imp.Category), imp.Intensity, imp.EntryDate).Scan(&id)
	metrics.ObserveDBQuery("impression", "save", float64(time.Since(start).Milliseconds()))
	if err != nil {
		return 0, fmt.Errorf("insert impression: %w", err)
	}
	imp.ID = id
	return id, nil
}

func (r *ImpressionRepo) scanRows(rows pgx.Rows) ([]model.Impression, error) {
	defer rows.Close()
	var out []model.Impression
	for rows.Next() {
		var (
			imp model.Impression
			ct  string
			cat string
		)
		if err := rows.Scan(&imp.ID, &imp.ChatID, &ct, &imp.Date, &imp.Time, &cat, &imp.Intensity, &imp.EntryDate, &imp.CreatedAt); err != nil {
			return nil, err
		}
		text, err := r.enc.Decrypt(ct)
		if err != nil {
			metrics.IncCryptoFailure("decrypt")
			return nil, fmt.Errorf("%w: impression %d", domain.ErrDecryptFailed, imp.ID)
		}
		imp.Text = text
		imp.Category = model.ImpressionCategory(cat)
		out = append(out, imp)
	}
	return out, rows.Err()
}

const impressionCols = `id, chat_id, encrypted_text, impression_date, impression_time, category, intensity, entry_date, created_at`

func (r *ImpressionRepo) Find(ctx context.Context, tx repository.Tx, chatID int64, f repository.ImpressionFilter) ([]model.Impression, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + impressionCols + ` FROM impressions WHERE chat_id=$1`
	args := []interface{}{chatID}
	if f.Date != "" {
		args = append(args, f.Date)
		q += fmt.Sprintf(" AND impression_date = $%d", len(args))
	}
	if f.FromDate != "" {
		args = append(args, f.FromDate)
		q += fmt.Sprintf(" AND impression_date >= $%d", len(args))
	}
	if f.ToDate != "" {
		args = append(args, f.ToDate)
		q += fmt.Sprintf(" AND impression_date <= $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, string(f.Category))
		q += fmt.Sprintf(" AND category = $%d", len(args))
	}
	q += ` ORDER BY impression_date DESC, impression_time DESC;`

	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query impressions: %w", err)
	}
	out, err := r.scanRows(rows)
	if err != nil {
		return nil, err
	}
	if f.WithTags {
		for i := range out {
			tags, err := r.tagsFor(ctx, ex, out[i].ID)
			if err != nil {
				return nil, err
			}
			out[i].Tags = tags
		}
	}
	return out, nil
}

func (r *ImpressionRepo) FindByID(ctx context.Context, tx repository.Tx, chatID, id int64) (*model.Impression, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT `+impressionCols+` FROM impressions WHERE id=$1 AND chat_id=$2;`, id, chatID)
	if err != nil {
		return nil, err
	}
	out, err := r.scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	imp := out[0]
	imp.Tags, err = r.tagsFor(ctx, ex, imp.ID)
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

func (r *ImpressionRepo) Delete(ctx context.Context, tx repository.Tx, chatID, id int64) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	// Only the owner may delete.
	tag, err := ex.Exec(ctx, `DELETE FROM impressions WHERE id=$1 AND chat_id=$2;`, id, chatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ImpressionRepo) SetEntryDate(ctx context.Context, tx repository.Tx, chatID, id int64, entryDate string) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE impressions SET entry_date=$1 WHERE id=$2 AND chat_id=$3;`, entryDate, id, chatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ImpressionRepo) UpsertTag(ctx context.Context, tx repository.Tx, chatID int64, name, color string) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	name = model.NormalizeTagName(name)
	if name == "" {
		return 0, domain.ErrInvalidArgument
	}

	var id int64
	err = ex.QueryRow(ctx, `SELECT id FROM impression_tags WHERE chat_id=$1 AND tag_name=$2;`, chatID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	err = ex.QueryRow(ctx, `INSERT INTO impression_tags (chat_id, tag_name, tag_color) VALUES ($1,$2,$3) RETURNING id;`, chatID, name, color).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			// lost a race with a concurrent insert; read it back
			if err2 := ex.QueryRow(ctx, `SELECT id FROM impression_tags WHERE chat_id=$1 AND tag_name=$2;`, chatID, name).Scan(&id); err2 == nil {
				return id, nil
			}
		}
		return 0, fmt.Errorf("insert tag: %w", err)
	}
	return id, nil
}

func (r *ImpressionRepo) AttachTags(ctx context.Context, tx repository.Tx, impressionID int64, tagIDs []int64) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		_, err := ex.Exec(ctx, `
INSERT INTO impression_tag_relations (impression_id, tag_id)
VALUES ($1,$2) ON CONFLICT DO NOTHING;`, impressionID, tagID)
		if err != nil {
			return fmt.Errorf("attach tag %d: %w", tagID, err)
		}
	}
	return nil
}

func (r *ImpressionRepo) FindTags(ctx context.Context, tx repository.Tx, chatID int64) ([]model.Tag, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT id, chat_id, tag_name, tag_color FROM impression_tags WHERE chat_id=$1 ORDER BY tag_name;`, chatID)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()
	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.ChatID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ImpressionRepo) tagsFor(ctx context.Context, ex executor, impressionID int64) ([]model.Tag, error) {
	rows, err := ex.Query(ctx, `
SELECT t.id, t.chat_id, t.tag_name, t.tag_color
  FROM impression_tags t
  JOIN impression_tag_relations rel ON t.id = rel.tag_id
 WHERE rel.impression_id = $1
 ORDER BY t.tag_name;`, impressionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.ChatID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
