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

var _ repository.SurveyRepository = (*SurveyRepo)(nil)

// SurveyRepo persists templates, questions, responses, and preferences.
// Response answers are encrypted at rest; template metadata is not, since
// templates contain no personal data.
type SurveyRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService
}

func NewSurveyRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *SurveyRepo {
	return &SurveyRepo{pool: pool, enc: enc}
}

func (r *SurveyRepo) SaveTemplate(ctx context.Context, tx repository.Tx, t *model.SurveyTemplate) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	var id int64
	err = ex.QueryRow(ctx, `
INSERT INTO survey_templates (name, description, is_system, creator_chat_id, icon, is_active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id;`,
		t.Name, t.Description, t.IsSystem, t.CreatorChatID, t.Icon, t.IsActive).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert template: %w", err)
	}
	for i := range t.Questions {
		q := &t.Questions[i]
		q.TemplateID = id
		err = ex.QueryRow(ctx, `
INSERT INTO survey_questions (template_id, question_text, question_type, order_index, is_required, config)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id;`,
			id, q.Text, string(q.Type), q.OrderIndex, q.IsRequired, q.Config).Scan(&q.ID)
		if err != nil {
			return 0, fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	metrics.ObserveDBQuery("survey", "save_template", float64(time.Since(start).Milliseconds()))
	t.ID = id
	return id, nil
}

const templateCols = `id, name, description, is_system, creator_chat_id, icon, is_active, created_at`

func (r *SurveyRepo) scanTemplate(row pgx.Row) (*model.SurveyTemplate, error) {
	var t model.SurveyTemplate
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.IsSystem, &t.CreatorChatID, &t.Icon, &t.IsActive, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *SurveyRepo) loadQuestions(ctx context.Context, ex executor, t *model.SurveyTemplate) error {
	rows, err := ex.Query(ctx, `
SELECT id, template_id, question_text, question_type, order_index, is_required, config
  FROM survey_questions WHERE template_id=$1 ORDER BY order_index;`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			q  model.SurveyQuestion
			qt string
		)
		if err := rows.Scan(&q.ID, &q.TemplateID, &q.Text, &qt, &q.OrderIndex, &q.IsRequired, &q.Config); err != nil {
			return err
		}
		q.Type = model.QuestionType(qt)
		t.Questions = append(t.Questions, q)
	}
	return rows.Err()
}

func (r *SurveyRepo) FindTemplates(ctx context.Context, tx repository.Tx, chatID int64) ([]model.SurveyTemplate, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT `+templateCols+` FROM survey_templates
 WHERE is_active AND (is_system OR creator_chat_id=$1)
 ORDER BY is_system DESC, name;`, chatID)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	var out []model.SurveyTemplate
	for rows.Next() {
		var t model.SurveyTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.IsSystem, &t.CreatorChatID, &t.Icon, &t.IsActive, &t.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadQuestions(ctx, ex, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SurveyRepo) FindTemplateByID(ctx context.Context, tx repository.Tx, id int64) (*model.SurveyTemplate, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	t, err := r.scanTemplate(ex.QueryRow(ctx, `SELECT `+templateCols+` FROM survey_templates WHERE id=$1;`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadQuestions(ctx, ex, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SurveyRepo) FindTemplateByName(ctx context.Context, tx repository.Tx, chatID int64, name string) (*model.SurveyTemplate, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	// Scoped to what the chat can see; a foreign user's same-name template
	// must not shadow the chat's own.
	t, err := r.scanTemplate(ex.QueryRow(ctx, `
SELECT `+templateCols+` FROM survey_templates
 WHERE lower(name)=lower($1) AND (is_system OR creator_chat_id=$2)
 ORDER BY is_system DESC LIMIT 1;`, name, chatID))
	if err != nil {
		return nil, err
	}
	if err := r.loadQuestions(ctx, ex, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SurveyRepo) SetTemplateActive(ctx context.Context, tx repository.Tx, id int64, active bool) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE survey_templates SET is_active=$1 WHERE id=$2;`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SurveyRepo) DeleteTemplate(ctx context.Context, tx repository.Tx, id int64) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM survey_templates WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SurveyRepo) SaveResponse(ctx context.Context, tx repository.Tx, resp *model.SurveyResponse) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(resp.Answers)
	if err != nil {
		return 0, err
	}
	ct, err := r.enc.Encrypt(string(data))
	if err != nil {
		metrics.IncCryptoFailure("encrypt")
		return 0, err
	}
	var id int64
	err = ex.QueryRow(ctx, `
INSERT INTO survey_responses (chat_id, template_id, response_date, response_time, encrypted_data)
VALUES ($1,$2,$3,$4,$5) RETURNING id;`,
		resp.ChatID, resp.TemplateID, resp.Date, resp.Time, ct).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert response: %w", err)
	}
	resp.ID = id
	return id, nil
}

func (r *SurveyRepo) FindResponses(ctx context.Context, tx repository.Tx, chatID int64, templateID int64, fromDate, toDate string) ([]model.SurveyResponse, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT id, chat_id, template_id, response_date, response_time, encrypted_data, created_at
  FROM survey_responses WHERE chat_id=$1`
	args := []interface{}{chatID}
	if templateID > 0 {
		args = append(args, templateID)
		q += fmt.Sprintf(" AND template_id=$%d", len(args))
	}
	if fromDate != "" {
		args = append(args, fromDate)
		q += fmt.Sprintf(" AND response_date >= $%d", len(args))
	}
	if toDate != "" {
		args = append(args, toDate)
		q += fmt.Sprintf(" AND response_date <= $%d", len(args))
	}
	q += ` ORDER BY response_date DESC, response_time DESC;`

	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var out []model.SurveyResponse
	for rows.Next() {
		var (
			resp model.SurveyResponse
			ct   string
		)
		if err := rows.Scan(&resp.ID, &resp.ChatID, &resp.TemplateID, &resp.Date, &resp.Time, &ct, &resp.CreatedAt); err != nil {
			return nil, err
		}
		plain, err := r.enc.Decrypt(ct)
		if err != nil {
			metrics.IncCryptoFailure("decrypt")
			return nil, fmt.Errorf("%w: response %d", domain.ErrDecryptFailed, resp.ID)
		}
		if err := json.Unmarshal([]byte(plain), &resp.Answers); err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

func (r *SurveyRepo) CountResponsesOn(ctx context.Context, tx repository.Tx, chatID, templateID int64, date string) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	err = ex.QueryRow(ctx, `
SELECT COUNT(*) FROM survey_responses WHERE chat_id=$1 AND template_id=$2 AND response_date=$3;`,
		chatID, templateID, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

func (r *SurveyRepo) SavePreference(ctx context.Context, tx repository.Tx, p *model.SurveyPreference) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
INSERT INTO survey_preferences (chat_id, template_id, is_favorite, notification_enabled, notification_time)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (chat_id, template_id) DO UPDATE SET
  is_favorite=$3, notification_enabled=$4, notification_time=$5;`,
		p.ChatID, p.TemplateID, p.IsFavorite, p.NotificationEnabled, p.NotificationTime)
	return err
}

func (r *SurveyRepo) FindPreference(ctx context.Context, tx repository.Tx, chatID, templateID int64) (*model.SurveyPreference, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var p model.SurveyPreference
	err = ex.QueryRow(ctx, `
SELECT chat_id, template_id, is_favorite, notification_enabled, notification_time
  FROM survey_preferences WHERE chat_id=$1 AND template_id=$2;`, chatID, templateID).
		Scan(&p.ChatID, &p.TemplateID, &p.IsFavorite, &p.NotificationEnabled, &p.NotificationTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *SurveyRepo) FindFavorites(ctx context.Context, tx repository.Tx, chatID int64) ([]model.SurveyTemplate, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT t.id, t.name, t.description, t.is_system, t.creator_chat_id, t.icon, t.is_active, t.created_at
  FROM survey_templates t
  JOIN survey_preferences p ON p.template_id = t.id
 WHERE p.chat_id=$1 AND p.is_favorite AND t.is_active
 ORDER BY t.name;`, chatID)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()
	var out []model.SurveyTemplate
	for rows.Next() {
		var t model.SurveyTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.IsSystem, &t.CreatorChatID, &t.Icon, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SurveyRepo) FindDueReminders(ctx context.Context, tx repository.Tx) ([]model.SurveyPreference, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT p.chat_id, p.template_id, p.is_favorite, p.notification_enabled, p.notification_time
  FROM survey_preferences p
  JOIN survey_templates t ON t.id = p.template_id
 WHERE p.notification_enabled AND t.is_active;`)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()
	var out []model.SurveyPreference
	for rows.Next() {
		var p model.SurveyPreference
		if err := rows.Scan(&p.ChatID, &p.TemplateID, &p.IsFavorite, &p.NotificationEnabled, &p.NotificationTime); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
