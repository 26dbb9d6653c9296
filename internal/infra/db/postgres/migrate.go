package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Migrate applies the schema idempotently at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			chat_id BIGINT NOT NULL UNIQUE,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			notification_time TEXT,
			tz_offset_minutes INT NOT NULL DEFAULT 0,
			registered_at TIMESTAMPTZ NOT NULL,
			last_active_at TIMESTAMPTZ NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS entries (
			chat_id BIGINT NOT NULL REFERENCES users(chat_id),
			entry_date TEXT NOT NULL,
			encrypted_data TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (chat_id, entry_date)
		);`,

		`CREATE TABLE IF NOT EXISTS impressions (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL REFERENCES users(chat_id),
			encrypted_text TEXT NOT NULL,
			impression_date TEXT NOT NULL,
			impression_time TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			intensity INT NOT NULL DEFAULT 0,
			entry_date TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_impressions_chat_date
			ON impressions(chat_id, impression_date);`,
		`CREATE INDEX IF NOT EXISTS idx_impressions_category
			ON impressions(category);`,

		`CREATE TABLE IF NOT EXISTS impression_tags (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL REFERENCES users(chat_id),
			tag_name TEXT NOT NULL,
			tag_color TEXT NOT NULL DEFAULT '',
			UNIQUE (chat_id, tag_name)
		);`,
		`CREATE TABLE IF NOT EXISTS impression_tag_relations (
			impression_id BIGINT NOT NULL REFERENCES impressions(id) ON DELETE CASCADE,
			tag_id BIGINT NOT NULL REFERENCES impression_tags(id) ON DELETE CASCADE,
			PRIMARY KEY (impression_id, tag_id)
		);`,

		`CREATE TABLE IF NOT EXISTS survey_templates (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_system BOOLEAN NOT NULL DEFAULT FALSE,
			creator_chat_id BIGINT NOT NULL DEFAULT 0,
			icon TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS survey_questions (
			id BIGSERIAL PRIMARY KEY,
			template_id BIGINT NOT NULL REFERENCES survey_templates(id) ON DELETE CASCADE,
			question_text TEXT NOT NULL,
			question_type TEXT NOT NULL,
			order_index INT NOT NULL,
			is_required BOOLEAN NOT NULL DEFAULT TRUE,
			config TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS survey_responses (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL REFERENCES users(chat_id),
			template_id BIGINT NOT NULL REFERENCES survey_templates(id),
			response_date TEXT NOT NULL,
			response_time TEXT NOT NULL,
			encrypted_data TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_survey_responses_chat_date
			ON survey_responses(chat_id, response_date);`,

		`CREATE TABLE IF NOT EXISTS survey_preferences (
			chat_id BIGINT NOT NULL REFERENCES users(chat_id),
			template_id BIGINT NOT NULL REFERENCES survey_templates(id) ON DELETE CASCADE,
			is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
			notification_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			notification_time TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (chat_id, template_id)
		);`,
	}

	for i, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
