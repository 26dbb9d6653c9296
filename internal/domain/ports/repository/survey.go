package repository

import (
	"context"

	"telegram-mood-diary/internal/domain/model"
)

// SurveyRepository persists templates, questions, responses, and per-user
// preferences. Response answers are encrypted at rest by the implementation.
type SurveyRepository interface {
	SaveTemplate(ctx context.Context, tx Tx, t *model.SurveyTemplate) (int64, error)
	// FindTemplates returns active system templates plus the chat's own
	// active templates, questions included, system templates first.
	FindTemplates(ctx context.Context, tx Tx, chatID int64) ([]model.SurveyTemplate, error)
	FindTemplateByID(ctx context.Context, tx Tx, id int64) (*model.SurveyTemplate, error)
	// FindTemplateByName matches case-insensitively among templates visible
	// to the chat: system templates and the chat's own.
	FindTemplateByName(ctx context.Context, tx Tx, chatID int64, name string) (*model.SurveyTemplate, error)
	SetTemplateActive(ctx context.Context, tx Tx, id int64, active bool) error
	// DeleteTemplate removes the template, its questions and preferences.
	DeleteTemplate(ctx context.Context, tx Tx, id int64) error

	SaveResponse(ctx context.Context, tx Tx, resp *model.SurveyResponse) (int64, error)
	FindResponses(ctx context.Context, tx Tx, chatID int64, templateID int64, fromDate, toDate string) ([]model.SurveyResponse, error)
	CountResponsesOn(ctx context.Context, tx Tx, chatID, templateID int64, date string) (int, error)

	SavePreference(ctx context.Context, tx Tx, p *model.SurveyPreference) error
	FindPreference(ctx context.Context, tx Tx, chatID, templateID int64) (*model.SurveyPreference, error)
	FindFavorites(ctx context.Context, tx Tx, chatID int64) ([]model.SurveyTemplate, error)
	// FindDueReminders returns (preference, template) pairs whose reminder is
	// enabled, regardless of time; the caller matches clocks and filters out
	// surveys already filled today.
	FindDueReminders(ctx context.Context, tx Tx) ([]model.SurveyPreference, error)
}
