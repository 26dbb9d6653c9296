package postgres

import (
	"context"
	"errors"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
)

// systemTemplates returns the built-in questionnaires every user sees.
func systemTemplates() []model.SurveyTemplate {
	return []model.SurveyTemplate{
		{
			Name:        "CBT journal",
			Description: "Cognitive-behavioral therapy worksheet for automatic thoughts",
			IsSystem:    true,
			Icon:        "🧠",
			IsActive:    true,
			Questions: []model.SurveyQuestion{
				{Text: "Describe the situation that triggered an emotional reaction", Type: model.QuestionText, OrderIndex: 1, IsRequired: true},
				{Text: "What automatic thoughts came up?", Type: model.QuestionText, OrderIndex: 2, IsRequired: true},
				{Text: "What emotions did you feel?", Type: model.QuestionText, OrderIndex: 3, IsRequired: true},
				{Text: "Rate the intensity of the emotions (1-10)", Type: model.QuestionScale, OrderIndex: 4, IsRequired: true},
				{Text: "Which cognitive distortion did you notice?", Type: model.QuestionChoice, OrderIndex: 5, IsRequired: true,
					Config: "black-and-white thinking,catastrophizing,personalization,mind reading,should statements,filtering,other"},
				{Text: "Write a more balanced alternative thought", Type: model.QuestionText, OrderIndex: 6, IsRequired: true},
				{Text: "Re-rate the intensity of the emotions now (1-10)", Type: model.QuestionScale, OrderIndex: 7, IsRequired: true},
			},
		},
		{
			Name:        "Gratitude journal",
			Description: "Daily gratitude practice",
			IsSystem:    true,
			Icon:        "🙏",
			IsActive:    true,
			Questions: []model.SurveyQuestion{
				{Text: "What am I grateful for today? (three things)", Type: model.QuestionText, OrderIndex: 1, IsRequired: true},
				{Text: "Who made my day better?", Type: model.QuestionText, OrderIndex: 2, IsRequired: true},
				{Text: "What small pleasure did I enjoy today?", Type: model.QuestionText, OrderIndex: 3, IsRequired: true},
			},
		},
		{
			Name:        "Sleep journal",
			Description: "Sleep quality and patterns",
			IsSystem:    true,
			Icon:        "😴",
			IsActive:    true,
			Questions: []model.SurveyQuestion{
				{Text: "When did you go to bed? (HH:MM)", Type: model.QuestionText, OrderIndex: 1, IsRequired: true},
				{Text: "When did you wake up? (HH:MM)", Type: model.QuestionText, OrderIndex: 2, IsRequired: true},
				{Text: "Sleep quality (1-10)", Type: model.QuestionScale, OrderIndex: 3, IsRequired: true},
				{Text: "Did you have nightmares?", Type: model.QuestionYesNo, OrderIndex: 4, IsRequired: true},
				{Text: "What did you do before bed?", Type: model.QuestionChoice, OrderIndex: 5, IsRequired: true,
					Config: "reading,phone,meditation,tv,talking,other"},
			},
		},
	}
}

// SeedSystemTemplates inserts the built-in templates that are not present
// yet. Safe to run on every startup.
func SeedSystemTemplates(ctx context.Context, repo repository.SurveyRepository) error {
	for _, t := range systemTemplates() {
		// chatID 0 scopes the lookup to system templates only.
		existing, err := repo.FindTemplateByName(ctx, repository.NoTX, 0, t.Name)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			continue
		}
		tpl := t
		if _, err := repo.SaveTemplate(ctx, repository.NoTX, &tpl); err != nil {
			return err
		}
	}
	return nil
}
