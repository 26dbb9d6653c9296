//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
)

func sampleTemplate(name string, system bool, creator int64) *model.SurveyTemplate {
	return &model.SurveyTemplate{
		Name:          name,
		Description:   "integration template",
		IsSystem:      system,
		CreatorChatID: creator,
		IsActive:      true,
		Questions: []model.SurveyQuestion{
			{Text: "How strong?", Type: model.QuestionScale, OrderIndex: 0, IsRequired: true},
			{Text: "Any notes?", Type: model.QuestionText, OrderIndex: 1},
		},
	}
}

func TestSurveyRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewSurveyRepo(testPool, testEnc)
	ctx := context.Background()

	t.Run("should save a template with its questions", func(t *testing.T) {
		cleanup(t)
		seedChat(t, 30)

		tpl := sampleTemplate("Morning check", false, 30)
		id, err := repo.SaveTemplate(ctx, nil, tpl)
		if err != nil {
			t.Fatalf("SaveTemplate: %v", err)
		}
		if tpl.Questions[0].ID == 0 || tpl.Questions[1].ID == 0 {
			t.Fatalf("question IDs not assigned: %+v", tpl.Questions)
		}

		got, err := repo.FindTemplateByID(ctx, nil, id)
		if err != nil {
			t.Fatalf("FindTemplateByID: %v", err)
		}
		if got.Name != "Morning check" || len(got.Questions) != 2 {
			t.Errorf("template mismatch: %+v", got)
		}
		if got.Questions[0].Type != model.QuestionScale || got.Questions[1].Type != model.QuestionText {
			t.Errorf("question order or types wrong: %+v", got.Questions)
		}

		byName, err := repo.FindTemplateByName(ctx, nil, 30, "morning CHECK")
		if err != nil {
			t.Fatalf("FindTemplateByName: %v", err)
		}
		if byName.ID != id {
			t.Errorf("FindTemplateByName returned id %d, want %d", byName.ID, id)
		}
	})

	t.Run("should not match another user's template by name", func(t *testing.T) {
		cleanup(t)
		seedChat(t, 30)
		seedChat(t, 31)

		foreignID, err := repo.SaveTemplate(ctx, nil, sampleTemplate("Shared name", false, 31))
		if err != nil {
			t.Fatalf("SaveTemplate foreign: %v", err)
		}
		if _, err := repo.FindTemplateByName(ctx, nil, 30, "Shared name"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for foreign template, got %v", err)
		}

		ownID, err := repo.SaveTemplate(ctx, nil, sampleTemplate("Shared name", false, 30))
		if err != nil {
			t.Fatalf("SaveTemplate own: %v", err)
		}
		got, err := repo.FindTemplateByName(ctx, nil, 30, "shared NAME")
		if err != nil {
			t.Fatalf("FindTemplateByName: %v", err)
		}
		if got.ID != ownID || got.ID == foreignID {
			t.Errorf("returned id %d, want own template %d", got.ID, ownID)
		}
	})

	t.Run("should list system plus own active templates only", func(t *testing.T) {
		cleanup(t)
		seedChat(t, 30)
		seedChat(t, 31)

		sysID, err := repo.SaveTemplate(ctx, nil, sampleTemplate("Daily mood", true, 0))
		if err != nil {
			t.Fatalf("SaveTemplate system: %v", err)
		}
		if _, err := repo.SaveTemplate(ctx, nil, sampleTemplate("Mine", false, 30)); err != nil {
			t.Fatalf("SaveTemplate own: %v", err)
		}
		if _, err := repo.SaveTemplate(ctx, nil, sampleTemplate("Not mine", false, 31)); err != nil {
			t.Fatalf("SaveTemplate foreign: %v", err)
		}
		hidden := sampleTemplate("Hidden", false, 30)
		hiddenID, err := repo.SaveTemplate(ctx, nil, hidden)
		if err != nil {
			t.Fatalf("SaveTemplate hidden: %v", err)
		}
		if err := repo.SetTemplateActive(ctx, nil, hiddenID, false); err != nil {
			t.Fatalf("SetTemplateActive: %v", err)
		}

		got, err := repo.FindTemplates(ctx, nil, 30)
		if err != nil {
			t.Fatalf("FindTemplates: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected system + own template, got %+v", got)
		}
		if got[0].ID != sysID || got[1].Name != "Mine" {
			t.Errorf("ordering mismatch: %+v", got)
		}
	})

	t.Run("should round-trip encrypted responses and count per day", func(t *testing.T) {
		cleanup(t)
		seedChat(t, 30)

		tplID, err := repo.SaveTemplate(ctx, nil, sampleTemplate("Evening", false, 30))
		if err != nil {
			t.Fatalf("SaveTemplate: %v", err)
		}

		resp := &model.SurveyResponse{
			ChatID:     30,
			TemplateID: tplID,
			Date:       "2026-08-01",
			Time:       "21:00:00",
			Answers:    map[string]string{"1": "7", "2": "calm evening"},
		}
		if _, err := repo.SaveResponse(ctx, nil, resp); err != nil {
			t.Fatalf("SaveResponse: %v", err)
		}

		got, err := repo.FindResponses(ctx, nil, 30, tplID, "", "")
		if err != nil {
			t.Fatalf("FindResponses: %v", err)
		}
		if len(got) != 1 || got[0].Answers["2"] != "calm evening" {
			t.Fatalf("responses mismatch: %+v", got)
		}

		n, err := repo.CountResponsesOn(ctx, nil, 30, tplID, "2026-08-01")
		if err != nil {
			t.Fatalf("CountResponsesOn: %v", err)
		}
		if n != 1 {
			t.Errorf("CountResponsesOn = %d, want 1", n)
		}
		n, err = repo.CountResponsesOn(ctx, nil, 30, tplID, "2026-08-02")
		if err != nil {
			t.Fatalf("CountResponsesOn: %v", err)
		}
		if n != 0 {
			t.Errorf("CountResponsesOn other day = %d, want 0", n)
		}
	})

	t.Run("should upsert preferences and surface due reminders", func(t *testing.T) {
		cleanup(t)
		seedChat(t, 30)

		tplID, err := repo.SaveTemplate(ctx, nil, sampleTemplate("Reminders", false, 30))
		if err != nil {
			t.Fatalf("SaveTemplate: %v", err)
		}

		if _, err := repo.FindPreference(ctx, nil, 30, tplID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound before save, got %v", err)
		}

		pref := &model.SurveyPreference{ChatID: 30, TemplateID: tplID, IsFavorite: true, NotificationEnabled: true, NotificationTime: "20:00"}
		if err := repo.SavePreference(ctx, nil, pref); err != nil {
			t.Fatalf("SavePreference: %v", err)
		}
		pref.NotificationTime = "21:15"
		if err := repo.SavePreference(ctx, nil, pref); err != nil {
			t.Fatalf("SavePreference update: %v", err)
		}

		got, err := repo.FindPreference(ctx, nil, 30, tplID)
		if err != nil {
			t.Fatalf("FindPreference: %v", err)
		}
		if !got.IsFavorite || got.NotificationTime != "21:15" {
			t.Errorf("preference mismatch: %+v", got)
		}

		favs, err := repo.FindFavorites(ctx, nil, 30)
		if err != nil {
			t.Fatalf("FindFavorites: %v", err)
		}
		if len(favs) != 1 || favs[0].ID != tplID {
			t.Errorf("favorites mismatch: %+v", favs)
		}

		due, err := repo.FindDueReminders(ctx, nil)
		if err != nil {
			t.Fatalf("FindDueReminders: %v", err)
		}
		if len(due) != 1 || due[0].NotificationTime != "21:15" {
			t.Errorf("due reminders mismatch: %+v", due)
		}

		// Deactivating the template drops it from the due list.
		if err := repo.SetTemplateActive(ctx, nil, tplID, false); err != nil {
			t.Fatalf("SetTemplateActive: %v", err)
		}
		due, err = repo.FindDueReminders(ctx, nil)
		if err != nil {
			t.Fatalf("FindDueReminders: %v", err)
		}
		if len(due) != 0 {
			t.Errorf("expected no reminders for inactive template, got %+v", due)
		}
	})

	t.Run("should cascade question and preference rows on delete", func(t *testing.T) {
		cleanup(t)
		seedChat(t, 30)

		tplID, err := repo.SaveTemplate(ctx, nil, sampleTemplate("Doomed", false, 30))
		if err != nil {
			t.Fatalf("SaveTemplate: %v", err)
		}
		if err := repo.SavePreference(ctx, nil, &model.SurveyPreference{ChatID: 30, TemplateID: tplID}); err != nil {
			t.Fatalf("SavePreference: %v", err)
		}

		if err := repo.DeleteTemplate(ctx, nil, tplID); err != nil {
			t.Fatalf("DeleteTemplate: %v", err)
		}
		var n int
		if err := testPool.QueryRow(ctx, `SELECT COUNT(*) FROM survey_questions WHERE template_id=$1`, tplID).Scan(&n); err != nil {
			t.Fatalf("count questions: %v", err)
		}
		if n != 0 {
			t.Errorf("questions not cascaded: %d left", n)
		}
		if err := repo.DeleteTemplate(ctx, nil, tplID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("second delete: expected ErrNotFound, got %v", err)
		}
	})
}
