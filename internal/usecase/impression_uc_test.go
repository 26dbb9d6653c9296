//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/domain/ports/repository"
)

func newImpressionUC(entries *memEntryRepo) (*impressionUC, *memImpressionRepo) {
	repo := newMemImpressionRepo()
	if entries == nil {
		entries = newMemEntryRepo()
	}
	return NewImpressionUseCase(repo, entries, noopTM{}, newMemCache(), testLogger()), repo
}

func TestImpressionUseCase_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("saves text with defaulted date and time", func(t *testing.T) {
		uc, repo := newImpressionUC(nil)
		id, err := uc.Add(ctx, &model.Impression{ChatID: 100, Text: "craving sugar"}, nil)
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		got, err := repo.FindByID(ctx, nil, 100, id)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.Date == "" || got.Time == "" {
			t.Errorf("date/time not defaulted: %+v", got)
		}
	})

	t.Run("normalizes and deduplicates tags", func(t *testing.T) {
		uc, repo := newImpressionUC(nil)
		id, err := uc.Add(ctx, &model.Impression{ChatID: 100, Text: "tense"}, []string{" Work ", "work", "", "sleep"})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		got, _ := repo.FindByID(ctx, nil, 100, id)
		names := map[string]bool{}
		for _, tg := range got.Tags {
			names[tg.Name] = true
		}
		if !names["work"] || !names["sleep"] {
			t.Errorf("tags = %+v", got.Tags)
		}
		tags, _ := uc.Tags(ctx, 100)
		if len(tags) != 2 {
			t.Errorf("tag catalog = %+v, want work and sleep once each", tags)
		}
	})

	t.Run("rejects empty text and bad intensity", func(t *testing.T) {
		uc, _ := newImpressionUC(nil)
		if _, err := uc.Add(ctx, &model.Impression{ChatID: 100, Text: "  "}, nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("empty text: got %v", err)
		}
		if _, err := uc.Add(ctx, &model.Impression{ChatID: 100, Text: "x", Intensity: 42}, nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("bad intensity: got %v", err)
		}
	})
}

func TestImpressionUseCase_List(t *testing.T) {
	ctx := context.Background()
	uc, _ := newImpressionUC(nil)

	seed := []model.Impression{
		{ChatID: 100, Text: "a", Date: "2026-08-01", Time: "08:00:00", Category: model.CategoryEmotion},
		{ChatID: 100, Text: "b", Date: "2026-08-02", Time: "20:00:00", Category: model.CategoryCraving},
		{ChatID: 200, Text: "other chat", Date: "2026-08-01", Time: "09:00:00"},
	}
	for i := range seed {
		if _, err := uc.Add(ctx, &seed[i], nil); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := uc.List(ctx, 100, repository.ImpressionFilter{Category: model.CategoryCraving})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "b" {
		t.Errorf("category filter: %+v", got)
	}

	got, _ = uc.List(ctx, 100, repository.ImpressionFilter{})
	if len(got) != 2 {
		t.Errorf("chat isolation broken: %+v", got)
	}
}

func TestImpressionUseCase_LinkToEntry(t *testing.T) {
	ctx := context.Background()
	entries := newMemEntryRepo()
	uc, repo := newImpressionUC(entries)

	if err := entries.Upsert(ctx, nil, validEntry(100, "2026-08-01")); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	id, err := uc.Add(ctx, &model.Impression{ChatID: 100, Text: "linked"}, nil)
	if err != nil {
		t.Fatalf("seed impression: %v", err)
	}

	t.Run("links when the entry exists", func(t *testing.T) {
		if err := uc.LinkToEntry(ctx, 100, id, "2026-08-01"); err != nil {
			t.Fatalf("LinkToEntry failed: %v", err)
		}
		got, _ := repo.FindByID(ctx, nil, 100, id)
		if got.EntryDate != "2026-08-01" {
			t.Errorf("entry date = %q", got.EntryDate)
		}
	})

	t.Run("fails when the entry is missing", func(t *testing.T) {
		if err := uc.LinkToEntry(ctx, 100, id, "2026-08-09"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		if err := uc.LinkToEntry(ctx, 100, id, "yesterday"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("unlink clears the reference", func(t *testing.T) {
		if err := uc.Unlink(ctx, 100, id); err != nil {
			t.Fatalf("Unlink failed: %v", err)
		}
		got, _ := repo.FindByID(ctx, nil, 100, id)
		if got.EntryDate != "" {
			t.Errorf("entry date = %q, want empty", got.EntryDate)
		}
	})

	t.Run("unlink of a missing impression reports not found", func(t *testing.T) {
		if err := uc.Unlink(ctx, 100, id+999); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestImpressionUseCase_Delete(t *testing.T) {
	ctx := context.Background()
	uc, _ := newImpressionUC(nil)

	id, err := uc.Add(ctx, &model.Impression{ChatID: 100, Text: "gone soon"}, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := uc.Delete(ctx, 200, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("cross-chat delete: expected ErrNotFound, got %v", err)
	}
	if err := uc.Delete(ctx, 100, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := uc.Get(ctx, 100, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
