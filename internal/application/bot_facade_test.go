//go:build !integration

package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"telegram-mood-diary/internal/domain"
	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/usecase"
)

// fakeUserUC implements usecase.UserUseCase with function fields so each
// test overrides only what it needs.
type fakeUserUC struct {
	registerFn    func(ctx context.Context, chatID int64, username, firstName string) (*model.User, error)
	setReminderFn func(ctx context.Context, chatID int64, clock string) error
	setTimezoneFn func(ctx context.Context, chatID int64, offset int) error
}

func (f *fakeUserUC) RegisterOrFetch(ctx context.Context, chatID int64, username, firstName string) (*model.User, error) {
	return f.registerFn(ctx, chatID, username, firstName)
}
func (f *fakeUserUC) GetByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeUserUC) SetReminder(ctx context.Context, chatID int64, clock string) error {
	return f.setReminderFn(ctx, chatID, clock)
}
func (f *fakeUserUC) DisableReminder(ctx context.Context, chatID int64) error { return nil }
func (f *fakeUserUC) SetTimezone(ctx context.Context, chatID int64, offset int) error {
	return f.setTimezoneFn(ctx, chatID, offset)
}
func (f *fakeUserUC) Count(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeUserUC) CountInactiveSince(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}

type fakeStatsUC struct {
	summary *usecase.EntrySummary
}

func (f *fakeStatsUC) EntrySummary(ctx context.Context, chatID int64, fromDate, toDate string) (*usecase.EntrySummary, error) {
	return f.summary, nil
}
func (f *fakeStatsUC) ImpressionAnalytics(ctx context.Context, chatID int64, periodDays int) (*usecase.ImpressionAnalytics, error) {
	return &usecase.ImpressionAnalytics{}, nil
}
func (f *fakeStatsUC) CombinedDaily(ctx context.Context, chatID int64, days int) ([]usecase.CombinedDay, error) {
	return nil, nil
}

func TestBotFacade_HandleStart(t *testing.T) {
	ctx := context.Background()
	users := &fakeUserUC{
		registerFn: func(ctx context.Context, chatID int64, username, firstName string) (*model.User, error) {
			return &model.User{ID: "u-1", ChatID: chatID, Username: username, FirstName: firstName}, nil
		},
	}
	facade := NewBotFacade(users, nil, nil, nil, nil, nil)

	msg, err := facade.HandleStart(ctx, 100, "alice", "Alice")
	if err != nil {
		t.Fatalf("HandleStart failed: %v", err)
	}
	if !strings.Contains(msg, "Alice") {
		t.Errorf("greeting lacks first name: %q", msg)
	}
	if !strings.Contains(msg, "/entry") {
		t.Errorf("greeting lacks onboarding hint: %q", msg)
	}
}

func TestBotFacade_HandleStats(t *testing.T) {
	ctx := context.Background()

	t.Run("empty history points at /entry", func(t *testing.T) {
		facade := NewBotFacade(nil, nil, nil, nil, &fakeStatsUC{summary: &usecase.EntrySummary{}}, nil)
		msg, err := facade.HandleStats(ctx, 100)
		if err != nil {
			t.Fatalf("HandleStats failed: %v", err)
		}
		if !strings.Contains(msg, "/entry") {
			t.Errorf("unexpected message: %q", msg)
		}
	})

	t.Run("renders every metric", func(t *testing.T) {
		sum := &usecase.EntrySummary{Count: 3, FirstDate: "2026-08-01", LastDate: "2026-08-03", Averages: map[string]float64{}}
		for _, m := range model.EntryMetrics {
			sum.Averages[m] = 5.0
		}
		facade := NewBotFacade(nil, nil, nil, nil, &fakeStatsUC{summary: sum}, nil)
		msg, err := facade.HandleStats(ctx, 100)
		if err != nil {
			t.Fatalf("HandleStats failed: %v", err)
		}
		for _, m := range model.EntryMetrics {
			if !strings.Contains(msg, m) {
				t.Errorf("metric %q missing from %q", m, msg)
			}
		}
	})
}

func TestBotFacade_HandleNotify(t *testing.T) {
	ctx := context.Background()
	users := &fakeUserUC{
		setReminderFn: func(ctx context.Context, chatID int64, clock string) error {
			if clock != "21:30" {
				return domain.ErrInvalidArgument
			}
			return nil
		},
	}
	facade := NewBotFacade(users, nil, nil, nil, nil, nil)

	msg, err := facade.HandleNotify(ctx, 100, "21:30")
	if err != nil || !strings.Contains(msg, "21:30") {
		t.Errorf("HandleNotify = (%q, %v)", msg, err)
	}
	msg, err = facade.HandleNotify(ctx, 100, "later")
	if err != nil || !strings.Contains(msg, "Usage") {
		t.Errorf("bad clock should return usage text, got (%q, %v)", msg, err)
	}
}

func TestParseOffset(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"+03:00", 180, false},
		{"-5:30", -330, false},
		{"3", 180, false},
		{"0", 0, false},
		{"+14", 840, false},
		{"half past", 0, true},
		{"", 0, true},
		{"+3:99", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseOffset(tc.in)
		if tc.wantErr != (err != nil) || got != tc.want {
			t.Errorf("ParseOffset(%q) = (%d, %v), want (%d, err=%v)", tc.in, got, err, tc.want, tc.wantErr)
		}
	}
}

func TestFormatOffset(t *testing.T) {
	if got := FormatOffset(180); got != "+03:00" {
		t.Errorf("FormatOffset(180) = %q", got)
	}
	if got := FormatOffset(-330); got != "-05:30" {
		t.Errorf("FormatOffset(-330) = %q", got)
	}
}
