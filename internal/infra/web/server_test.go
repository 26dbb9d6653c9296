//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-mood-diary/internal/domain/model"
	"telegram-mood-diary/internal/usecase"
)

type stubUserUC struct{ users, inactive int }

func (s *stubUserUC) RegisterOrFetch(ctx context.Context, chatID int64, username, firstName string) (*model.User, error) {
	return nil, nil
}
func (s *stubUserUC) GetByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	return nil, nil
}
func (s *stubUserUC) SetReminder(ctx context.Context, chatID int64, clock string) error { return nil }
func (s *stubUserUC) DisableReminder(ctx context.Context, chatID int64) error           { return nil }
func (s *stubUserUC) SetTimezone(ctx context.Context, chatID int64, offset int) error   { return nil }
func (s *stubUserUC) Count(ctx context.Context) (int, error)                            { return s.users, nil }
func (s *stubUserUC) CountInactiveSince(ctx context.Context, since time.Time) (int, error) {
	return s.inactive, nil
}

type stubStatsUC struct{ summary usecase.EntrySummary }

func (s *stubStatsUC) EntrySummary(ctx context.Context, chatID int64, fromDate, toDate string) (*usecase.EntrySummary, error) {
	return &s.summary, nil
}
func (s *stubStatsUC) ImpressionAnalytics(ctx context.Context, chatID int64, periodDays int) (*usecase.ImpressionAnalytics, error) {
	return nil, nil
}
func (s *stubStatsUC) CombinedDaily(ctx context.Context, chatID int64, days int) ([]usecase.CombinedDay, error) {
	return nil, nil
}

func newTestServer() (*Server, *AuthManager) {
	log := zerolog.Nop()
	auth := NewAuthManager("test-secret-test-secret-test-sec", time.Hour)
	srv := NewServer(
		&stubUserUC{users: 12, inactive: 3},
		&stubStatsUC{summary: usecase.EntrySummary{Count: 4, Averages: map[string]float64{"mood": 6.5}}},
		auth,
		&log,
	)
	return srv, auth
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestServer_AuthRequired(t *testing.T) {
	srv, auth := newTestServer()
	router := srv.Router()

	t.Run("missing token rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("minted token accepted", func(t *testing.T) {
		tok, err := auth.Mint()
		if err != nil {
			t.Fatalf("Mint failed: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body map[string]int
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["users"] != 12 || body["inactive_30d"] != 3 {
			t.Errorf("body = %v", body)
		}
	})
}

func TestServer_ChatSummary(t *testing.T) {
	srv, auth := newTestServer()
	router := srv.Router()
	tok, _ := auth.Mint()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/100/summary", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var sum usecase.EntrySummary
	if err := json.NewDecoder(rec.Body).Decode(&sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Count != 4 || sum.Averages["mood"] != 6.5 {
		t.Errorf("summary = %+v", sum)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/chats/abc/summary", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad chat id status = %d, want 400", rec.Code)
	}
}
