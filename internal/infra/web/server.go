package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-mood-diary/internal/usecase"
)

// Server exposes health, Prometheus metrics, and a small authenticated
// admin API for operational queries.
type Server struct {
	userUC  usecase.UserUseCase
	statsUC usecase.StatsUseCase
	auth    *AuthManager
	log     *zerolog.Logger
}

func NewServer(userUC usecase.UserUseCase, statsUC usecase.StatsUseCase, auth *AuthManager, logger *zerolog.Logger) *Server {
	return &Server{userUC: userUC, statsUC: statsUC, auth: auth, log: logger}
}

// Router builds the chi mux. Health and metrics are open; /api/v1 requires
// an admin bearer token.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/stats", s.handleStats)
		r.Get("/chats/{chatID}/summary", s.handleChatSummary)
	})

	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := s.userUC.Count(ctx)
	if err != nil {
		s.fail(w, err)
		return
	}
	inactive, err := s.userUC.CountInactiveSince(ctx, time.Now().AddDate(0, 0, -30))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, map[string]int{
		"users":        total,
		"inactive_30d": inactive,
	})
}

func (s *Server) handleChatSummary(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		http.Error(w, "bad chat id", http.StatusBadRequest)
		return
	}
	sum, err := s.statsUC.EntrySummary(r.Context(), chatID, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, sum)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("admin api request failed")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
