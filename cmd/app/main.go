package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-mood-diary/internal/application"
	"telegram-mood-diary/internal/config"
	"telegram-mood-diary/internal/conversation"
	pg "telegram-mood-diary/internal/infra/db/postgres"
	"telegram-mood-diary/internal/infra/logging"
	"telegram-mood-diary/internal/infra/metrics"
	red "telegram-mood-diary/internal/infra/redis"
	"telegram-mood-diary/internal/infra/sched"
	"telegram-mood-diary/internal/infra/security"
	tele "telegram-mood-diary/internal/infra/telegram"
	"telegram-mood-diary/internal/infra/web"
	"telegram-mood-diary/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed checks)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	rateLimiter := red.NewRateLimiter(redisClient)
	statsCache := red.NewStatsCache(redisClient, cfg.Redis.TTL)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		if !cfg.Runtime.Dev {
			logger.Fatal().Msg("security.encryption_key must be 32 bytes")
		}
		logger.Warn().Msg("encryption key not set; using dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption init failed")
	}

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	entryRepo := pg.NewEntryRepo(pool, encSvc)
	impressionRepo := pg.NewImpressionRepo(pool, encSvc)
	surveyRepo := pg.NewSurveyRepo(pool, encSvc)
	txManager := pg.NewTxManager(pool)

	if err := pg.SeedSystemTemplates(ctx, surveyRepo); err != nil {
		logger.Fatal().Err(err).Msg("seeding system templates failed")
	}

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, txManager, logger)
	entryUC := usecase.NewEntryUseCase(entryRepo, statsCache, logger)
	impressionUC := usecase.NewImpressionUseCase(impressionRepo, entryRepo, txManager, statsCache, logger)
	surveyUC := usecase.NewSurveyUseCase(surveyRepo, userRepo, txManager, statsCache, logger)
	statsUC := usecase.NewStatsUseCase(entryRepo, impressionRepo, surveyRepo, statsCache, logger)
	exportUC := usecase.NewExportUseCase(entryRepo, impressionRepo, surveyRepo, logger)

	// ---- Facade + flows ----
	facade := application.NewBotFacade(userUC, entryUC, impressionUC, surveyUC, statsUC, exportUC)
	registry := conversation.NewRegistry()
	flows := tele.NewFlowRouter(registry, entryUC, impressionUC, surveyUC, logger)

	// ---- Telegram ----
	botAdapter, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, facade, flows, rateLimiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram init failed")
	}
	if strings.ToLower(cfg.Bot.Mode) != "polling" && cfg.Bot.Mode != "" {
		logger.Warn().Str("mode", cfg.Bot.Mode).Msg("unsupported bot mode; falling back to polling")
	}
	go func() {
		if err := botAdapter.StartPolling(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Reminder worker ----
	notifUC := usecase.NewNotificationUseCase(userRepo, entryRepo, surveyRepo, botAdapter, logger)
	worker := sched.NewReminderWorker(cfg.Scheduler.ReminderInterval, notifUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Admin HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, 24*time.Hour)
	adminSrv := web.NewServer(userUC, statsUC, auth, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: adminSrv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("admin http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin http shutdown failed")
	}
	botAdapter.StopPolling()
}
