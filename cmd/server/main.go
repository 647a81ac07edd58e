package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jafarshop/orderhook/internal/api"
	"github.com/jafarshop/orderhook/internal/config"
	"github.com/jafarshop/orderhook/internal/notify"
	"github.com/jafarshop/orderhook/internal/ratelimit"
	"github.com/jafarshop/orderhook/internal/repository/postgres"
	"github.com/jafarshop/orderhook/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Webhook.Secret == "" {
		logger.Warn("WEBHOOK_SECRET is not set; inbound webhooks will not be verified")
	}

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Create repositories and services
	repos := postgres.NewRepositories(db, logger)
	dispatcher := notify.NewDispatcher(cfg.Notify, logger)
	ingestor := service.NewIngestService(repos, dispatcher, logger)

	// Rate limiter tiers; state is per-process, see ratelimit.Limiter
	limiters := &ratelimit.Set{
		Webhook: ratelimit.New(cfg.RateLimit.WebhookWindow, cfg.RateLimit.WebhookMax),
		API:     ratelimit.New(cfg.RateLimit.APIWindow, cfg.RateLimit.APIMax),
		Auth:    ratelimit.New(cfg.RateLimit.AuthWindow, cfg.RateLimit.AuthMax),
	}
	limiters.StartCleanup(5 * time.Minute)
	defer limiters.Stop()

	router := api.NewRouter(cfg, repos, limiters, ingestor, logger)

	logger.Info("Starting webhook ingestion server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.Bool("signature_verification", cfg.Webhook.Secret != ""),
		zap.Bool("notifications", dispatcher.Enabled()),
	)

	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	if cfg.Environment == "production" {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		return zc.Build()
	}

	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
