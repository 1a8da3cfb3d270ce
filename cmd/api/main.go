package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/config"
	"github.com/pageza/datemeal/backend/internal/api"
	"github.com/pageza/datemeal/backend/internal/database"
	"github.com/pageza/datemeal/backend/internal/logging"
	"github.com/pageza/datemeal/backend/internal/server"
	"github.com/pageza/datemeal/backend/internal/service"
)

func main() {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	logger, err := logging.New(config.GetEnvironment())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(logger *zap.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := server.Dependencies{HealthChecks: map[string]api.HealthChecker{}}
	opts := service.PipelineOptions{}

	if cfg.DatabaseConfigured() {
		db, err := database.New(ctx, cfg, logger)
		if err != nil {
			logger.Warn("database unavailable, history disabled", zap.Error(err))
		} else {
			defer func() { _ = db.Close() }()
			if err := database.RunMigrations(db.Gorm, logger); err != nil {
				return err
			}
			deps.History = service.NewHistoryService(db.Gorm)
			deps.HealthChecks["database"] = db.HealthCheck
		}
	}

	if cfg.RedisConfigured() {
		client, err := database.NewRedisClient(ctx, cfg, logger)
		if err != nil {
			logger.Warn("redis unavailable, rate limiting and shared snapshots disabled", zap.Error(err))
		} else {
			defer func() { _ = client.Close() }()
			deps.Redis = client
			opts.Redis = client
			deps.HealthChecks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	if cfg.S3BucketName != "" {
		s3Config, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			logger.Warn("S3 unavailable, image mirroring disabled", zap.Error(err))
		} else {
			opts.S3 = s3Config
		}
	}

	pipeline, err := service.NewPipeline(cfg, opts, logger)
	if err != nil {
		return err
	}
	deps.Recommendations = pipeline.Recommendations
	deps.Conversation = pipeline.Conversation

	return server.New(cfg, deps, logger).Run(ctx)
}
