package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/config"
	"github.com/pageza/datemeal/backend/internal/database"
	"github.com/pageza/datemeal/backend/internal/logging"
)

func main() {
	_ = godotenv.Load()

	logger, err := logging.New(config.GetEnvironment())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if !cfg.DatabaseConfigured() {
		logger.Fatal("DB_HOST is not set")
	}

	db, err := database.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if err := database.RunMigrations(db.Gorm, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("migrations applied")
}
