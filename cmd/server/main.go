package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jmcallister/fleetreport/internal/api"
	"github.com/jmcallister/fleetreport/internal/config"
	"github.com/jmcallister/fleetreport/internal/database"
	"github.com/jmcallister/fleetreport/internal/drive"
	"github.com/jmcallister/fleetreport/internal/export"
	"github.com/jmcallister/fleetreport/internal/logging"
	"github.com/jmcallister/fleetreport/internal/repository"
	"github.com/jmcallister/fleetreport/internal/template"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal("configuration", zap.Error(err))
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}
	repo := repository.NewReportRepository(pool)

	objects, err := template.NewS3Source(cfg)
	if err != nil {
		logger.Fatal("init object storage", zap.Error(err))
	}
	resolver := template.NewResolver(template.ResolverConfig{
		Objects:      objects,
		TemplatesDir: cfg.TemplatesDir,
		DefaultID:    cfg.DefaultTemplateID,
		Logger:       logger,
	})

	publisher, err := drive.NewPublisher(cfg, nil, logger)
	if err != nil {
		logger.Fatal("init drive publisher", zap.Error(err))
	}

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	coordinator := export.New(repo, resolver, publisher, logger)
	server := api.New(cfg, coordinator, queueClient, logger)
	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
