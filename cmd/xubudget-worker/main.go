package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"xubudget/internal/amqp"
	"xubudget/internal/archive"
	"xubudget/internal/catalog"
	"xubudget/internal/config"
	"xubudget/internal/ledger"
	"xubudget/internal/log"
	"xubudget/internal/report"
	"xubudget/internal/services"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentWorker,
		JSON:      cfg.LogJSON,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the archive worker")
		os.Exit(1)
	}
	dbPath := cfg.ArchiveDBPath
	if dbPath == "" {
		dbPath = "./data/archive.db"
	}

	cat, err := catalog.LoadFile(cfg.CategoriesFile)
	if err != nil {
		logger.Error("category registry load failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	reports := report.New(cat)
	store, err := ledger.NewStore(cfg.StatesDir, cat, reports, cfg.DefaultCurrency, logger)
	if err != nil {
		logger.Error("ledger store init failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	repo, err := archive.NewRepository(dbPath, logger)
	if err != nil {
		logger.Error("archive repository init failed", log.FieldError, err.Error(), log.FieldFile, dbPath)
		os.Exit(1)
	}
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("AMQP client init failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	archiver := services.NewArchiver(store, repo, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("archive worker started", log.FieldOperation, log.OpStartup, "queue", cfg.AMQPQueue)
	err = client.ConsumeEntryEvents(ctx, func(event *amqp.EntryEvent) error {
		return archiver.Handle(ctx, event)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("archive worker stopped")
}
