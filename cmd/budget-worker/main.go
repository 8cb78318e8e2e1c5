package main

import (
	"context"
	"errors"
	"os"

	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/log"
	gsheet "budget/internal/sheets/google"
	"budget/internal/storage"
	"budget/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	envErr := cli.LoadEnvFile()

	cfg, cfgErr := cli.LoadConfig(true)
	level := os.Getenv("LOG_LEVEL")
	if cfg != nil {
		level = cfg.LogLevel
	}
	logger := cli.SetupLogger(level).WithComponent(log.ComponentWorker)
	if envErr != nil {
		logger.Warn("Ignoring .env file", log.FieldError, envErr)
	}
	if cfgErr != nil {
		logger.Error("Configuration validation failed", log.FieldError, cfgErr)
		os.Exit(1)
	}

	logger.Info("Starting budget-worker", log.FieldOperation, log.OpStartup)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	// Initialize SQLite repository to read pending transactions
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	if err := sheetsClient.EnsureHeader(ctx); err != nil {
		// Not fatal: appends still work without a header row.
		logger.Warn("Failed to write sheet header", log.FieldError, err)
	}
	logger.Info("Google Sheets client initialized", log.FieldSheetsRef, cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, sheetsClient, cfg.SyncBatchSize)

	// On startup, export anything missed while the worker was down
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	go syncWorker.RunPendingSweep(ctx, cfg.SyncInterval)

	logger.Info("Consuming sync messages", "queue", cfg.AMQPQueue, "sweep_interval", cfg.SyncInterval)
	if err := amqpClient.ConsumeTransactionSync(ctx, syncWorker.HandleSyncMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
