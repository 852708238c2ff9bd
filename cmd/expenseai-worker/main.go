package main

import (
	"context"
	"os"

	"expenseai/internal/amqp"
	"expenseai/internal/cli"
	"expenseai/internal/config"
	applog "expenseai/internal/log"
	gsheet "expenseai/internal/sheets/google"
	"expenseai/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentWorker)
	if err := cfg.ValidateLedger(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	shutdownTracing := cli.InitTracing(logger, cfg, applog.ComponentWorker)

	logger.Info("Starting expenseai-worker")

	ledger, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if err := ledger.EnsureHeader(context.Background()); err != nil {
		logger.Error("Failed to prepare ledger sheet", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets ledger initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	ledgerWorker := worker.NewLedgerWorker(ledger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("Failed to close AMQP client", "error", err)
		}
		shutdownTracing(ctx)
	})

	// Only a persistent store can hold expenses the worker missed.
	if cfg.DataBackend == config.BackendSQLite {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		logger.Info("Performing startup sync check...")
		if _, err := ledgerWorker.StartupSync(ctx, repo); err != nil {
			logger.Error("Failed startup sync check", "error", err)
		}
		repo.Close()
	}

	if err := ledgerWorker.Run(ctx, amqpClient); err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
