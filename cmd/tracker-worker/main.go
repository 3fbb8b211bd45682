package main

import (
	"context"
	"errors"
	"os"
	"time"

	"tracker/internal/amqp"
	"tracker/internal/cache"
	"tracker/internal/cli"
	"tracker/internal/report"
	"tracker/internal/sheets"
	gsheet "tracker/internal/sheets/google"
	memexport "tracker/internal/sheets/memory"
	"tracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), "tracker-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Warn("Worker is using the memory backend and will not see the server's transactions")
	}

	store := cli.InitBackend(context.Background(), logger, cfg)
	defer store.Cleanup()

	reports := report.NewService(store.Store, report.Config{
		CacheSize: cfg.ReportCacheSize,
		CacheTTL:  cfg.ReportCacheTTL,
	})
	janitor := cache.NewJanitor(reports)
	janitor.Start(cfg.ReportCacheTTL)
	defer janitor.Stop()

	var exporter sheets.ReportExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			SheetPrefix:     cfg.GoogleReportSheetPrefix,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", "error", err)
			os.Exit(1)
		}
		exporter = client
	} else {
		logger.Info("Google Sheets disabled - reports are kept in memory only")
		exporter = memexport.New()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(reports, exporter, 0)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	cli.LogStartup(logger, cfg, "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeTransactionEvents(ctx, reportWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
