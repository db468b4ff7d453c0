package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"dealtrack/internal/cli"
	"dealtrack/internal/export"
	exportgoogle "dealtrack/internal/export/google"
	exportmemory "dealtrack/internal/export/memory"
	"dealtrack/internal/notify"
	"dealtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("dealtrack-worker")

	logger.Info("Starting dealtrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reports export.ReportWriter
	switch cfg.ReportSink {
	case "sheets":
		client, err := exportgoogle.New(ctx, exportgoogle.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets report sink", "error", err)
			os.Exit(1)
		}
		reports = client
		logger.Info("Commission reports go to Google Sheets",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	default:
		reports = exportmemory.New()
		logger.Info("Commission reports go to the in-memory sink")
	}

	amqpClient, err := notify.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, reports, cfg.ExportBatchSize)

	// Catch up on closed deals whose change messages were missed while down.
	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Startup export check failed", "error", err)
		// Don't exit - the periodic scan retries
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		handler := func(msg *notify.TransactionChangedMessage) error {
			return exportWorker.HandleChangeMessage(gctx, msg)
		}
		err := amqpClient.ConsumeTransactionChanged(gctx, handler)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	// Periodic scan for closed deals the change feed missed.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := exportWorker.ProcessPendingExports(gctx); err != nil {
					logger.Error("Periodic export failed", "error", err)
				}
			}
		}
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-gctx.Done():
		logger.Info("Worker loop stopped")
	}

	logger.Info("Shutting down worker...")
	cancel()

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
