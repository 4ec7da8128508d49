package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"gestor/internal/amqp"
	"gestor/internal/cli"
	"gestor/internal/log"
	"gestor/internal/sheets"
	"gestor/internal/sheets/backupdir"
	gsheet "gestor/internal/sheets/google"
	"gestor/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentWorker)

	logger.Info("Starting gestor-worker", log.FieldOperation, log.OpStartup)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	store, slot, err := cli.OpenLedger(startCtx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer slot.Close()

	var mirrors []sheets.Mirror
	if cfg.BackupDir != "" {
		dir, err := backupdir.New(cfg.BackupDir, cfg.BackupKeep, logger)
		if err != nil {
			logger.Error("Failed to initialize backup directory", log.FieldError, err, "dir", cfg.BackupDir)
			os.Exit(1)
		}
		mirrors = append(mirrors, dir)
	}
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirrors = append(mirrors, sheetsClient)
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}
	if len(mirrors) == 0 {
		logger.Error("No backup mirror configured, set BACKUP_DIR or GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	backupWorker := worker.NewBackupWorker(store, mirrors, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := backupWorker.Stop(stopCtx); err != nil {
			logger.Warn("Backup worker stop", log.FieldError, err)
		}
	})

	// Catch up with anything written while the worker was down.
	if err := backupWorker.Snapshot(ctx); err != nil {
		logger.Error("Startup snapshot failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if amqpClient != nil {
		logger.Info("Consuming record events", "queue", cfg.AMQPQueue)
		g.Go(func() error {
			err := amqpClient.ConsumeRecordEvents(gctx, backupWorker.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, polling the slot", "interval", cfg.BackupInterval)
		if err := backupWorker.Start(gctx, cfg.BackupInterval); err != nil {
			logger.Error("Failed to start backup worker", log.FieldError, err)
			os.Exit(1)
		}
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
