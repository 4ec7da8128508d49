package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"gestor/internal/amqp"
	"gestor/internal/cache"
	"gestor/internal/cli"
	apphttp "gestor/internal/http"
	"gestor/internal/log"
	"gestor/internal/middleware/ratelimit"
	"gestor/internal/report"
	"gestor/internal/services"
	"gestor/internal/storage"
	"gestor/internal/transfer"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, slot, err := cli.OpenLedger(startCtx, cfg, logger)
	cancelStart()
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := slot.Close(); err != nil {
			logger.Error("Failed to close slot", log.FieldError, err)
		}
	}()
	logger.Info("Ledger ready", log.FieldBackend, cfg.DataBackend, log.FieldSlot, slot.Location, log.FieldCount, store.Len())

	// Change events are optional: without a broker the worker polls the slot.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled, record changes are not announced")
	}

	records := cli.NewRecordService(store, cfg, publisher, logger)

	cacheManager := cache.NewManager(logger)
	gateway := transfer.NewGateway(records, cfg.ImportTTL, cacheManager, logger)
	cacheManager.StartCleanup(time.Minute)

	policy, err := report.ParsePendingPolicy(cfg.PendingPolicy)
	if err != nil {
		logger.Error("Invalid pending policy", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, records, gateway,
		apphttp.WithLogger(logger),
		apphttp.WithPendingPolicy(policy),
		apphttp.WithLocation(cfg.Location()),
		apphttp.WithReadiness(readiness(slot.Slot)),
		apphttp.WithRateLimit(ratelimit.Config{Requests: cfg.RateLimitRequests, Window: cfg.RateLimitWindow}),
	)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting gestor server", "port", cfg.Port, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// readiness reports the slot reachable when it can be read.
func readiness(slot storage.Slot) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := slot.Read(ctx)
		return err
	}
}
