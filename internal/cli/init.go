// Package cli provides common CLI initialization utilities shared by
// cmd/gestor, cmd/gestor-worker and cmd/gestorctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gestor/internal/backend"
	"gestor/internal/config"
	"gestor/internal/core"
	"gestor/internal/ledger"
	"gestor/internal/log"
	"gestor/internal/services"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(level, format string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	if format != "" {
		cfg.Format = format
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Configuration could not be loaded", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished or timed out.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// OpenLedger opens the configured slot and loads the ledger from it. The
// returned result must be closed by the caller.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (*ledger.Store, *backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	result, err := backend.NewFactory(logger).CreateSlot(ctx, backendCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s slot: %w", backendCfg.Type, err)
	}
	store := ledger.NewStore(result.Slot, logger)
	if err := store.Load(ctx); err != nil {
		_ = result.Close()
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}
	return store, result, nil
}

// NewRecordService wires the record service with the configured validation.
// publisher may be nil.
func NewRecordService(store *ledger.Store, cfg *config.Config, publisher services.EventPublisher, logger *log.Logger) *services.RecordService {
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithValidation(core.ValidationOptions{StrictDNI: cfg.StrictDNI}),
	}
	if publisher != nil {
		opts = append(opts, services.WithPublisher(publisher))
	}
	return services.NewRecordService(store, opts...)
}
