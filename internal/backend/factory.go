package backend

import (
	"context"
	"fmt"

	"gestor/internal/log"
	"gestor/internal/storage"
	"gestor/internal/storage/gcs"
	"gestor/internal/storage/postgres"
	"gestor/internal/storage/redis"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateSlot implements Factory.CreateSlot
func (f *DefaultFactory) CreateSlot(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case MemoryBackend:
		result = &BackendResult{Slot: storage.NewMemorySlot(config.Seed), Location: "memory"}
	case FileBackend:
		result, err = f.createFileSlot(config)
	case SQLiteBackend:
		result, err = f.createSQLiteSlot(config)
	case PostgresBackend:
		result, err = f.createPostgresSlot(ctx, config)
	case RedisBackend:
		result, err = f.createRedisSlot(ctx, config)
	case GCSBackend:
		result, err = f.createGCSSlot(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Initialized slot backend",
		log.FieldBackend, config.Type.String(),
		log.FieldSlot, config.SlotName,
		"location", result.Location)
	return result, nil
}

func (f *DefaultFactory) createFileSlot(config Config) (*BackendResult, error) {
	slot, err := storage.NewFileSlot(config.DataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file slot: %w", err)
	}
	return &BackendResult{Slot: slot, Location: slot.Path()}, nil
}

func (f *DefaultFactory) createSQLiteSlot(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	return &BackendResult{
		Slot:     repo.Slot(config.SlotName),
		Location: config.SQLiteDBPath,
		Cleanup:  repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresSlot(ctx context.Context, config Config) (*BackendResult, error) {
	slot, err := postgres.New(ctx, config.DatabaseURL, config.SlotName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres slot: %w", err)
	}
	return &BackendResult{Slot: slot, Location: "postgres", Cleanup: slot.Close}, nil
}

func (f *DefaultFactory) createRedisSlot(ctx context.Context, config Config) (*BackendResult, error) {
	slot := redis.New(config.RedisAddr, config.RedisPassword, config.RedisDB, config.SlotName)
	if err := slot.Ping(ctx); err != nil {
		_ = slot.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", config.RedisAddr, err)
	}
	return &BackendResult{Slot: slot, Location: config.RedisAddr, Cleanup: slot.Close}, nil
}

func (f *DefaultFactory) createGCSSlot(ctx context.Context, config Config) (*BackendResult, error) {
	slot, err := gcs.New(ctx, config.GCSBucket, config.GCSObject)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gcs slot: %w", err)
	}
	return &BackendResult{Slot: slot, Location: slot.URI(), Cleanup: slot.Close}, nil
}
