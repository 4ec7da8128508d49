// Package backend selects and opens the persisted slot that holds the
// ledger, according to DATA_BACKEND.
package backend

import (
	"context"

	"gestor/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the slot and an optional cleanup function
type BackendResult struct {
	Slot     storage.Slot
	Location string
	Cleanup  CleanupFunc
}

// Close runs the cleanup function when there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates slots based on configuration
type Factory interface {
	CreateSlot(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for slot creation
type Config struct {
	Type     BackendType
	SlotName string

	// file
	DataFile string

	// sqlite
	SQLiteDBPath string

	// postgres
	DatabaseURL string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// gcs
	GCSBucket string
	GCSObject string

	// memory, optional seed payload
	Seed []byte
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	FileBackend     BackendType = "file"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	RedisBackend    BackendType = "redis"
	GCSBackend      BackendType = "gcs"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, PostgresBackend, RedisBackend, GCSBackend:
		return true
	default:
		return false
	}
}
