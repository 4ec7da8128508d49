// Package sheets defines the backup mirrors the worker copies the ledger to.
package sheets

import (
	"context"

	"gestor/internal/core"
)

// Mirror receives a full copy of the ledger after it changes. Mirrors are
// overwritten, never merged, so writing the same snapshot twice is harmless.
type Mirror interface {
	Name() string
	Mirror(ctx context.Context, records []core.Record) error
}
