package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gestor/internal/cache"
	"gestor/internal/core"
	"gestor/internal/log"
)

// MaxImportSize bounds an uploaded backup.
const MaxImportSize = 16 << 20

const maxStaged = 16

// ErrUnknownToken is returned for tokens that were never staged, were
// already used, or expired.
var ErrUnknownToken = errors.New("unknown or expired import token")

// Importer performs the destructive replace. services.RecordService
// implements it.
type Importer interface {
	Import(ctx context.Context, records []core.Record) error
}

// Staged describes an import waiting for confirmation.
type Staged struct {
	Token     string    `json:"token"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Gateway parks parsed imports until the user confirms them.
type Gateway struct {
	importer Importer
	pending  cache.Cache[[]core.Record]
	ttl      time.Duration
	logger   *log.Logger
}

// NewGateway creates a gateway whose staged imports live for ttl. The
// pending cache is registered with manager for periodic cleanup when
// manager is not nil.
func NewGateway(importer Importer, ttl time.Duration, manager *cache.Manager, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	pending := cache.NewLRUCache[[]core.Record](maxStaged, ttl)
	if manager != nil {
		manager.Register(pending)
	}
	return &Gateway{
		importer: importer,
		pending:  pending,
		ttl:      ttl,
		logger:   logger.WithComponent(log.ComponentTransfer),
	}
}

// Stage parses data and parks the records under a fresh token. Nothing is
// written to the ledger.
func (g *Gateway) Stage(data []byte) (Staged, error) {
	records, err := Parse(data)
	if err != nil {
		return Staged{}, err
	}
	token := uuid.NewString()
	g.pending.Set(token, records)

	g.logger.Info("Import staged", log.FieldToken, token, log.FieldCount, len(records))
	return Staged{Token: token, Count: len(records), ExpiresAt: time.Now().Add(g.ttl)}, nil
}

// Confirm replaces the whole ledger with the staged records. A token is
// confirmed once; when the import fails it is staged again so the user can
// retry without uploading.
func (g *Gateway) Confirm(ctx context.Context, token string) (int, error) {
	records, ok := g.pending.Take(token)
	if !ok {
		return 0, ErrUnknownToken
	}
	if err := g.importer.Import(ctx, records); err != nil {
		g.pending.Set(token, records)
		g.logger.WarnContext(ctx, "Import failed, staged records kept",
			log.FieldToken, token, log.FieldError, err)
		return 0, err
	}
	g.logger.InfoContext(ctx, "Import confirmed", log.FieldToken, token, log.FieldCount, len(records))
	return len(records), nil
}

// Discard drops a staged import. Unknown tokens are ignored.
func (g *Gateway) Discard(token string) {
	g.pending.Delete(token)
	g.logger.Info("Import discarded", log.FieldToken, token)
}
