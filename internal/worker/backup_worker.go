// Package worker copies the ledger to its backup mirrors, either on record
// change events or by polling the slot.
package worker

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gestor/internal/amqp"
	"gestor/internal/ledger"
	"gestor/internal/log"
	"gestor/internal/sheets"
)

// BackupWorker reloads the ledger from its slot and writes the full
// collection to every mirror.
type BackupWorker struct {
	store   *ledger.Store
	mirrors []sheets.Mirror
	logger  *log.Logger

	mu         sync.Mutex
	lastDigest [sha256.Size]byte
	mirrored   bool

	// Lifecycle management for polling mode
	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewBackupWorker(store *ledger.Store, mirrors []sheets.Mirror, logger *log.Logger) *BackupWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BackupWorker{
		store:   store,
		mirrors: mirrors,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes one record change event. Mirror failures and an
// unreadable slot are returned so the event is redelivered; mirrors are never
// overwritten from a slot that does not parse.
func (w *BackupWorker) HandleEvent(ctx context.Context, event *amqp.RecordEvent) error {
	w.logger.InfoContext(ctx, "Processing record event",
		log.FieldRecordID, event.ID,
		log.FieldOperation, event.Op)

	if err := w.store.LoadStrict(ctx); err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	return w.mirror(ctx, true)
}

// Snapshot reloads the ledger and mirrors it unconditionally.
func (w *BackupWorker) Snapshot(ctx context.Context) error {
	if err := w.store.LoadStrict(ctx); err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	return w.mirror(ctx, true)
}

// poll reloads the ledger and mirrors it only when it changed since the
// last successful mirror.
func (w *BackupWorker) poll(ctx context.Context) error {
	if err := w.store.LoadStrict(ctx); err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	return w.mirror(ctx, false)
}

func (w *BackupWorker) mirror(ctx context.Context, force bool) error {
	records := w.store.Records()
	data, err := ledger.Encode(records)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	digest := sha256.Sum256(data)

	w.mu.Lock()
	unchanged := w.mirrored && digest == w.lastDigest
	w.mu.Unlock()
	if unchanged && !force {
		w.logger.DebugContext(ctx, "Ledger unchanged, skipping mirrors")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range w.mirrors {
		g.Go(func() error {
			if err := m.Mirror(gctx, records); err != nil {
				w.logger.ErrorContext(ctx, "Mirror failed",
					log.FieldOperation, log.OpMirror, "mirror", m.Name(), log.FieldError, err)
				return fmt.Errorf("mirror %s: %w", m.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.mu.Lock()
	w.lastDigest = digest
	w.mirrored = true
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Ledger mirrored",
		log.FieldCount, len(records), "mirrors", len(w.mirrors))
	return nil
}

// Start polls the slot every interval until Stop or ctx is done. It is used
// when no AMQP broker is configured. Returns an error if already running.
func (w *BackupWorker) Start(ctx context.Context, interval time.Duration) error {
	w.runMu.Lock()
	if w.running {
		w.runMu.Unlock()
		return fmt.Errorf("backup worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.runMu.Unlock()

	go w.runLoop(ctx, interval)

	w.logger.InfoContext(ctx, "Backup worker polling started", "poll_interval", interval.String())
	return nil
}

// Stop gracefully stops polling and waits for the current cycle.
func (w *BackupWorker) Stop(ctx context.Context) error {
	w.runMu.Lock()
	if !w.running {
		w.runMu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.runMu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Backup worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Backup worker stop timed out")
		return ctx.Err()
	}

	w.runMu.Lock()
	w.running = false
	w.runMu.Unlock()
	return nil
}

// IsRunning returns whether polling is active
func (w *BackupWorker) IsRunning() bool {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	return w.running
}

func (w *BackupWorker) runLoop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := w.poll(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Backup cycle failed", log.FieldError, err)
	}

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Backup cycle failed", log.FieldError, err)
			}
		}
	}
}
