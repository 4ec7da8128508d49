// Package ledger owns the in-memory collection of records and keeps it in
// sync with its persisted slot.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"gestor/internal/core"
	"gestor/internal/log"
	"gestor/internal/storage"
)

// Store is the authoritative record collection. Mutations are serialized and
// each one rewrites the whole slot before becoming visible to readers.
type Store struct {
	mu      sync.RWMutex
	slot    storage.Slot
	records []core.Record
	logger  *log.Logger
}

func NewStore(slot storage.Slot, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{
		slot:    slot,
		records: []core.Record{},
		logger:  logger.WithComponent(log.ComponentLedger),
	}
}

// Decode parses a persisted or exported payload. A JSON value that is not an
// array is ErrInvalidFormat, anything unparsable is ErrParse.
func Decode(data []byte) ([]core.Record, error) {
	var shape any
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrParse, err)
	}
	if _, ok := shape.([]any); !ok {
		return nil, fmt.Errorf("%w: expected a JSON array of records", core.ErrInvalidFormat)
	}
	var records []core.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrParse, err)
	}
	return records, nil
}

// Encode serializes the collection in its compact persisted form. Every
// record carries the legacy single type next to its types.
func Encode(records []core.Record) ([]byte, error) {
	out := make([]core.Record, len(records))
	for i, r := range records {
		r.SyncLegacyType()
		out[i] = r
	}
	return json.Marshal(out)
}

// Load reads the slot and replaces the in-memory collection. An empty slot or
// an unparsable payload yields an empty store; the latter is logged and not
// returned. Slot I/O failures are returned and leave the store unchanged.
func (s *Store) Load(ctx context.Context) error {
	return s.load(ctx, false)
}

// LoadStrict is Load for readers that must not act on a damaged slot: an
// unparsable payload is returned as ErrParse or ErrInvalidFormat and the
// in-memory collection is left as it was.
func (s *Store) LoadStrict(ctx context.Context) error {
	return s.load(ctx, true)
}

func (s *Store) load(ctx context.Context, strict bool) error {
	data, err := s.slot.Read(ctx)
	if err != nil {
		return fmt.Errorf("read slot: %w", err)
	}

	records := []core.Record{}
	if len(data) > 0 {
		decoded, err := Decode(data)
		switch {
		case err != nil && strict:
			return fmt.Errorf("decode slot: %w", err)
		case err != nil:
			s.logger.ErrorContext(ctx, "Persisted records unreadable, starting empty",
				log.FieldOperation, log.OpLoad, log.FieldError, err)
		default:
			records = core.Migrate(decoded)
		}
	}

	if n := undated(records); n > 0 {
		s.logger.WarnContext(ctx, "Records loaded without a valid date",
			log.FieldOperation, log.OpLoad, log.FieldCount, n)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Records loaded", log.FieldOperation, log.OpLoad, log.FieldCount, len(records))
	return nil
}

func undated(records []core.Record) int {
	n := 0
	for _, r := range records {
		if r.Date.IsZero() {
			n++
		}
	}
	return n
}

// Save persists the current collection.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, s.records)
}

func (s *Store) persist(ctx context.Context, records []core.Record) error {
	data, err := Encode(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := s.slot.Write(ctx, data); err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	s.logger.DebugContext(ctx, "Records saved", log.FieldOperation, log.OpSave, log.FieldCount, len(records))
	return nil
}

// ErrUnchanged can be returned by an Apply mutation to skip persisting.
var ErrUnchanged = errors.New("collection unchanged")

// Apply runs fn on a private copy of the collection. When fn succeeds the
// copy is persisted and then swapped in; otherwise nothing changes. An fn
// returning ErrUnchanged skips the write and Apply returns nil.
func (s *Store) Apply(ctx context.Context, fn func([]core.Record) ([]core.Record, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(core.CloneAll(s.records))
	if errors.Is(err, ErrUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	if next == nil {
		next = []core.Record{}
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.records = next
	return nil
}

// ReplaceAll swaps the whole collection, normalizing legacy records first.
func (s *Store) ReplaceAll(ctx context.Context, records []core.Record) error {
	if records == nil {
		return fmt.Errorf("%w: records must be a sequence", core.ErrInvalidFormat)
	}
	migrated := core.Migrate(records)
	return s.Apply(ctx, func([]core.Record) ([]core.Record, error) {
		return migrated, nil
	})
}

// Records returns a copy of the collection, newest first.
func (s *Store) Records() []core.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneAll(s.records)
}

// Get returns a copy of the record with id.
func (s *Store) Get(id string) (core.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return core.Record{}, false
}

// Len is the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
