// Package storage holds the persisted mirror of the ledger: one named slot
// whose whole content is rewritten on every save.
package storage

import (
	"context"
	"sync"
)

// DefaultSlotName is the slot key used by every backend unless configured.
const DefaultSlotName = "client_records"

// Slot is a single named blob.
type Slot interface {
	// Read returns the stored payload, or nil with no error when the slot
	// has never been written.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the whole payload.
	Write(ctx context.Context, data []byte) error
}

// MemorySlot keeps the payload in process. Used for tests and the memory backend.
type MemorySlot struct {
	mu   sync.RWMutex
	data []byte
	// Writes counts successful writes.
	Writes int
}

func NewMemorySlot(initial []byte) *MemorySlot {
	return &MemorySlot{data: clone(initial)}
}

func (s *MemorySlot) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data), nil
}

func (s *MemorySlot) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = clone(data)
	s.Writes++
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
