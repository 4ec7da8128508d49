// Package memory is an in-process mirror that keeps the last snapshot it
// received, for tests and local runs without a backup target.
package memory

import (
	"context"
	"sync"

	"gestor/internal/core"
)

type Mirror struct {
	mu       sync.Mutex
	name     string
	snapshot []core.Record
	calls    int
	// Err, when set, is returned by every Mirror call.
	Err error
}

func New(name string) *Mirror {
	if name == "" {
		name = "memory"
	}
	return &Mirror{name: name}
}

func (m *Mirror) Name() string { return m.name }

func (m *Mirror) Mirror(ctx context.Context, records []core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return m.Err
	}
	m.snapshot = core.CloneAll(records)
	return nil
}

// Snapshot returns a copy of the last mirrored collection.
func (m *Mirror) Snapshot() []core.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return core.CloneAll(m.snapshot)
}

// Calls is the number of Mirror invocations, failed ones included.
func (m *Mirror) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
