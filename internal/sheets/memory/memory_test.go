package memory

import (
	"context"
	"errors"
	"testing"

	"gestor/internal/core"
)

func TestMirror(t *testing.T) {
	m := New("")
	if m.Name() != "memory" {
		t.Fatalf("unexpected name %q", m.Name())
	}

	records := []core.Record{{ID: "a", Types: []string{core.TagSale}}}
	if err := m.Mirror(context.Background(), records); err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	records[0].Types[0] = "changed"

	got := m.Snapshot()
	if len(got) != 1 || got[0].Types[0] != core.TagSale {
		t.Fatalf("snapshot shares memory with caller: %v", got)
	}

	m.Err = errors.New("offline")
	if err := m.Mirror(context.Background(), nil); err == nil {
		t.Fatal("expected injected error")
	}
	if m.Calls() != 2 {
		t.Fatalf("Calls() = %d, want 2", m.Calls())
	}
	if len(m.Snapshot()) != 1 {
		t.Fatal("failed mirror must keep the previous snapshot")
	}
}
