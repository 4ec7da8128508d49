package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestor/internal/core"
	"gestor/internal/log"
	"gestor/internal/storage"
)

type failingSlot struct {
	readErr  error
	writeErr error
}

func (f failingSlot) Read(context.Context) ([]byte, error)  { return nil, f.readErr }
func (f failingSlot) Write(context.Context, []byte) error { return f.writeErr }

func newStore(t *testing.T, initial string) (*Store, *storage.MemorySlot) {
	t.Helper()
	var data []byte
	if initial != "" {
		data = []byte(initial)
	}
	slot := storage.NewMemorySlot(data)
	s := NewStore(slot, log.Discard())
	require.NoError(t, s.Load(context.Background()))
	return s, slot
}

func TestLoadEmptySlot(t *testing.T) {
	s, _ := newStore(t, "")
	assert.Equal(t, 0, s.Len())
	assert.NotNil(t, s.Records())
}

func TestLoadMigratesLegacyRecords(t *testing.T) {
	s, _ := newStore(t, `[
		{"id":"1","type":"reparacion","firstName":"A","dni":"x","date":"2024-01-01","amount":10},
		{"id":"2","firstName":"B","dni":"y","date":"2024-01-02","amount":5},
		{"id":"3","types":["por_pagar"],"firstName":"C","dni":"z","date":"2024-01-03","amount":1}
	]`)
	records := s.Records()
	require.Len(t, records, 3)
	assert.Equal(t, []string{core.TagRepair}, records[0].Types)
	assert.Equal(t, []string{core.TagSale}, records[1].Types)
	assert.Equal(t, []string{core.TagPending}, records[2].Types)
}

func TestLoadCorruptPayloadFailsSoft(t *testing.T) {
	for _, payload := range []string{`{not json`, `{"foo":1}`, `"text"`} {
		s, _ := newStore(t, payload)
		assert.Equal(t, 0, s.Len(), payload)
	}
}

func TestLoadStrictRejectsCorruptPayload(t *testing.T) {
	s, slot := newStore(t, `[{"id":"1","types":["venta"]}]`)
	require.Equal(t, 1, s.Len())

	require.NoError(t, slot.Write(context.Background(), []byte(`[{"id":"1","ty`)))
	err := s.LoadStrict(context.Background())
	assert.ErrorIs(t, err, core.ErrParse)
	assert.Equal(t, 1, s.Len(), "collection kept on a damaged slot")

	require.NoError(t, slot.Write(context.Background(), []byte(`{"records":[]}`)))
	assert.ErrorIs(t, s.LoadStrict(context.Background()), core.ErrInvalidFormat)

	require.NoError(t, slot.Write(context.Background(), []byte(`[]`)))
	require.NoError(t, s.LoadStrict(context.Background()))
	assert.Equal(t, 0, s.Len())
}

func TestLoadKeepsRecordsWithUnreadableDate(t *testing.T) {
	s, _ := newStore(t, `[
		{"id":"1","types":["venta"],"firstName":"A","dni":"x","date":"05/03/2024","amount":10},
		{"id":"2","types":["venta"],"firstName":"B","dni":"y","date":"2024-03-05","amount":5}
	]`)
	records := s.Records()
	require.Len(t, records, 2)
	assert.True(t, records[0].Date.IsZero())
	assert.Equal(t, "2024-03-05", records[1].Date.String())
}

func TestLoadReturnsSlotErrors(t *testing.T) {
	s := NewStore(failingSlot{readErr: errors.New("unreachable")}, log.Discard())
	assert.Error(t, s.Load(context.Background()))
}

func TestApplyPersistsThenSwaps(t *testing.T) {
	s, slot := newStore(t, "")
	ctx := context.Background()

	err := s.Apply(ctx, func(rs []core.Record) ([]core.Record, error) {
		return append(rs, core.Record{ID: "a", Types: []string{core.TagSale, core.TagPending}}), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	data, err := slot.Read(ctx)
	require.NoError(t, err)
	var persisted []map[string]any
	require.NoError(t, json.Unmarshal(data, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, core.TagSale, persisted[0]["type"], "legacy type mirrors the primary tag")
}

func TestApplyFailureLeavesStoreUntouched(t *testing.T) {
	s, slot := newStore(t, `[{"id":"a","types":["venta"]}]`)
	ctx := context.Background()

	err := s.Apply(ctx, func(rs []core.Record) ([]core.Record, error) {
		rs[0].FirstName = "mutated"
		return nil, core.ErrNotFound
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
	r, ok := s.Get("a")
	require.True(t, ok)
	assert.Empty(t, r.FirstName)
	assert.Equal(t, 0, slot.Writes)

	err = s.Apply(ctx, func(rs []core.Record) ([]core.Record, error) { return rs, ErrUnchanged })
	assert.NoError(t, err)
	assert.Equal(t, 0, slot.Writes)
}

func TestApplyWriteFailure(t *testing.T) {
	s := NewStore(failingSlot{writeErr: errors.New("disk full")}, log.Discard())
	require.NoError(t, s.Load(context.Background()))

	err := s.Apply(context.Background(), func(rs []core.Record) ([]core.Record, error) {
		return append(rs, core.Record{ID: "a"}), nil
	})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestReplaceAll(t *testing.T) {
	s, _ := newStore(t, `[{"id":"old","types":["venta"]}]`)
	ctx := context.Background()

	require.NoError(t, s.ReplaceAll(ctx, []core.Record{{ID: "n1", LegacyType: core.TagRepair}, {ID: "n2"}}))
	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "n1", records[0].ID)
	assert.Equal(t, []string{core.TagRepair}, records[0].Types)
	assert.Equal(t, []string{core.TagSale}, records[1].Types)

	assert.ErrorIs(t, s.ReplaceAll(ctx, nil), core.ErrInvalidFormat)
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.ReplaceAll(ctx, []core.Record{}))
	assert.Equal(t, 0, s.Len())
}

func TestRecordsAreCopies(t *testing.T) {
	s, _ := newStore(t, `[{"id":"a","types":["venta"]}]`)
	rs := s.Records()
	rs[0].Types[0] = "changed"
	r, _ := s.Get("a")
	assert.Equal(t, core.TagSale, r.Types[0])
}

func TestDecode(t *testing.T) {
	_, err := Decode([]byte(`{"foo":1}`))
	assert.ErrorIs(t, err, core.ErrInvalidFormat)

	_, err = Decode([]byte(`[{"id":`))
	assert.ErrorIs(t, err, core.ErrParse)

	_, err = Decode([]byte(`null`))
	assert.ErrorIs(t, err, core.ErrInvalidFormat)

	records, err := Decode([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, records)

	roundTrip, err := Encode([]core.Record{{ID: "a", Types: []string{core.TagRepair}, Amount: core.Money{Cents: 1050}}})
	require.NoError(t, err)
	back, err := Decode(roundTrip)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), back[0].Amount.Cents)
	assert.Equal(t, core.TagRepair, back[0].LegacyType)
}
