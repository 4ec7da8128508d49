package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestor/internal/config"
	"gestor/internal/log"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		assert.True(t, bt.IsValid(), bt)
	}
	assert.False(t, BackendType("sheets").IsValid())
	assert.Equal(t, config.Backends, GetBackendTypeStrings())
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "bogus"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SlotName:     "client_records",
		SQLiteDBPath: "/tmp/x.db",
		RedisDB:      2,
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "client_records", cfg.SlotName)
	assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, SlotName: "s"}, false},
		{"missing slot name", Config{Type: MemoryBackend}, true},
		{"file without path", Config{Type: FileBackend, SlotName: "s"}, true},
		{"sqlite without path", Config{Type: SQLiteBackend, SlotName: "s"}, true},
		{"postgres without url", Config{Type: PostgresBackend, SlotName: "s"}, true},
		{"redis without addr", Config{Type: RedisBackend, SlotName: "s"}, true},
		{"gcs without object", Config{Type: GCSBackend, SlotName: "s", GCSBucket: "b"}, true},
		{"unknown", Config{Type: "nope", SlotName: "s"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateSlot(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(log.Discard())
	dir := t.TempDir()

	cases := []Config{
		{Type: MemoryBackend, SlotName: "client_records"},
		{Type: FileBackend, SlotName: "client_records", DataFile: filepath.Join(dir, "records.json")},
		{Type: SQLiteBackend, SlotName: "client_records", SQLiteDBPath: filepath.Join(dir, "gestor.db")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			result, err := factory.CreateSlot(ctx, cfg)
			require.NoError(t, err)
			defer result.Close()

			data, err := result.Slot.Read(ctx)
			require.NoError(t, err)
			assert.Nil(t, data)

			require.NoError(t, result.Slot.Write(ctx, []byte(`[]`)))
			data, err = result.Slot.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(data))
			assert.NotEmpty(t, result.Location)
		})
	}
}

func TestCreateSlotRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateSlot(context.Background(), Config{Type: PostgresBackend, SlotName: "s"})
	assert.Error(t, err)
}
