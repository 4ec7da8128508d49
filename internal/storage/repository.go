package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores slots as rows of the slots table.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Slot returns a handle on the named slot.
func (r *SQLiteRepository) Slot(name string) *SQLiteSlot {
	return &SQLiteSlot{repo: r, name: name}
}

func (r *SQLiteRepository) readSlot(ctx context.Context, name string) ([]byte, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM slots WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", name, err)
	}
	return []byte(payload), nil
}

func (r *SQLiteRepository) writeSlot(ctx context.Context, name string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO slots (name, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		name, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write slot %s: %w", name, err)
	}
	return nil
}

// SQLiteSlot is one named row of a SQLiteRepository.
type SQLiteSlot struct {
	repo *SQLiteRepository
	name string
}

func (s *SQLiteSlot) Read(ctx context.Context) ([]byte, error) {
	return s.repo.readSlot(ctx, s.name)
}

func (s *SQLiteSlot) Write(ctx context.Context, data []byte) error {
	return s.repo.writeSlot(ctx, s.name, data)
}

func (s *SQLiteSlot) Close() error {
	return s.repo.Close()
}
