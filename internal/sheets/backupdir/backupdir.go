// Package backupdir mirrors the ledger as dated export files in a local
// directory.
package backupdir

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gestor/internal/core"
	"gestor/internal/log"
	ports "gestor/internal/sheets"
	"gestor/internal/transfer"
)

// Mirror writes transfer.Export output to dir, one file per day. Later
// snapshots of the same day overwrite the earlier one.
type Mirror struct {
	dir    string
	keep   int
	now    func() time.Time
	logger *log.Logger
}

var _ ports.Mirror = (*Mirror)(nil)

// New creates dir if needed. keep bounds how many daily files are retained;
// zero keeps them all.
func New(dir string, keep int, logger *log.Logger) (*Mirror, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Mirror{dir: dir, keep: keep, now: time.Now, logger: logger.WithComponent(log.ComponentWorker)}, nil
}

func (m *Mirror) Name() string { return "dir:" + m.dir }

func (m *Mirror) Mirror(ctx context.Context, records []core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := transfer.Export(&buf, records); err != nil {
		return err
	}

	path := filepath.Join(m.dir, transfer.Filename(m.now()))
	tmp, err := os.CreateTemp(m.dir, ".backup-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp backup: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := buf.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename backup: %w", err)
	}

	m.logger.InfoContext(ctx, "Ledger mirrored to file",
		log.FieldOperation, log.OpMirror, log.FieldCount, len(records), "path", path)
	return m.prune()
}

// Files lists the backup files in dir, oldest first.
func (m *Mirror) Files() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(m.dir, "backup_gestion_clientes_*.json"))
	if err != nil {
		return nil, err
	}
	// Names embed YYYY-MM-DD, so lexical order is chronological.
	sort.Strings(matches)
	return matches, nil
}

func (m *Mirror) prune() error {
	if m.keep <= 0 {
		return nil
	}
	files, err := m.Files()
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	for len(files) > m.keep {
		if err := os.Remove(files[0]); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune backup %s: %w", strings.TrimPrefix(files[0], m.dir), err)
		}
		files = files[1:]
	}
	return nil
}
