// Package transfer exports the ledger to a backup file and imports one back
// behind an explicit confirmation step.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gestor/internal/core"
	"gestor/internal/ledger"
)

const filenamePrefix = "backup_gestion_clientes_"

// Filename is the export file name for the day of now.
func Filename(now time.Time) string {
	return filenamePrefix + now.Format("2006-01-02") + ".json"
}

// Export writes every record, in collection order, as an indented JSON
// array with the same schema as the persisted slot.
func Export(w io.Writer, records []core.Record) error {
	data, err := ledger.Encode(records)
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("indent export: %w", err)
	}
	buf.WriteByte('\n')
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Parse reads an export file. Malformed JSON is ErrParse and a top-level
// value other than an array is ErrInvalidFormat.
func Parse(data []byte) ([]core.Record, error) {
	return ledger.Decode(data)
}

// ParseReader reads at most limit bytes from r and parses them.
func ParseReader(r io.Reader, limit int64) ([]core.Record, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: import larger than %d bytes", core.ErrInvalidFormat, limit)
	}
	return Parse(data)
}
