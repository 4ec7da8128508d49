package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"gestor/internal/core"
	"gestor/internal/log"
	"gestor/internal/transfer"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	records := s.store.Records()
	if err := transfer.Export(&buf, records); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", transfer.Filename(s.now().In(s.loc))))
	_, _ = w.Write(buf.Bytes())

	log.FromContext(r.Context()).InfoContext(r.Context(), "Records exported",
		log.FieldOperation, log.OpExport, log.FieldCount, len(records))
}

// handleStageImport parses the uploaded backup and parks it until the
// client confirms. The ledger is not touched.
func (s *Server) handleStageImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, transfer.MaxImportSize+1))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidFormat, err))
		return
	}
	if len(data) > transfer.MaxImportSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "import file too large"})
		return
	}
	staged, err := s.gateway.Stage(data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, staged)
}

type importResult struct {
	Imported int `json:"imported"`
}

func (s *Server) handleConfirmImport(w http.ResponseWriter, r *http.Request) {
	n, err := s.gateway.Confirm(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResult{Imported: n})
}

func (s *Server) handleDiscardImport(w http.ResponseWriter, r *http.Request) {
	s.gateway.Discard(r.PathValue("token"))
	w.WriteHeader(http.StatusNoContent)
}
