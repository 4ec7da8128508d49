package http

import (
	"fmt"
	"net/http"

	"gestor/internal/core"
	"gestor/internal/query"
	"gestor/internal/services"
)

type listResponse struct {
	Tab     string        `json:"tab"`
	Query   string        `json:"q,omitempty"`
	Count   int           `json:"count"`
	Records []core.Record `json:"records"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	if tab == "" {
		tab = query.TabDashboard
	}
	q := r.URL.Query().Get("q")
	records := query.Filter(s.store.Records(), tab, q)
	writeJSON(w, http.StatusOK, listResponse{Tab: tab, Query: q, Count: len(records), Records: records})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	in, err := NewRequestBodyParser(r).RecordInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.records.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/records/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

// lookup writes 404 and returns false when id is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (core.Record, bool) {
	id := r.PathValue("id")
	rec, ok := s.store.Get(id)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: %s", core.ErrNotFound, id))
		return core.Record{}, false
	}
	return rec, true
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleUpdateRecord merges the fields present in the body over the stored
// record.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	current, ok := s.lookup(w, r)
	if !ok {
		return
	}
	in, err := NewRequestBodyParser(r).RecordInputOver(services.InputFromRecord(current))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.records.Update(r.Context(), current.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteRecord succeeds for unknown ids as well.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.records.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetCompleted(completed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.records.SetCompleted(r.Context(), id, completed); err != nil {
			writeError(w, r, err)
			return
		}
		rec, ok := s.store.Get(id)
		if !ok {
			// unknown ids are a silent no-op in the ledger
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}
