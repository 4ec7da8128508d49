package http

import (
	"net/http"
	"strings"

	"gestor/internal/core"
	"gestor/internal/query"
	"gestor/internal/receipt"
	"gestor/internal/report"
)

type dashboardResponse struct {
	Totals  report.Totals `json:"totals"`
	Records []core.Record `json:"records"`
}

// handleDashboard totals the active records matching q.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	visible := query.Filter(s.store.Records(), query.TabDashboard, r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, dashboardResponse{Totals: report.Dashboard(visible), Records: visible})
}

func (s *Server) handleCompleted(w http.ResponseWriter, r *http.Request) {
	records := s.store.Records()
	writeJSON(w, http.StatusOK, dashboardResponse{
		Totals:  report.Completed(records),
		Records: query.Filter(records, query.TabCompleted, r.URL.Query().Get("q")),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	period, err := report.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats := report.PeriodStats(s.store.Records(), period, s.now().In(s.loc), s.policy)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.History(s.store.Records(), rec))
}

// handleReceipt renders the receipt as Markdown or as an HTML fragment.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	rc := receipt.Build(rec, s.loc)

	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(rc.Markdown()))
	case "", "html":
		html, err := rc.HTML()
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Receipt-Filename", receipt.PDFFilename(rec))
		_, _ = w.Write([]byte(html))
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown receipt format " + format})
	}
}

func (s *Server) handleMail(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, receipt.MailIntent(rec))
}
