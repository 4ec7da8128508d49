// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gestor/internal/ledger"
	"gestor/internal/log"
	"gestor/internal/middleware/ratelimit"
	"gestor/internal/middleware/security"
	"gestor/internal/middleware/trace"
	"gestor/internal/report"
	"gestor/internal/services"
	"gestor/internal/transfer"
)

// Server is the HTTP front of the ledger. Reads go straight to the store,
// mutations through the record service.
type Server struct {
	http.Server

	records *services.RecordService
	store   *ledger.Store
	gateway *transfer.Gateway

	policy report.PendingPolicy
	loc    *time.Location
	now    func() time.Time
	ready  func(context.Context) error
	logger *log.Logger

	ipExtractor *security.IPExtractor
	rateLimit   ratelimit.Config
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithPendingPolicy decides whether pending payments count in /stats.
func WithPendingPolicy(p report.PendingPolicy) Option {
	return func(s *Server) { s.policy = p }
}

// WithLocation sets the timezone used to place "now" for /stats.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.loc = loc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithReadiness adds a check run by /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRateLimit overrides the per client request budget. A config with no
// requests turns limiting off.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) { s.rateLimit = cfg }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, records *services.RecordService, gateway *transfer.Gateway, opts ...Option) *Server {
	s := &Server{
		records:     records,
		store:       records.Store(),
		gateway:     gateway,
		policy:      report.PendingExclude,
		loc:         time.Local,
		now:         time.Now,
		rateLimit:   ratelimit.DefaultConfig(),
		ipExtractor: security.NewIPExtractor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	s.tracer = trace.NewMiddleware(s.ipExtractor.ClientIP, s.logger)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	if s.rateLimit.Enabled() {
		limiter := ratelimit.NewLimiter(s.rateLimit)
		handler = limiter.Middleware(s.ipExtractor.ClientIP, s.handleRateLimited)(handler)
	}
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(handler)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /records", s.handleListRecords)
	mux.HandleFunc("POST /records", s.handleCreateRecord)
	mux.HandleFunc("GET /records/{id}", s.handleGetRecord)
	mux.HandleFunc("PUT /records/{id}", s.handleUpdateRecord)
	mux.HandleFunc("DELETE /records/{id}", s.handleDeleteRecord)
	mux.HandleFunc("POST /records/{id}/complete", s.handleSetCompleted(true))
	mux.HandleFunc("POST /records/{id}/restore", s.handleSetCompleted(false))
	mux.HandleFunc("GET /records/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /records/{id}/receipt", s.handleReceipt)
	mux.HandleFunc("GET /records/{id}/mail", s.handleMail)

	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /completed", s.handleCompleted)
	mux.HandleFunc("GET /stats", s.handleStats)

	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("POST /import", s.handleStageImport)
	mux.HandleFunc("POST /import/{token}/confirm", s.handleConfirmImport)
	mux.HandleFunc("DELETE /import/{token}", s.handleDiscardImport)
}

// Shutdown gracefully shuts down the server. Repeated calls return nil.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns the request counters of the tracing middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.ipExtractor.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path,
		"retry_after", w.Header().Get("Retry-After"))
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
}
