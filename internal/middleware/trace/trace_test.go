package trace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestor/internal/log"
)

func TestMiddleware_SetsRequestIDAndLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: "json", Component: log.ComponentApp, Output: &buf})
	mw := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, logger)

	var seenID string
	var seenComponent string
	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenComponent = log.FromContext(r.Context()).Component()
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records?tab=pending", nil))

	require.True(t, strings.HasPrefix(seenID, "req_"))
	assert.Equal(t, seenID, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, log.ComponentHTTP, seenComponent)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var completed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &completed))
	assert.Equal(t, "HTTP request completed", completed["msg"])
	assert.Equal(t, "WARN", completed["level"])
	assert.Equal(t, float64(http.StatusTeapot), completed[log.FieldStatusCode])
	assert.Equal(t, "10.0.0.1", completed[log.FieldClientIP])
	assert.Equal(t, seenID, completed[log.FieldRequestID])
	assert.Equal(t, log.ComponentHTTP, completed[log.FieldComponent])
}

func TestMiddleware_CountsRequests(t *testing.T) {
	mw := NewMiddleware(nil, log.Discard())
	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	}
	assert.Equal(t, int64(3), mw.GetMetrics().TotalRequests)
}

func TestGenerateRequestID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetRequestID(req.Context()))
}
