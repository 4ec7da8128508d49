package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"gestor/internal/core"
	"gestor/internal/log"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	_, err := NewFromEnv(context.Background(), " ", "Registros", log.Discard())
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background(), "sheet-id", "Registros", log.Discard())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestRows(t *testing.T) {
	rows := Rows([]core.Record{
		{
			ID: "a", Types: []string{core.TagSale, core.TagPending}, FirstName: "Ana", DNI: "1",
			Date: core.NewDate(2024, 3, 5), Amount: core.Money{Cents: 8050},
			SaleDetails: &core.SaleDetails{ProductName: "Funda", Quantity: 2, PaymentMethod: "efectivo"},
			Completed:   true,
		},
		{ID: "b", Types: []string{core.TagRepair}, Date: core.NewDate(2024, 3, 6)},
	})

	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(rows[1]) {
		t.Fatalf("row width %d does not match header %d", len(rows[1]), len(rows[0]))
	}
	if rows[1][1] != "venta, por_pagar" || rows[1][6] != "2024-03-05" || rows[1][8] != 80.5 {
		t.Errorf("unexpected row %v", rows[1])
	}
	if rows[1][11] != 2 || rows[1][13] != true {
		t.Errorf("unexpected sale or completion cells %v", rows[1])
	}
	if rows[2][9] != "" || rows[2][14] != "" {
		t.Errorf("expected empty sale and timestamp cells, got %v", rows[2])
	}
}

type sheetsServer struct {
	mu      sync.Mutex
	cleared bool
	values  [][]any
	fail    bool
}

func (s *sheetsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, ":clear"):
		s.cleared = true
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.Unmarshal(body, &vr)
		s.values = vr.Values
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{}`))
}

func newTestClient(t *testing.T, srv *sheetsServer) *Client {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(ts.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc, "sheet-id", "Registros", log.Discard())
}

func TestClient_Mirror(t *testing.T) {
	srv := &sheetsServer{}
	c := newTestClient(t, srv)

	records := []core.Record{{ID: "a", Types: []string{core.TagSale}, Date: core.NewDate(2024, 1, 1)}}
	if err := c.Mirror(context.Background(), records); err != nil {
		t.Fatalf("Mirror: %v", err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if !srv.cleared {
		t.Error("expected the sheet to be cleared first")
	}
	if len(srv.values) != 2 || srv.values[1][0] != "a" {
		t.Errorf("unexpected values written: %v", srv.values)
	}
	if c.Name() != "sheets:Registros" {
		t.Errorf("unexpected name %q", c.Name())
	}
}

func TestClient_MirrorError(t *testing.T) {
	c := newTestClient(t, &sheetsServer{fail: true})
	if err := c.Mirror(context.Background(), nil); err == nil {
		t.Fatal("expected error from failing server")
	}

	if err := (&Client{}).Mirror(context.Background(), nil); err == nil {
		t.Fatal("expected error without service")
	}
}
