package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"gestor/internal/core"
	"gestor/internal/services"
)

func parserFor(body, contentType string) *RequestBodyParser {
	req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(req)
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := parserFor(`{"types":[" venta "],"firstName":"Ana\u0007","dni":"1","date":"2024-03-06","amount":12.345}`, "")
	if !p.IsJSON() {
		t.Fatal("body starting with { should be detected as JSON")
	}
	in, err := p.RecordInput()
	if err != nil {
		t.Fatalf("RecordInput() error = %v", err)
	}
	if in.FirstName != "Ana" {
		t.Errorf("control characters should be stripped, got %q", in.FirstName)
	}
	if len(in.Types) != 1 || in.Types[0] != "venta" {
		t.Errorf("Types = %v", in.Types)
	}
	if in.Amount.Cents != 1235 {
		t.Errorf("Amount = %d, want 1235", in.Amount.Cents)
	}
	if in.Date.String() != "2024-03-06" {
		t.Errorf("Date = %s", in.Date)
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		wantErr error
		check   func(t *testing.T, p *RequestBodyParser)
	}{
		{
			name: "repeated and comma separated types",
			form: url.Values{"types": {"venta,por_pagar", "reparacion"}, "firstName": {"A"}},
			check: func(t *testing.T, p *RequestBodyParser) {
				in, _ := p.RecordInput()
				if strings.Join(in.Types, "|") != "venta|por_pagar|reparacion" {
					t.Errorf("Types = %v", in.Types)
				}
			},
		},
		{
			name: "sale details default quantity",
			form: url.Values{"types": {"venta"}, "productName": {"Cargador"}},
			check: func(t *testing.T, p *RequestBodyParser) {
				in, _ := p.RecordInput()
				if in.SaleDetails == nil || in.SaleDetails.Quantity != 1 || in.SaleDetails.ProductName != "Cargador" {
					t.Errorf("SaleDetails = %+v", in.SaleDetails)
				}
			},
		},
		{
			name: "no sale fields",
			form: url.Values{"types": {"venta"}},
			check: func(t *testing.T, p *RequestBodyParser) {
				in, _ := p.RecordInput()
				if in.SaleDetails != nil {
					t.Errorf("SaleDetails should be nil, got %+v", in.SaleDetails)
				}
			},
		},
		{
			name:    "invalid quantity",
			form:    url.Values{"types": {"venta"}, "quantity": {"dos"}},
			wantErr: core.ErrValidation,
		},
		{
			name:    "invalid date",
			form:    url.Values{"types": {"venta"}, "date": {"06/03/2024"}},
			wantErr: core.ErrValidation,
		},
		{
			name:    "negative amount",
			form:    url.Values{"types": {"venta"}, "amount": {"-3"}},
			wantErr: core.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parserFor(tt.form.Encode(), "application/x-www-form-urlencoded")
			if p.IsJSON() {
				t.Fatal("form body detected as JSON")
			}
			_, err := p.RecordInput()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("RecordInput() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RecordInput() error = %v", err)
			}
			tt.check(t, p)
		})
	}
}

func TestRequestBodyParser_RecordInputOver(t *testing.T) {
	base := services.RecordInput{
		Types:       []string{core.TagSale},
		FirstName:   "Ana",
		LastName:    "Ruiz",
		DNI:         "111A",
		Phone:       "600111222",
		Summary:     "Funda azul",
		Date:        core.NewDate(2024, 3, 6),
		Amount:      core.Money{Cents: 1000},
		SaleDetails: &core.SaleDetails{ProductName: "Funda", Quantity: 1},
	}

	t.Run("json keeps absent fields", func(t *testing.T) {
		in, err := parserFor(`{"amount":15,"summary":"","saleDetails":{"quantity":2}}`, "application/json").RecordInputOver(base)
		if err != nil {
			t.Fatalf("RecordInputOver() error = %v", err)
		}
		if in.Phone != "600111222" || in.LastName != "Ruiz" || in.FirstName != "Ana" {
			t.Errorf("absent fields were cleared: %+v", in)
		}
		if in.Summary != "" {
			t.Errorf("summary sent empty should clear, got %q", in.Summary)
		}
		if in.Amount.Cents != 1500 {
			t.Errorf("Amount = %d, want 1500", in.Amount.Cents)
		}
		if in.SaleDetails == nil || in.SaleDetails.ProductName != "Funda" || in.SaleDetails.Quantity != 2 {
			t.Errorf("SaleDetails = %+v", in.SaleDetails)
		}
	})

	t.Run("form keeps absent fields", func(t *testing.T) {
		form := url.Values{"phone": {"699000000"}, "quantity": {"3"}}
		in, err := parserFor(form.Encode(), "application/x-www-form-urlencoded").RecordInputOver(base)
		if err != nil {
			t.Fatalf("RecordInputOver() error = %v", err)
		}
		if in.Phone != "699000000" || in.Summary != "Funda azul" || len(in.Types) != 1 {
			t.Errorf("unexpected merge: %+v", in)
		}
		if in.SaleDetails == nil || in.SaleDetails.ProductName != "Funda" || in.SaleDetails.Quantity != 3 {
			t.Errorf("SaleDetails = %+v", in.SaleDetails)
		}
	})
}

func TestRequestBodyParser_Errors(t *testing.T) {
	if _, err := parserFor("   ", "").RecordInput(); !errors.Is(err, core.ErrInvalidFormat) {
		t.Errorf("empty body error = %v, want ErrInvalidFormat", err)
	}
	if _, err := parserFor(`{"firstName":`, "application/json").RecordInput(); !errors.Is(err, core.ErrParse) {
		t.Errorf("malformed json error = %v, want ErrParse", err)
	}
	big := `{"summary":"` + strings.Repeat("x", maxBodySize) + `"}`
	if _, err := parserFor(big, "application/json").RecordInput(); !errors.Is(err, core.ErrInvalidFormat) {
		t.Errorf("oversized body error = %v, want ErrInvalidFormat", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  hola  ":         "hola",
		"a\x00b":           "ab",
		"línea\nsiguiente": "línea\nsiguiente",
		"tab\there":        "tab\there",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
