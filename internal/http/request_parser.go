package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"gestor/internal/core"
	"gestor/internal/services"
)

// maxBodySize bounds record payloads.
const maxBodySize = 1 << 20

// RequestBodyParser reads a record payload sent either as JSON or as a
// url-encoded form. The body is read once.
type RequestBodyParser struct {
	body        []byte
	contentType string
	err         error
}

// NewRequestBodyParser reads the request body, up to maxBodySize bytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if p.err == nil && len(p.body) > maxBodySize {
		p.err = fmt.Errorf("%w: request body too large", core.ErrInvalidFormat)
	}
	return p
}

// IsJSON reports whether the body is a JSON document.
func (p *RequestBodyParser) IsJSON() bool {
	if strings.HasPrefix(p.contentType, "application/json") {
		return true
	}
	trimmed := strings.TrimSpace(string(p.body))
	return strings.HasPrefix(trimmed, "{")
}

// RecordInput decodes the payload into a services.RecordInput.
func (p *RequestBodyParser) RecordInput() (services.RecordInput, error) {
	return p.RecordInputOver(services.RecordInput{})
}

// RecordInputOver decodes the payload over base. Fields absent from the body
// keep the value they have in base; a JSON field sent empty clears it.
func (p *RequestBodyParser) RecordInputOver(base services.RecordInput) (services.RecordInput, error) {
	in := base
	in.Types = slices.Clone(base.Types)
	if base.SaleDetails != nil {
		details := *base.SaleDetails
		in.SaleDetails = &details
	}
	if p.err != nil {
		return in, p.err
	}
	if len(strings.TrimSpace(string(p.body))) == 0 {
		return in, fmt.Errorf("%w: empty request body", core.ErrInvalidFormat)
	}
	if p.IsJSON() {
		if err := json.Unmarshal(p.body, &in); err != nil {
			return in, fmt.Errorf("%w: %v", core.ErrParse, err)
		}
		return sanitizeRecordInput(in), nil
	}

	form, err := url.ParseQuery(string(p.body))
	if err != nil {
		return in, fmt.Errorf("%w: %v", core.ErrParse, err)
	}
	return recordInputFromForm(form, in)
}

// recordInputFromForm maps the form fields present over in. types may repeat
// or be comma separated. Sale details are read when any product field has a
// value, or merged when in already carries them.
func recordInputFromForm(form url.Values, in services.RecordInput) (services.RecordInput, error) {
	text := map[string]*string{
		"firstName": &in.FirstName,
		"lastName":  &in.LastName,
		"dni":       &in.DNI,
		"phone":     &in.Phone,
		"summary":   &in.Summary,
	}
	for key, field := range text {
		if form.Has(key) {
			*field = sanitizeInput(form.Get(key))
		}
	}
	if form.Has("types") {
		in.Types = nil
		for _, v := range form["types"] {
			for _, t := range strings.Split(v, ",") {
				if t = sanitizeInput(t); t != "" {
					in.Types = append(in.Types, t)
				}
			}
		}
	}

	if v := strings.TrimSpace(form.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return in, fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
		in.Date = d
	}
	if v := strings.TrimSpace(form.Get("amount")); v != "" {
		cents, err := core.ParseAmount(v)
		if err != nil {
			return in, fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
		in.Amount = core.Money{Cents: cents}
	}

	saleKeys := []string{"productName", "productCode", "quantity", "paymentMethod"}
	if in.SaleDetails == nil && !slices.ContainsFunc(saleKeys, func(k string) bool { return strings.TrimSpace(form.Get(k)) != "" }) {
		return in, nil
	}
	details := core.SaleDetails{Quantity: 1}
	if in.SaleDetails != nil {
		details = *in.SaleDetails
	}
	if form.Has("productName") {
		details.ProductName = sanitizeInput(form.Get("productName"))
	}
	if form.Has("productCode") {
		details.ProductCode = sanitizeInput(form.Get("productCode"))
	}
	if form.Has("paymentMethod") {
		details.PaymentMethod = sanitizeInput(form.Get("paymentMethod"))
	}
	if qty := strings.TrimSpace(form.Get("quantity")); qty != "" {
		n, err := strconv.Atoi(qty)
		if err != nil {
			return in, fmt.Errorf("%w: quantity %q", core.ErrValidation, qty)
		}
		details.Quantity = n
	}
	in.SaleDetails = &details
	return in, nil
}

func sanitizeRecordInput(in services.RecordInput) services.RecordInput {
	for i, t := range in.Types {
		in.Types[i] = sanitizeInput(t)
	}
	in.FirstName = sanitizeInput(in.FirstName)
	in.LastName = sanitizeInput(in.LastName)
	in.DNI = sanitizeInput(in.DNI)
	in.Phone = sanitizeInput(in.Phone)
	in.Summary = sanitizeInput(in.Summary)
	if in.SaleDetails != nil {
		in.SaleDetails.ProductName = sanitizeInput(in.SaleDetails.ProductName)
		in.SaleDetails.ProductCode = sanitizeInput(in.SaleDetails.ProductCode)
		in.SaleDetails.PaymentMethod = sanitizeInput(in.SaleDetails.PaymentMethod)
	}
	return in
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
