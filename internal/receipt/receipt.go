// Package receipt renders a single record as a customer receipt, in
// Markdown for terminals and HTML for document export, and prepares the
// mail intent that accompanies it.
package receipt

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"gestor/internal/core"
)

// Receipt is the printable view of a record.
type Receipt struct {
	Number  string
	Date    core.Date
	Time    string
	Client  string
	DNI     string
	Phone   string
	Concept string
	Types   []string
	Sale    *core.SaleDetails
	// SaleUnavailable marks sale records stored before sale details existed.
	SaleUnavailable bool
	Total           core.Money
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Number is the short receipt number derived from the record id.
func Number(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// Build creates the receipt of r. The creation time, when known, is shown
// in loc.
func Build(r core.Record, loc *time.Location) Receipt {
	if loc == nil {
		loc = time.Local
	}
	types := upper(r.Types)
	rc := Receipt{
		Number:  Number(r.ID),
		Date:    r.Date,
		Client:  strings.TrimSpace(r.FullName()),
		DNI:     r.DNI,
		Phone:   r.Phone,
		Concept: r.Summary,
		Types:   types,
		Total:   r.Amount,
	}
	if rc.Concept == "" {
		rc.Concept = strings.Join(types, ", ")
	}
	if r.CreatedAt > 0 {
		rc.Time = time.UnixMilli(r.CreatedAt).In(loc).Format("15:04")
	}
	if r.SaleDetails != nil {
		details := *r.SaleDetails
		rc.Sale = &details
	} else if r.HasType(core.TagSale) {
		rc.SaleUnavailable = true
	}
	return rc
}

func upper(types []string) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = strings.ToUpper(t)
	}
	return out
}

func formatDate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

func cell(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "|", `\|`)
}

// Markdown renders the receipt as a GitHub-flavoured Markdown table.
func (rc Receipt) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Recibo N.º %s\n\n", rc.Number)

	row := func(label, value string) {
		fmt.Fprintf(&b, "| %s | %s |\n", label, cell(value))
	}
	b.WriteString("| Campo | Valor |\n|---|---|\n")
	row("Fecha", strings.TrimSpace(formatDate(rc.Date)+" "+rc.Time))
	row("Cliente", rc.Client)
	row("DNI", rc.DNI)
	if rc.Phone != "" {
		row("Teléfono", rc.Phone)
	}
	row("Concepto", rc.Concept)

	switch {
	case rc.Sale != nil:
		row("Producto", rc.Sale.ProductName)
		if rc.Sale.ProductCode != "" {
			row("Código", rc.Sale.ProductCode)
		}
		row("Cantidad", fmt.Sprint(rc.Sale.Quantity))
		row("Método Pago", rc.Sale.PaymentMethod)
	case rc.SaleUnavailable:
		row("Producto", "Detalles no disponibles para registros antiguos.")
	}

	row("Tipos", strings.Join(rc.Types, ", "))
	fmt.Fprintf(&b, "\n**TOTAL: %s**\n", rc.Total.Display())
	return b.String()
}

// HTML renders the Markdown receipt to an HTML fragment.
func (rc Receipt) HTML() (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(rc.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("render receipt html: %w", err)
	}
	return buf.String(), nil
}

// Mail is a recipient-less mail intent.
type Mail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	URL     string `json:"url"`
}

// MailIntent prepares the subject, body and mailto URL for sending the
// receipt of r. The recipient is left to the mail client.
func MailIntent(r core.Record) Mail {
	rc := Build(r, nil)
	subject := fmt.Sprintf("Recibo de %s - %s", strings.Join(rc.Types, ", "), rc.Number)
	body := fmt.Sprintf("Hola %s,\n\nAdjunto encontrarás el recibo correspondiente a la operación realizada el %s.\n\nDetalles:\nConcepto: %s\nImporte: %s\n\nGracias.",
		strings.TrimSpace(r.FirstName), formatDate(r.Date), rc.Concept, rc.Total.Display())
	return Mail{
		Subject: subject,
		Body:    body,
		URL:     "mailto:?subject=" + escape(subject) + "&body=" + escape(body),
	}
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// PDFFilename is the name used when the receipt is exported to PDF.
func PDFFilename(r core.Record) string {
	id := r.ID
	if len(id) > 6 {
		id = id[:6]
	}
	return fmt.Sprintf("Recibo_%s_%s.pdf", strings.TrimSpace(r.FirstName), id)
}
