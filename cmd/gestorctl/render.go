package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"gestor/internal/core"
	"gestor/internal/report"
)

// printMarkdown renders md for the terminal, or prints it as is with -plain.
func (e *env) printMarkdown(md string) error {
	if e.plain {
		_, err := fmt.Fprint(e.out, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = fmt.Fprint(e.out, out)
	return err
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func recordsMarkdown(records []core.Record) string {
	if len(records) == 0 {
		return "_Sin registros._\n"
	}
	var b strings.Builder
	b.WriteString("| ID | Fecha | Cliente | DNI | Tipos | Importe | Estado |\n")
	b.WriteString("|---|---|---|---|---|---:|---|\n")
	for _, r := range records {
		state := "activo"
		if r.Completed {
			state = "completado"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			cell(r.ID), r.Date, cell(r.FullName()), cell(r.DNI),
			cell(strings.Join(r.Types, ", ")), r.Amount.Display(), state)
	}
	fmt.Fprintf(&b, "\n%d registros\n", len(records))
	return b.String()
}

func totalsMarkdown(title string, t report.Totals) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", title)
	b.WriteString("| Concepto | Total |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Ventas | %s |\n", t.TotalVentas.Display())
	fmt.Fprintf(&b, "| Reparaciones | %s |\n", t.TotalReparaciones.Display())
	fmt.Fprintf(&b, "| Por pagar | %s |\n", t.TotalPorPagar.Display())
	fmt.Fprintf(&b, "| **Ingresos** | **%s** |\n", t.TotalEarned.Display())
	fmt.Fprintf(&b, "\n%d registros\n", t.Count)
	return b.String()
}

func statsMarkdown(s report.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Estadísticas (%s)\n\n", s.Period)
	fmt.Fprintf(&b, "%s → %s\n\n", s.Start.Format("2006-01-02 15:04"), s.End.Format("2006-01-02 15:04"))

	withPending := len(s.Pending) == len(s.Labels) && len(s.Pending) > 0
	b.WriteString("| | Ventas | Reparaciones |")
	if withPending {
		b.WriteString(" Por pagar |")
	}
	b.WriteString("\n|---|---:|---:|")
	if withPending {
		b.WriteString("---:|")
	}
	b.WriteString("\n")
	for i, label := range s.Labels {
		fmt.Fprintf(&b, "| %s | %s | %s |", label, s.Sales[i].Display(), s.Repairs[i].Display())
		if withPending {
			fmt.Fprintf(&b, " %s |", s.Pending[i].Display())
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(totalsMarkdown("Totales", s.Totals))
	return b.String()
}

func historyMarkdown(target core.Record, h report.ClientHistory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Historial de %s (%s)\n\n", cell(target.FullName()), cell(h.DNI))
	fmt.Fprintf(&b, "%d operaciones, total gastado **%s**\n\n", h.Count, h.TotalSpent.Display())
	b.WriteString(recordsMarkdown(h.Records))
	return b.String()
}
