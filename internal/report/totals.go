// Package report derives dashboard totals, period statistics and client
// history from a ledger snapshot. All functions are pure: they never keep
// state between calls and never modify their input.
package report

import (
	"gestor/internal/core"
)

// Totals are the per-category sums shown on the dashboard cards.
type Totals struct {
	Count             int        `json:"count"`
	TotalVentas       core.Money `json:"totalVentas"`
	TotalReparaciones core.Money `json:"totalReparaciones"`
	TotalPorPagar     core.Money `json:"totalPorPagar"`
	TotalEarned       core.Money `json:"totalEarned"`
}

// Sum adds every record into the category totals. A record tagged with
// several categories counts in each of them. Pending payments never count
// as earned.
func Sum(records []core.Record) Totals {
	var t Totals
	for _, r := range records {
		t.add(r)
	}
	t.TotalEarned = t.TotalVentas.Add(t.TotalReparaciones)
	return t
}

func (t *Totals) add(r core.Record) {
	t.Count++
	if r.HasType(core.TagSale) {
		t.TotalVentas = t.TotalVentas.Add(r.Amount)
	}
	if r.HasType(core.TagRepair) {
		t.TotalReparaciones = t.TotalReparaciones.Add(r.Amount)
	}
	if r.HasType(core.TagPending) {
		t.TotalPorPagar = t.TotalPorPagar.Add(r.Amount)
	}
}

// Dashboard totals the currently visible records. Callers pass the output of
// the active filter so the cards follow the search box.
func Dashboard(visible []core.Record) Totals {
	return Sum(visible)
}

// Completed totals only the completed records of the collection.
func Completed(records []core.Record) Totals {
	done := make([]core.Record, 0, len(records))
	for _, r := range records {
		if r.Completed {
			done = append(done, r)
		}
	}
	return Sum(done)
}
