// Package query selects the visible subset of the ledger for a tab and a
// free text search. Everything here is a pure function of its inputs.
package query

import (
	"strings"

	"gestor/internal/core"
)

// Tabs with special meaning. Any other tab name is treated as a type tag.
const (
	TabDashboard = "dashboard"
	TabAll       = "all"
	TabCompleted = "completados"
)

// Filter returns the records visible in tab that match q, preserving order.
//
// The completed tab shows only completed records. Every other tab shows only
// active ones, and tag tabs further require the tag in the record's types.
func Filter(records []core.Record, tab, q string) []core.Record {
	tab = strings.TrimSpace(tab)
	needle := strings.ToLower(strings.TrimSpace(q))

	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if !inTab(r, tab) {
			continue
		}
		if !Matches(r, needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func inTab(r core.Record, tab string) bool {
	switch tab {
	case TabCompleted:
		return r.Completed
	case "", TabDashboard, TabAll:
		return !r.Completed
	default:
		return !r.Completed && r.HasType(tab)
	}
}

// Matches reports whether needle, already lower-cased and trimmed, is a
// substring of the record's dni, names, phone or id.
func Matches(r core.Record, needle string) bool {
	if needle == "" {
		return true
	}
	for _, field := range []string{r.DNI, r.FirstName, r.LastName, r.Phone, r.ID} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Active returns the records that are not completed.
func Active(records []core.Record) []core.Record {
	return Filter(records, TabDashboard, "")
}

// Completed returns the completed records.
func Completed(records []core.Record) []core.Record {
	return Filter(records, TabCompleted, "")
}

// Find returns the record with id.
func Find(records []core.Record, id string) (core.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return core.Record{}, false
}
