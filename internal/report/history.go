package report

import (
	"sort"

	"gestor/internal/core"
)

// ClientHistory is every record sharing a dni, newest business date first.
type ClientHistory struct {
	DNI        string        `json:"dni"`
	Records    []core.Record `json:"records"`
	Count      int           `json:"count"`
	TotalSpent core.Money    `json:"totalSpent"`
}

// History groups the records of the client owning target. Pending payments
// are listed but excluded from TotalSpent.
func History(records []core.Record, target core.Record) ClientHistory {
	key := core.NormalizeDNI(target.DNI)
	h := ClientHistory{DNI: key, Records: []core.Record{}}
	if key == "" {
		return h
	}
	for _, r := range records {
		if core.NormalizeDNI(r.DNI) != key {
			continue
		}
		h.Records = append(h.Records, r)
		if !r.HasType(core.TagPending) {
			h.TotalSpent = h.TotalSpent.Add(r.Amount)
		}
	}
	sort.SliceStable(h.Records, func(i, j int) bool {
		return h.Records[i].Date.After(h.Records[j].Date.Time)
	})
	h.Count = len(h.Records)
	return h
}
