package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gestor/internal/core"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts day, week or month, case-insensitively.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	case "":
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", core.ErrValidation, s)
	}
}

// PendingPolicy decides whether pending payments count as period income.
type PendingPolicy string

const (
	PendingExclude PendingPolicy = "exclude"
	PendingInclude PendingPolicy = "include"
)

func ParsePendingPolicy(s string) (PendingPolicy, error) {
	switch p := PendingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PendingExclude, PendingInclude:
		return p, nil
	case "":
		return PendingExclude, nil
	default:
		return "", fmt.Errorf("unknown pending policy %q", s)
	}
}

const (
	firstHour = 9
	lastHour  = 20
	// hour used for records created before creation timestamps existed
	fallbackHour = 12
)

var weekdayLabels = []string{"Lun", "Mar", "Mie", "Jue", "Vie", "Sab", "Dom"}

// Stats is the chart input for one period plus its card totals.
type Stats struct {
	Period  Period        `json:"period"`
	Policy  PendingPolicy `json:"pendingPolicy"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
	Labels  []string      `json:"labels"`
	Sales   []core.Money  `json:"sales"`
	Repairs []core.Money  `json:"repairs"`
	Pending []core.Money  `json:"pending,omitempty"`
	Totals  Totals        `json:"totals"`
}

// PeriodStats aggregates records for the day, week or month containing now.
//
// Card totals include every record dated on or after the window start, with
// no upper bound. The series only receive records inside [Start, End). A
// record tagged both as sale and repair is charted as a sale. Calendar dates
// are read in now's location.
func PeriodStats(records []core.Record, period Period, now time.Time, policy PendingPolicy) Stats {
	loc := now.Location()
	start, end, labels := window(period, now)

	s := Stats{
		Period:  period,
		Policy:  policy,
		Start:   start,
		End:     end,
		Labels:  labels,
		Sales:   make([]core.Money, len(labels)),
		Repairs: make([]core.Money, len(labels)),
	}
	if policy == PendingInclude {
		s.Pending = make([]core.Money, len(labels))
	}

	var inPeriod []core.Record
	for _, r := range records {
		day := r.Date.In(loc)
		if day.Before(start) {
			continue
		}
		inPeriod = append(inPeriod, r)
		if !day.Before(end) {
			continue
		}
		idx := bucket(period, r, day, loc)
		if idx < 0 || idx >= len(labels) {
			continue
		}
		switch {
		case r.HasType(core.TagSale):
			s.Sales[idx] = s.Sales[idx].Add(r.Amount)
		case r.HasType(core.TagRepair):
			s.Repairs[idx] = s.Repairs[idx].Add(r.Amount)
		case policy == PendingInclude && r.HasType(core.TagPending):
			s.Pending[idx] = s.Pending[idx].Add(r.Amount)
		}
	}

	s.Totals = Sum(inPeriod)
	if policy == PendingInclude {
		s.Totals.TotalEarned = s.Totals.TotalEarned.Add(s.Totals.TotalPorPagar)
	}
	return s
}

func window(period Period, now time.Time) (start, end time.Time, labels []string) {
	y, m, d := now.Date()
	loc := now.Location()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch period {
	case PeriodDay:
		for h := firstHour; h <= lastHour; h++ {
			labels = append(labels, fmt.Sprintf("%02d:00", h))
		}
		return today, today.AddDate(0, 0, 1), labels
	case PeriodWeek:
		start = today.AddDate(0, 0, -(isoWeekday(today) - 1))
		return start, start.AddDate(0, 0, 7), append([]string(nil), weekdayLabels...)
	default:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
		days := end.AddDate(0, 0, -1).Day()
		for i := 1; i <= days; i++ {
			labels = append(labels, strconv.Itoa(i))
		}
		return start, end, labels
	}
}

func bucket(period Period, r core.Record, day time.Time, loc *time.Location) int {
	switch period {
	case PeriodDay:
		hour := fallbackHour
		if r.CreatedAt > 0 {
			hour = time.UnixMilli(r.CreatedAt).In(loc).Hour()
		}
		return hour - firstHour
	case PeriodWeek:
		return isoWeekday(day) - 1
	default:
		return day.Day() - 1
	}
}

// isoWeekday numbers Monday 1 through Sunday 7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
