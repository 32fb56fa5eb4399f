// Package stats computes period-filtered aggregates over expense records.
// All functions are pure: they read a snapshot of the collection and keep
// no state between calls.
package stats

import (
	"sort"
	"time"

	"autocare/internal/core"
)

// MonthTotal is one entry of the monthly spending series.
type MonthTotal struct {
	Month  string  `json:"month"` // YYYY-MM
	Amount float64 `json:"amount"`
}

// Summary holds every aggregate derived from one period filter.
type Summary struct {
	Period            core.StatsPeriod          `json:"period"`
	Filtered          []core.ExpenseRecord      `json:"-"`
	TotalSpent        float64                   `json:"totalSpent"`
	RecordCount       int                       `json:"recordCount"`
	AverageTicket     float64                   `json:"averageTicket"`
	CategoryBreakdown map[core.Category]float64 `json:"categoryBreakdown"`
	MonthlySeries     []MonthTotal              `json:"monthlySeries"`
}

// PeriodStart returns the lower bound of the period window ending at now.
// Window arithmetic uses time.Time.AddDate, which normalizes out-of-range
// dates forward (Mar 31 minus one month lands in early March). That
// rollover is the documented behavior of the period filter, kept as-is.
// The second return value is false for the unbounded "all" period.
func PeriodStart(p core.StatsPeriod, now time.Time) (time.Time, bool) {
	switch p {
	case core.PeriodMonth:
		return now.AddDate(0, -1, 0), true
	case core.PeriodQuarter:
		return now.AddDate(0, -3, 0), true
	case core.PeriodYear:
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// Filter returns the records whose date falls within [start, now] for the
// given period, or the whole collection for PeriodAll.
func Filter(records []core.ExpenseRecord, p core.StatsPeriod, now time.Time) []core.ExpenseRecord {
	start, bounded := PeriodStart(p, now)
	if !bounded {
		return records
	}

	filtered := make([]core.ExpenseRecord, 0, len(records))
	for _, r := range records {
		if r.Date.Before(start) || r.Date.After(now) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// Compute derives every aggregate for one period from a snapshot of the
// expense collection. Aggregates are always recomputed from the filtered
// subset, never maintained incrementally.
func Compute(records []core.ExpenseRecord, p core.StatsPeriod, now time.Time) Summary {
	filtered := Filter(records, p, now)

	s := Summary{
		Period:            p,
		Filtered:          filtered,
		RecordCount:       len(filtered),
		CategoryBreakdown: make(map[core.Category]float64),
	}

	months := make(map[string]float64)
	for _, r := range filtered {
		s.TotalSpent += r.Amount
		s.CategoryBreakdown[r.Category] += r.Amount
		months[r.Date.MonthKey()] += r.Amount
	}

	// Amounts are non-negative, so a zero total means every record in the
	// category was zero; such categories are omitted from the breakdown.
	for c, total := range s.CategoryBreakdown {
		if total == 0 {
			delete(s.CategoryBreakdown, c)
		}
	}

	if s.RecordCount > 0 {
		s.AverageTicket = s.TotalSpent / float64(s.RecordCount)
	}

	s.MonthlySeries = make([]MonthTotal, 0, len(months))
	for month, amount := range months {
		s.MonthlySeries = append(s.MonthlySeries, MonthTotal{Month: month, Amount: amount})
	}
	// Lexicographic order on YYYY-MM keys is chronological order.
	sort.Slice(s.MonthlySeries, func(i, j int) bool {
		return s.MonthlySeries[i].Month < s.MonthlySeries[j].Month
	})

	return s
}
