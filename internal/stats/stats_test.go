package stats

import (
	"math"
	"testing"
	"time"

	"autocare/internal/core"
)

func rec(id string, date core.Date, amount float64, cat core.Category) core.ExpenseRecord {
	return core.ExpenseRecord{ID: id, Date: date, Amount: amount, Category: cat}
}

func TestCompute_Aggregates(t *testing.T) {
	records := []core.ExpenseRecord{
		rec("1", core.NewDate(2024, 1, 5), 1000, core.CategoryFuel),
		rec("2", core.NewDate(2024, 2, 10), 2000, core.CategoryMaintenance),
		rec("3", core.NewDate(2024, 2, 20), 1500, core.CategoryFuel),
	}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	s := Compute(records, core.PeriodAll, now)

	if s.TotalSpent != 4500 {
		t.Errorf("TotalSpent = %v, want 4500", s.TotalSpent)
	}
	if s.RecordCount != 3 {
		t.Errorf("RecordCount = %v, want 3", s.RecordCount)
	}
	if s.AverageTicket != 1500 {
		t.Errorf("AverageTicket = %v, want 1500", s.AverageTicket)
	}
	if got := s.CategoryBreakdown[core.CategoryFuel]; got != 2500 {
		t.Errorf("CategoryBreakdown[Fuel] = %v, want 2500", got)
	}
	if got := s.CategoryBreakdown[core.CategoryMaintenance]; got != 2000 {
		t.Errorf("CategoryBreakdown[Maintenance] = %v, want 2000", got)
	}
	if len(s.CategoryBreakdown) != 2 {
		t.Errorf("CategoryBreakdown has %d keys, want 2", len(s.CategoryBreakdown))
	}

	want := []MonthTotal{
		{Month: "2024-01", Amount: 1000},
		{Month: "2024-02", Amount: 3500},
	}
	if len(s.MonthlySeries) != len(want) {
		t.Fatalf("MonthlySeries has %d entries, want %d", len(s.MonthlySeries), len(want))
	}
	for i, w := range want {
		if s.MonthlySeries[i] != w {
			t.Errorf("MonthlySeries[%d] = %+v, want %+v", i, s.MonthlySeries[i], w)
		}
	}
}

func TestCompute_Empty(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s := Compute(nil, core.PeriodAll, now)

	if s.TotalSpent != 0 {
		t.Errorf("TotalSpent = %v, want 0", s.TotalSpent)
	}
	if s.RecordCount != 0 {
		t.Errorf("RecordCount = %v, want 0", s.RecordCount)
	}
	if s.AverageTicket != 0 {
		t.Errorf("AverageTicket = %v, want 0 (no divide-by-zero fault)", s.AverageTicket)
	}
	if len(s.CategoryBreakdown) != 0 {
		t.Errorf("CategoryBreakdown = %v, want empty", s.CategoryBreakdown)
	}
	if len(s.MonthlySeries) != 0 {
		t.Errorf("MonthlySeries = %v, want empty", s.MonthlySeries)
	}
}

func TestCompute_ZeroAmountCategoryOmitted(t *testing.T) {
	records := []core.ExpenseRecord{
		rec("1", core.NewDate(2024, 1, 5), 0, core.CategoryWash),
		rec("2", core.NewDate(2024, 1, 10), 500, core.CategoryFuel),
	}
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	s := Compute(records, core.PeriodAll, now)

	if s.RecordCount != 2 {
		t.Errorf("RecordCount = %v, want 2", s.RecordCount)
	}
	if s.TotalSpent != 500 {
		t.Errorf("TotalSpent = %v, want 500", s.TotalSpent)
	}
	if _, ok := s.CategoryBreakdown[core.CategoryWash]; ok {
		t.Errorf("CategoryBreakdown contains zero-total category: %v", s.CategoryBreakdown)
	}
	if len(s.CategoryBreakdown) != 1 {
		t.Errorf("CategoryBreakdown = %v, want only Fuel", s.CategoryBreakdown)
	}
}

func TestFilter_Periods(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	records := []core.ExpenseRecord{
		rec("old", core.NewDate(2022, 1, 1), 100, core.CategoryFuel),
		rec("year", core.NewDate(2023, 8, 1), 200, core.CategoryFuel),
		rec("quarter", core.NewDate(2024, 4, 1), 300, core.CategoryFuel),
		rec("month", core.NewDate(2024, 6, 1), 400, core.CategoryFuel),
		rec("future", core.NewDate(2024, 7, 1), 500, core.CategoryFuel),
	}

	tests := []struct {
		period  core.StatsPeriod
		wantIDs []string
	}{
		{core.PeriodAll, []string{"old", "year", "quarter", "month", "future"}},
		{core.PeriodMonth, []string{"month"}},
		{core.PeriodQuarter, []string{"quarter", "month"}},
		{core.PeriodYear, []string{"year", "quarter", "month"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			got := Filter(records, tt.period, now)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Filter() returned %d records, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("Filter()[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestFilter_AllReturnsSameSnapshot(t *testing.T) {
	records := []core.ExpenseRecord{
		rec("1", core.NewDate(2024, 1, 1), 10, core.CategoryFuel),
	}
	got := Filter(records, core.PeriodAll, time.Now())
	if len(got) != len(records) {
		t.Fatalf("Filter(all) dropped records: got %d, want %d", len(got), len(records))
	}
}

func TestPeriodStart_Rollover(t *testing.T) {
	// AddDate normalizes: Mar 31 minus one month is Feb 31, which rolls
	// forward to Mar 2 in the 2024 leap year.
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	start, bounded := PeriodStart(core.PeriodMonth, now)
	if !bounded {
		t.Fatal("PeriodStart(month) should be bounded")
	}
	want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("PeriodStart = %v, want %v", start, want)
	}

	if _, bounded := PeriodStart(core.PeriodAll, now); bounded {
		t.Error("PeriodStart(all) should be unbounded")
	}
}

func TestCompute_SumToleratesOrder(t *testing.T) {
	forward := []core.ExpenseRecord{
		rec("1", core.NewDate(2024, 1, 1), 0.1, core.CategoryFuel),
		rec("2", core.NewDate(2024, 1, 2), 0.2, core.CategoryFuel),
		rec("3", core.NewDate(2024, 1, 3), 0.3, core.CategoryFuel),
	}
	reversed := []core.ExpenseRecord{forward[2], forward[1], forward[0]}
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	a := Compute(forward, core.PeriodAll, now)
	b := Compute(reversed, core.PeriodAll, now)

	if math.Abs(a.TotalSpent-b.TotalSpent) > 1e-9 {
		t.Errorf("sum depends on record order: %v vs %v", a.TotalSpent, b.TotalSpent)
	}
	if math.Abs(a.TotalSpent-0.6) > 1e-9 {
		t.Errorf("TotalSpent = %v, want 0.6 within tolerance", a.TotalSpent)
	}
}

func TestCompute_RepeatedCallsDoNotInterfere(t *testing.T) {
	records := []core.ExpenseRecord{
		rec("1", core.NewDate(2024, 1, 5), 1000, core.CategoryFuel),
		rec("2", core.NewDate(2024, 6, 10), 2000, core.CategoryTax),
	}
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	first := Compute(records, core.PeriodMonth, now)
	second := Compute(records, core.PeriodAll, now)
	third := Compute(records, core.PeriodMonth, now)

	if first.TotalSpent != third.TotalSpent || first.RecordCount != third.RecordCount {
		t.Errorf("repeated computation diverged: %+v vs %+v", first, third)
	}
	if second.RecordCount != 2 {
		t.Errorf("Compute(all).RecordCount = %d, want 2", second.RecordCount)
	}
}
