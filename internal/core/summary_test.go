package core

import "testing"

func TestPercentageChange(t *testing.T) {
	cases := []struct {
		name     string
		current  int64
		previous int64
		want     float64
	}{
		{"zero to zero", 0, 0, 0},
		{"zero to nonzero", 5000, 0, 100},
		{"zero to negative", -5000, 0, 100},
		{"doubling", 2000, 1000, 100},
		{"halving", 500, 1000, -50},
		{"negative baseline", -500, -1000, 50},
		{"rounds to two decimals", 1000, 3000, -66.67},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PercentageChange(tc.current, tc.previous); got != tc.want {
				t.Errorf("PercentageChange(%d, %d) = %v, want %v", tc.current, tc.previous, got, tc.want)
			}
		})
	}
}

func TestFillMissingDays(t *testing.T) {
	start := NewDate(2024, 1, 1)
	end := NewDate(2024, 1, 5)

	active := []DailyBucket{
		{Date: NewDate(2024, 1, 2), Income: 1000, Expenses: 500},
		{Date: NewDate(2024, 1, 4), Income: 0, Expenses: 2000},
	}

	filled := FillMissingDays(active, start, end)
	if len(filled) != 5 {
		t.Fatalf("expected 5 buckets, got %d", len(filled))
	}

	// Chronological order, one bucket per day
	for i, b := range filled {
		want := start.AddDays(i)
		if b.Date.String() != want.String() {
			t.Errorf("bucket %d: date %s, want %s", i, b.Date, want)
		}
	}

	// Gaps are zero-filled, present days keep their values
	if filled[0].Income != 0 || filled[0].Expenses != 0 {
		t.Errorf("gap day not zero-filled: %+v", filled[0])
	}
	if filled[1].Income != 1000 || filled[1].Expenses != 500 {
		t.Errorf("active day lost values: %+v", filled[1])
	}

	// Conservation: sums over the filled series equal sums over the input
	var gotIncome, gotExpenses, wantIncome, wantExpenses int64
	for _, b := range filled {
		gotIncome += b.Income
		gotExpenses += b.Expenses
	}
	for _, b := range active {
		wantIncome += b.Income
		wantExpenses += b.Expenses
	}
	if gotIncome != wantIncome || gotExpenses != wantExpenses {
		t.Errorf("filling changed totals: income %d/%d expenses %d/%d",
			gotIncome, wantIncome, gotExpenses, wantExpenses)
	}
}

func TestFillMissingDaysEmptyInput(t *testing.T) {
	start := NewDate(2024, 3, 1)
	end := NewDate(2024, 3, 31)
	filled := FillMissingDays(nil, start, end)
	if len(filled) != 31 {
		t.Fatalf("expected 31 buckets for empty input, got %d", len(filled))
	}
	for _, b := range filled {
		if b.Income != 0 || b.Expenses != 0 {
			t.Fatalf("expected zero bucket, got %+v", b)
		}
	}
}

func TestFillMissingDaysSingleDay(t *testing.T) {
	d := NewDate(2024, 6, 15)
	filled := FillMissingDays(nil, d, d)
	if len(filled) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(filled))
	}
}

func TestRollupCategories(t *testing.T) {
	ranked := []CategoryAggregate{
		{Name: "rent", Value: 90000},
		{Name: "food", Value: 45000},
		{Name: "transport", Value: 20000},
		{Name: "fun", Value: 9000},
		{Name: "misc", Value: 1000},
	}

	got := RollupCategories(ranked)
	if len(got) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(got))
	}
	last := got[3]
	if last.Name != "other" {
		t.Errorf("last entry should be other, got %q", last.Name)
	}
	if last.Value != 10000 {
		t.Errorf("other should sum entries beyond rank 3: got %d, want 10000", last.Value)
	}
}

func TestRollupCategoriesNoRemainder(t *testing.T) {
	ranked := []CategoryAggregate{
		{Name: "rent", Value: 90000},
		{Name: "food", Value: 45000},
	}
	got := RollupCategories(ranked)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	for _, c := range got {
		if c.Name == "other" {
			t.Error("no other entry expected when remainder is empty")
		}
	}
}

func TestDateBoundaries(t *testing.T) {
	start := NewDate(2024, 1, 1)
	end := NewDate(2024, 1, 10)
	if n := start.DaysBetween(end) + 1; n != 10 {
		t.Errorf("inclusive day count = %d, want 10", n)
	}

	// Each comparison boundary is shifted independently by the period length.
	periodLength := start.DaysBetween(end) + 1
	lastStart := start.AddDays(-periodLength)
	lastEnd := end.AddDays(-periodLength)
	if lastStart.String() != "2023-12-22" {
		t.Errorf("lastStart = %s, want 2023-12-22", lastStart)
	}
	if lastEnd.String() != "2023-12-31" {
		t.Errorf("lastEnd = %s, want 2023-12-31", lastEnd)
	}
}
