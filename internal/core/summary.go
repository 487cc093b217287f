package core

import "math"

// topCategoryCount is how many named categories the breakdown keeps before
// collapsing the remainder into a synthetic "other" entry.
const topCategoryCount = 3

// PeriodTotals are the aggregate amounts for one inclusive date range.
// Expenses carries its negative sign, so Remaining == Income + Expenses.
type PeriodTotals struct {
	Income    int64 `json:"income"`
	Expenses  int64 `json:"expenses"`
	Remaining int64 `json:"remaining"`
}

// DailyBucket is the activity of a single calendar day. Unlike the signed
// transaction amount, Expenses here is a positive magnitude.
type DailyBucket struct {
	Date     Date  `json:"date"`
	Income   int64 `json:"income"`
	Expenses int64 `json:"expenses"`
}

// CategoryAggregate is the summed absolute expense amount for one category.
type CategoryAggregate struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Summary is the aggregated view model returned by the summary endpoint.
type Summary struct {
	RemainingAmount int64               `json:"remainingAmount"`
	RemainingChange float64             `json:"remainingChange"`
	IncomeAmount    int64               `json:"incomeAmount"`
	IncomeChange    float64             `json:"incomeChange"`
	ExpensesAmount  int64               `json:"expensesAmount"`
	ExpensesChange  float64             `json:"expensesChange"`
	Categories      []CategoryAggregate `json:"categories"`
	Days            []DailyBucket       `json:"days"`
}

// PercentageChange computes the period-over-period change of a metric,
// rounded to two decimals. A zero baseline is handled explicitly: zero to
// zero is 0, zero to anything else is reported as 100.
func PercentageChange(current, previous int64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	change := float64(current-previous) / math.Abs(float64(previous)) * 100
	return math.Round(change*100) / 100
}

// RollupCategories ranks category aggregates descending by value, keeps the
// top three and collapses everything beyond into a single "other" entry.
// The input is expected already ordered descending by the storage query.
// Output never exceeds four entries.
func RollupCategories(ranked []CategoryAggregate) []CategoryAggregate {
	if len(ranked) <= topCategoryCount {
		return ranked
	}
	top := make([]CategoryAggregate, topCategoryCount, topCategoryCount+1)
	copy(top, ranked[:topCategoryCount])
	var otherSum int64
	for _, c := range ranked[topCategoryCount:] {
		otherSum += c.Value
	}
	return append(top, CategoryAggregate{Name: "other", Value: otherSum})
}

// FillMissingDays produces one bucket per calendar day in [start, end]
// inclusive, in chronological order, taking the sparse bucket when present
// and a zero bucket otherwise. Pure function: gaps are never dropped and the
// input is never mutated.
func FillMissingDays(active []DailyBucket, start, end Date) []DailyBucket {
	byDate := make(map[string]DailyBucket, len(active))
	for _, b := range active {
		byDate[b.Date.String()] = b
	}

	n := start.DaysBetween(end) + 1
	if n < 0 {
		n = 0
	}
	filled := make([]DailyBucket, 0, n)
	for d := start; !d.After(end); d = d.AddDays(1) {
		if b, ok := byDate[d.String()]; ok {
			filled = append(filled, b)
		} else {
			filled = append(filled, DailyBucket{Date: d})
		}
	}
	return filled
}
