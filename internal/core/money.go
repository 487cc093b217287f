// Package core provides the finance domain model and the arithmetic shared
// by the summary engine and the import pipeline.
//
// This file contains conversions between decimal display amounts and the
// integer miliunit representation used in storage. All storage arithmetic is
// done on miliunits to avoid floating-point drift.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// miliunitScale converts between display units and miliunits.
var miliunitScale = decimal.NewFromInt(1000)

// ParseAmountToMiliunits converts a decimal string to miliunits with half-up
// rounding on any precision beyond the scale. Signed values are accepted:
// negative amounts are expenses, non-negative amounts are income.
//
// Examples:
//
//	ParseAmountToMiliunits("12.345")  -> 12345, nil
//	ParseAmountToMiliunits("12.3456") -> 12346, nil (rounds, not truncates)
//	ParseAmountToMiliunits("-4.50")   -> -4500, nil
func ParseAmountToMiliunits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	scaled := d.Mul(miliunitScale).Round(0)
	if !scaled.IsInteger() || scaled.Exponent() < 0 {
		return 0, ErrInvalidAmount
	}
	return scaled.IntPart(), nil
}

// ToMiliunits converts a display amount to miliunits, rounding half-up.
func ToMiliunits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(miliunitScale).Round(0).IntPart()
}

// FromMiliunits converts a stored miliunit amount back to a display value.
func FromMiliunits(m int64) float64 {
	f, _ := decimal.NewFromInt(m).Div(miliunitScale).Float64()
	return f
}

// Display returns the amount as a decimal display value.
func (m Money) Display() float64 {
	return FromMiliunits(m.Miliunits)
}
