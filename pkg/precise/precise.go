// Package precise converts between floating-point token amounts and the
// fixed-point integers stored in aggregates. TLM bounties arrive as decimal
// strings; totals are kept as scaled integers to avoid float drift.
package precise

import "math"

// FloatToInt scales input by 10^precision and rounds to the nearest integer.
// Inputs that are already integral are returned unscaled.
func FloatToInt(input float64, precision int) int64 {
	if input == math.Trunc(input) {
		return int64(input)
	}
	factor := math.Pow10(precision)
	return int64(math.Round(input * factor))
}

// IntToFloat reverses FloatToInt for display purposes.
func IntToFloat(input int64, precision int) float64 {
	factor := math.Pow10(precision)
	return float64(input) / factor
}
