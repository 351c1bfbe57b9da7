package core

import "math"

// -----------------------------------------------------------------------------

// MOHLC is the open/high/low/close of a price window.
type MOHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// ComputeOHLC calculates open, high, low and close from a chronological price array.
func ComputeOHLC(prices []float64) MOHLC {
	if len(prices) == 0 {
		return MOHLC{}
	}

	high := -math.MaxFloat64
	low := math.MaxFloat64
	for _, p := range prices {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}

	return MOHLC{
		Open:  prices[0],
		High:  high,
		Low:   low,
		Close: prices[len(prices)-1],
	}
}

// -----------------------------------------------------------------------------

// CalculateChangePercent calculates fractional change from previous to current.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous
}

// -----------------------------------------------------------------------------

// CalculateSpread returns ask - bid, or 0 when either side is missing.
func CalculateSpread(bid, ask *float64) float64 {
	if bid == nil || ask == nil {
		return 0
	}
	return *ask - *bid
}

// -----------------------------------------------------------------------------

// CalculateMid returns the midpoint of bid and ask, falling back to whichever
// side is present.
func CalculateMid(bid, ask *float64) float64 {
	switch {
	case bid != nil && ask != nil:
		return (*bid + *ask) / 2
	case bid != nil:
		return *bid
	case ask != nil:
		return *ask
	}
	return 0
}
