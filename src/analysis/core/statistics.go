package core

import "math"

// -----------------------------------------------------------------------------
// MMoments holds single-pass descriptive statistics of a sample.
// StdDev is the population deviation (N denominator).
// -----------------------------------------------------------------------------

type MMoments struct {
	Count  int
	Mean   float64
	StdDev float64
}

// Moments runs Welford's update over data; stable for long flat series.
func Moments(data []float64) MMoments {
	var (
		mean float64
		m2   float64
	)
	for i, v := range data {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}
	out := MMoments{Count: len(data), Mean: mean}
	if len(data) > 1 {
		out.StdDev = math.Sqrt(m2 / float64(len(data)))
	}
	return out
}

// ZScore places value relative to the sample; 0 for a flat sample.
func (m MMoments) ZScore(value float64) float64 {
	if m.StdDev == 0 {
		return 0
	}
	return (value - m.Mean) / m.StdDev
}
