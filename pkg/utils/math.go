package utils

import (
	"math"
)

// DecibelSum adds sound pressure levels on an energy basis: 10*log10(sum 10^(L/10)).
// An empty input yields -Inf.
func DecibelSum(levels []float64) float64 {
	if len(levels) == 0 {
		return math.Inf(-1)
	}
	peak := levels[0]
	for _, l := range levels[1:] {
		peak = math.Max(peak, l)
	}
	// factor the loudest band out to keep the exponentials in range
	sum := 0.0
	for _, l := range levels {
		sum += math.Pow(10, (l-peak)/10)
	}
	return peak + 10*math.Log10(sum)
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
