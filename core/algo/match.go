// Package algo holds the pure numeric kernels behind channel edits:
// anchor matching, baseline splines, baseline subtraction, LTTB downsampling
// and peak integration. Nothing here touches storage.
package algo

import (
	"math"

	"github.com/huangsam/peakbase/schema"
)

// MatchIndex returns the first index i of x with |x[i]-v| < schema.MatchTolerance,
// scanning from the start, or -1 when no sample is close enough.
func MatchIndex(x []float64, v float64) int {
	for i, xi := range x {
		if math.Abs(xi-v) < schema.MatchTolerance {
			return i
		}
	}
	return -1
}

// IsStrictlyIncreasing reports whether every element of x is finite and larger than the previous one.
func IsStrictlyIncreasing(x []float64) bool {
	for i, xi := range x {
		if math.IsNaN(xi) || math.IsInf(xi, 0) {
			return false
		}
		if i > 0 && xi <= x[i-1] {
			return false
		}
	}
	return true
}
