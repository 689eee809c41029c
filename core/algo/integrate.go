package algo

import (
	"cmp"
	"slices"

	"github.com/huangsam/peakbase/schema"
	"gonum.org/v1/gonum/integrate"
)

// rule integrates y over x for a matched slice.
type rule func(x, y []float64) float64

// resolveRule maps an integration method to its numeric rule.
func resolveRule(method schema.IntegrationMethod) (rule, error) {
	switch method {
	case schema.TrapezoidalIntegration, schema.SimpsonIntegration:
		return Trapezoidal, nil
	default:
		return nil, &schema.MethodError{Kind: "integration", Method: string(method)}
	}
}

// Trapezoidal applies the trapezoidal rule. Fewer than two samples integrate to zero.
func Trapezoidal(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return integrate.Trapezoidal(x, y)
}

// IntegratePairs computes one area per pair whose endpoints both match a sample
// of x. Unmatched pairs are skipped and counted in the second return value.
// Results are stable-sorted by start.
func IntegratePairs(x, y []float64, pairs []schema.IntegralPair, method schema.IntegrationMethod) ([]schema.IntegralResult, int, error) {
	integrateSlice, err := resolveRule(method)
	if err != nil {
		return nil, 0, err
	}
	if len(x) != len(y) {
		return nil, 0, &schema.LengthError{What: "integration input", Left: len(x), Right: len(y)}
	}

	results := make([]schema.IntegralResult, 0, len(pairs))
	dropped := 0
	for _, p := range pairs {
		si, ei := MatchIndex(x, p.Start), MatchIndex(x, p.End)
		if si < 0 || ei < 0 {
			dropped++
			continue
		}
		// A pair selected right to left covers the same samples.
		if si > ei {
			si, ei = ei, si
		}
		results = append(results, schema.IntegralResult{
			Start:      p.Start,
			End:        p.End,
			Area:       integrateSlice(x[si:ei+1], y[si:ei+1]),
			SampleName: schema.SampleNameOrDefault(p.SampleName),
		})
	}

	slices.SortStableFunc(results, func(a, b schema.IntegralResult) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return results, dropped, nil
}
