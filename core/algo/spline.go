package algo

import (
	"cmp"
	"slices"

	"github.com/huangsam/peakbase/schema"
)

// anchor is a matched baseline point.
type anchor struct {
	x, y float64
}

// BuildBaselineSpline builds a baseline curve sampled at every x from the
// chosen anchor x-values. Anchors without a matching sample are skipped and
// counted in the second return value. With no usable anchors the curve is all zeros.
func BuildBaselineSpline(x, y, chosen []float64, method schema.InterpolationMethod) ([]float64, int, error) {
	if _, ok := schema.ValidInterpolationMethods[method]; !ok {
		return nil, 0, &schema.MethodError{Kind: "interpolation", Method: string(method)}
	}
	if len(x) != len(y) {
		return nil, 0, &schema.LengthError{What: "baseline spline input", Left: len(x), Right: len(y)}
	}

	anchors, dropped := matchAnchors(x, y, chosen)
	spline := make([]float64, len(x))
	if len(anchors) == 0 {
		return spline, dropped, nil
	}
	interpolateLinear(x, anchors, spline)
	return spline, dropped, nil
}

// matchAnchors resolves chosen x-values to samples and orders them by x.
func matchAnchors(x, y, chosen []float64) ([]anchor, int) {
	anchors := make([]anchor, 0, len(chosen))
	dropped := 0
	for _, v := range chosen {
		i := MatchIndex(x, v)
		if i < 0 {
			dropped++
			continue
		}
		anchors = append(anchors, anchor{x: x[i], y: y[i]})
	}
	slices.SortStableFunc(anchors, func(a, b anchor) int { return cmp.Compare(a.x, b.x) })
	// Two chosen values can resolve to the same sample.
	anchors = slices.CompactFunc(anchors, func(a, b anchor) bool { return a.x == b.x })
	return anchors, dropped
}

// interpolateLinear writes the piecewise-linear curve through anchors into out,
// holding the end values flat outside the anchor range.
func interpolateLinear(x []float64, anchors []anchor, out []float64) {
	first, last := anchors[0], anchors[len(anchors)-1]
	j := 0
	for i, xi := range x {
		switch {
		case xi <= first.x:
			out[i] = first.y
		case xi >= last.x:
			out[i] = last.y
		default:
			for j > 0 && anchors[j].x > xi {
				j--
			}
			for anchors[j+1].x < xi {
				j++
			}
			a, b := anchors[j], anchors[j+1]
			if xi == b.x {
				// Anchors are reproduced exactly, not through the slope.
				out[i] = b.y
				continue
			}
			out[i] = a.y + (xi-a.x)/(b.x-a.x)*(b.y-a.y)
		}
	}
}
