package algo

import (
	"github.com/huangsam/peakbase/schema"
	"gonum.org/v1/gonum/floats"
)

// FilterBaseline subtracts the baseline curve from the raw signal elementwise.
func FilterBaseline(raw, spline []float64) ([]float64, error) {
	if len(raw) != len(spline) {
		return nil, &schema.LengthError{What: "baseline filter", Left: len(raw), Right: len(spline)}
	}
	out := make([]float64, len(raw))
	floats.SubTo(out, raw, spline)
	return out, nil
}
