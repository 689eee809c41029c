package algo

import (
	"math"
	"testing"

	"github.com/huangsam/peakbase/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrapezoidal(t *testing.T) {
	assert.Equal(t, 0.0, Trapezoidal(nil, nil))
	assert.Equal(t, 0.0, Trapezoidal([]float64{1}, []float64{5}))
	assert.InDelta(t, -4.5, Trapezoidal([]float64{0, 1, 2}, []float64{0, -2.25, -4.5}), 1e-12)
	assert.InDelta(t, 0.5, Trapezoidal([]float64{0, 1}, []float64{0, 1}), 1e-12)
}

func TestTrapezoidalConstant(t *testing.T) {
	for _, c := range []float64{-3.5, 0, 1, 42.25} {
		x := make([]float64, 101)
		y := make([]float64, 101)
		for i := range x {
			x[i] = 0.3 + float64(i)*0.07
			y[i] = c
		}
		assert.InDelta(t, c*(x[len(x)-1]-x[0]), Trapezoidal(x, y), 1e-9)
	}
}

func TestIntegratePairs(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{0, -2.25, -4.5, -1.75, 0}

	tests := []struct {
		name        string
		pairs       []schema.IntegralPair
		want        []schema.IntegralResult
		wantDropped int
	}{
		{
			name:  "single pair",
			pairs: []schema.IntegralPair{{Start: 0, End: 2, SampleName: "A"}},
			want:  []schema.IntegralResult{{Start: 0, End: 2, Area: -4.5, SampleName: "A"}},
		},
		{
			name: "unmatched start is dropped",
			pairs: []schema.IntegralPair{
				{Start: 0.5, End: 2, SampleName: "bad"},
				{Start: 2, End: 4, SampleName: "B"},
			},
			want:        []schema.IntegralResult{{Start: 2, End: 4, Area: -4.0, SampleName: "B"}},
			wantDropped: 1,
		},
		{
			name: "unmatched end is dropped",
			pairs: []schema.IntegralPair{
				{Start: 0, End: 9, SampleName: "bad"},
			},
			want:        []schema.IntegralResult{},
			wantDropped: 1,
		},
		{
			name:  "default sample name",
			pairs: []schema.IntegralPair{{Start: 1, End: 1}},
			want:  []schema.IntegralResult{{Start: 1, End: 1, Area: 0, SampleName: "undefined"}},
		},
		{
			name:  "reversed pair",
			pairs: []schema.IntegralPair{{Start: 2, End: 0, SampleName: "R"}},
			want:  []schema.IntegralResult{{Start: 2, End: 0, Area: -4.5, SampleName: "R"}},
		},
		{
			name: "sorted by start with stable ties",
			pairs: []schema.IntegralPair{
				{Start: 3, End: 4, SampleName: "late"},
				{Start: 0, End: 1, SampleName: "first"},
				{Start: 0, End: 2, SampleName: "second"},
			},
			want: []schema.IntegralResult{
				{Start: 0, End: 1, Area: -1.125, SampleName: "first"},
				{Start: 0, End: 2, Area: -4.5, SampleName: "second"},
				{Start: 3, End: 4, Area: -0.875, SampleName: "late"},
			},
		},
		{
			name:  "no pairs",
			pairs: nil,
			want:  []schema.IntegralResult{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dropped, err := IntegratePairs(x, y, tt.pairs, schema.TrapezoidalIntegration)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Start, got[i].Start)
				assert.Equal(t, tt.want[i].End, got[i].End)
				assert.Equal(t, tt.want[i].SampleName, got[i].SampleName)
				assert.InDelta(t, tt.want[i].Area, got[i].Area, 1e-12)
			}
			assert.Equal(t, tt.wantDropped, dropped)
		})
	}
}

func TestIntegratePairsSimpsonAlias(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{0, 1, 4, 9, 16}
	pairs := []schema.IntegralPair{{Start: 0, End: 4, SampleName: "sq"}}

	trapz, _, err := IntegratePairs(x, y, pairs, schema.TrapezoidalIntegration)
	require.NoError(t, err)
	simpson, _, err := IntegratePairs(x, y, pairs, schema.SimpsonIntegration)
	require.NoError(t, err)
	assert.Equal(t, trapz, simpson)
	assert.InDelta(t, 22.0, simpson[0].Area, 1e-12)
}

func TestIntegratePairsErrors(t *testing.T) {
	x := []float64{0, 1, 2}
	pairs := []schema.IntegralPair{{Start: 0, End: 2}}

	got, _, err := IntegratePairs(x, []float64{1, 2, 3}, pairs, "romberg")
	assert.ErrorIs(t, err, schema.ErrUnsupportedMethod)
	assert.Nil(t, got)

	got, _, err = IntegratePairs(x, []float64{1, 2}, pairs, schema.TrapezoidalIntegration)
	assert.ErrorIs(t, err, schema.ErrLengthMismatch)
	assert.Nil(t, got)
}

// FuzzTrapezoidalConstant checks c*(b-a) for constant signals on uniform grids.
func FuzzTrapezoidalConstant(f *testing.F) {
	f.Add(uint8(5), 1.5, 0.0, 0.1)
	f.Add(uint8(2), -7.0, 100.0, 3.0)

	f.Fuzz(func(t *testing.T, n uint8, c, start, step float64) {
		if n < 2 || step <= 0 || math.IsNaN(c) || math.IsNaN(start) || math.IsNaN(step) {
			return
		}
		if math.Abs(c) > 1e3 || math.Abs(start) > 1e3 || step > 10 || step < 1e-3 {
			return
		}
		x := make([]float64, n)
		y := make([]float64, n)
		for i := range x {
			x[i] = start + float64(i)*step
			y[i] = c
		}
		want := c * (x[len(x)-1] - x[0])
		if got := Trapezoidal(x, y); math.Abs(got-want) > 1e-6 {
			t.Fatalf("got %v, want %v", got, want)
		}
	})
}

func BenchmarkIntegratePairs(b *testing.B) {
	x, y := sineSeries(10000)
	pairs := make([]schema.IntegralPair, 20)
	for i := range pairs {
		pairs[i] = schema.IntegralPair{Start: float64(i * 400), End: float64(i*400 + 300)}
	}

	for b.Loop() {
		_, _, _ = IntegratePairs(x, y, pairs, schema.TrapezoidalIntegration)
	}
}
