package algo

import (
	"math"

	"github.com/huangsam/peakbase/schema"
	"gonum.org/v1/gonum/floats"
)

// Downsample reduces (x, y) to threshold points with Largest-Triangle-Three-Buckets.
// Inputs with no more than threshold points, or a threshold of zero, are returned as is.
// The first and last points are always kept.
func Downsample(x, y []float64, threshold int) ([]float64, []float64, error) {
	if len(x) != len(y) {
		return nil, nil, &schema.LengthError{What: "downsample input", Left: len(x), Right: len(y)}
	}
	n := len(x)
	if threshold <= 0 || n <= threshold {
		return x, y, nil
	}
	if threshold == 1 {
		return []float64{x[0]}, []float64{y[0]}, nil
	}

	outX := make([]float64, 0, threshold)
	outY := make([]float64, 0, threshold)
	outX = append(outX, x[0])
	outY = append(outY, y[0])

	bucketSize := float64(n-2) / float64(threshold-2)
	a := 0
	for i := 1; i < threshold-1; i++ {
		start := bucketBound(i-1, bucketSize, n)
		end := bucketBound(i, bucketSize, n)
		nextStart := min(end, n-1)
		nextEnd := bucketBound(i+1, bucketSize, n)

		avgX, avgY := x[nextStart], y[nextStart]
		if nextEnd > nextStart {
			count := float64(nextEnd - nextStart)
			avgX = floats.Sum(x[nextStart:nextEnd]) / count
			avgY = floats.Sum(y[nextStart:nextEnd]) / count
		}

		ax, ay := x[a], y[a]
		maxArea := -1.0
		maxIdx := min(start, n-1)
		for j := start; j < end; j++ {
			area := math.Abs((ax-avgX)*(y[j]-ay) - (ax-x[j])*(avgY-ay))
			if area > maxArea {
				maxArea = area
				maxIdx = j
			}
		}

		outX = append(outX, x[maxIdx])
		outY = append(outY, y[maxIdx])
		a = maxIdx
	}

	outX = append(outX, x[n-1])
	outY = append(outY, y[n-1])
	return outX, outY, nil
}

// bucketBound is the floored start index of bucket k, offset past the first point.
func bucketBound(k int, size float64, n int) int {
	return min(int(math.Floor(float64(k)*size))+1, n)
}
