package core

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/peakbase/schema"
)

func TestGetChannelView(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("before any edit", func(t *testing.T) {
		view, err := GetChannelView(ctx, s, "c1", 0)
		require.NoError(t, err)
		assert.Equal(t, 5, view.SampleCount)
		assert.Equal(t, []float64{0, 1, 2, 3, 4}, view.Raw.X)
		assert.Equal(t, []float64{10, 8, 6, 9, 11}, view.Raw.Y)
		assert.NotNil(t, view.Baseline.X)
		assert.Empty(t, view.Baseline.X)
		assert.NotNil(t, view.IntegralResults)
	})

	t.Run("downsampled after edit", func(t *testing.T) {
		_, err := EditChannel(ctx, s, "c1", schema.ChannelEdit{BaselineChosenPoints: floats(0, 4)})
		require.NoError(t, err)

		view, err := GetChannelView(ctx, s, "c1", 3)
		require.NoError(t, err)
		assert.Equal(t, 3, view.Points)
		require.Len(t, view.Raw.X, 3)
		assert.Equal(t, 0.0, view.Raw.X[0])
		assert.Equal(t, 4.0, view.Raw.X[2])
		require.Len(t, view.Baseline.Y, 3)
		assert.Equal(t, -4.5, view.Baseline.Y[1], "the deepest point survives")

		stored, err := s.GetChannel(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, stored.BaselineValues, 5, "views never write back")
	})

	t.Run("errors", func(t *testing.T) {
		_, err := GetChannelView(ctx, s, "c1", -1)
		assert.Error(t, err)
		_, err = GetChannelView(ctx, s, "missing", 10)
		assert.ErrorIs(t, err, schema.ErrNotFound)
	})
}

func TestBuildChannelViewLarge(t *testing.T) {
	n := 1000
	ch := schema.Channel{ID: "big", TimeValues: make([]float64, n), RawValues: make([]float64, n)}
	for i := range n {
		ch.TimeValues[i] = float64(i) * 0.1
		ch.RawValues[i] = math.Sin(float64(i) / 25)
	}
	view, err := BuildChannelView(ch, 100)
	require.NoError(t, err)
	assert.Len(t, view.Raw.X, 100)
	assert.Equal(t, ch.TimeValues[n-1], view.Raw.X[99])
	assert.Equal(t, n, view.SampleCount)
}
