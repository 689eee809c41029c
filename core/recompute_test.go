package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/huangsam/peakbase/internal/store"
	"github.com/huangsam/peakbase/schema"
)

func TestStoredEdit(t *testing.T) {
	_, ok := storedEdit(schema.Channel{})
	assert.False(t, ok)

	edit, ok := storedEdit(schema.Channel{BaselineChosenPoints: []float64{}})
	require.True(t, ok)
	assert.True(t, edit.TouchesBaseline())
	assert.False(t, edit.TouchesIntegrals())
}

func TestRecomputeExperiment(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	s := store.NewMemoryStore()

	exp := schema.Experiment{ID: "e1"}
	for i := range 12 {
		ch := schema.Channel{
			ID:          fmt.Sprintf("c%02d", i),
			ChannelName: fmt.Sprintf("CH%02d", i),
			TimeValues:  []float64{0, 1, 2, 3, 4},
			RawValues:   []float64{10, 8, 6, 9, 11},
		}
		if i%3 != 0 {
			ch.BaselineChosenPoints = []float64{0, 4}
			ch.IntegralChosenPairs = []schema.IntegralPair{{Start: 0, End: 2, SampleName: "A"}}
		}
		exp.Channels = append(exp.Channels, ch)
	}
	require.NoError(t, s.CreateExperiment(ctx, exp))

	result, err := RecomputeExperiment(ctx, s, "e1", 4)
	require.NoError(t, err)
	assert.Equal(t, "e1", result.ExperimentID)
	assert.Equal(t, 12, result.Channels)
	assert.Equal(t, 8, result.Recomputed)
	assert.Equal(t, 4, result.Skipped)
	assert.Empty(t, result.Failed)

	ch, err := s.GetChannel(ctx, "c01")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, -2.25, -4.5, -1.75, 0}, ch.BaselineValues)
	require.Len(t, ch.IntegralResults, 1)
	assert.InDelta(t, -4.5, ch.IntegralResults[0].Area, 1e-9)

	untouched, err := s.GetChannel(ctx, "c00")
	require.NoError(t, err)
	assert.Nil(t, untouched.BaselineValues)
}

func TestRecomputeExperimentReportsFailures(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	m := &store.MockChannelStore{}

	good := schema.Channel{ID: "good", TimeValues: []float64{0, 1}, RawValues: []float64{1, 1}, BaselineChosenPoints: []float64{0}}
	bad := schema.Channel{ID: "bad", TimeValues: []float64{0, 1}, RawValues: []float64{1}, BaselineChosenPoints: []float64{0}}
	m.On("GetExperiment", mock.Anything, "e1").Return(schema.Experiment{ID: "e1", Channels: []schema.Channel{good, bad}}, nil)
	m.On("CommitChannel", mock.Anything, "good", mock.Anything).Return(good, nil)
	m.On("CommitChannel", mock.Anything, "bad", mock.Anything).Return(bad, nil)

	result, err := RecomputeExperiment(ctx, m, "e1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Recomputed)
	assert.Equal(t, []string{"bad"}, result.Failed)
	m.AssertExpectations(t)
}

func TestRecomputeExperimentCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	s := newTestStore(t)
	_, err := EditChannel(context.Background(), s, "c1", schema.ChannelEdit{BaselineChosenPoints: floats(0, 4)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RecomputeExperiment(ctx, s, "e1", 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecomputeExperimentNotFound(t *testing.T) {
	_, err := RecomputeExperiment(context.Background(), store.NewMemoryStore(), "nope", 1)
	assert.ErrorIs(t, err, schema.ErrNotFound)
}
