package core

import (
	"context"
	"fmt"

	"github.com/huangsam/peakbase/core/algo"
	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
)

// GetChannelView loads a channel and downsamples its raw and baseline
// signals to at most points samples each. A points value of zero keeps
// every sample. Nothing is written back to the store.
func GetChannelView(ctx context.Context, store contract.ChannelStore, id string, points int) (schema.ChannelView, error) {
	if points < 0 {
		return schema.ChannelView{}, fmt.Errorf("points must be >= 0, got %d", points)
	}
	ch, err := store.GetChannel(ctx, id)
	if err != nil {
		return schema.ChannelView{}, err
	}
	return BuildChannelView(ch, points)
}

// BuildChannelView prepares an already loaded channel for rendering.
func BuildChannelView(ch schema.Channel, points int) (schema.ChannelView, error) {
	rawX, rawY, err := algo.Downsample(ch.TimeValues, ch.RawValues, points)
	if err != nil {
		return schema.ChannelView{}, err
	}

	baseline := schema.Series{X: []float64{}, Y: []float64{}}
	if ch.HasBaseline() {
		bx, by, err := algo.Downsample(ch.TimeValues, ch.BaselineValues, points)
		if err != nil {
			return schema.ChannelView{}, err
		}
		baseline = schema.Series{X: bx, Y: by}
	}

	return schema.ChannelView{
		ID:                   ch.ID,
		ExperimentID:         ch.ExperimentID,
		ChannelName:          ch.ChannelName,
		Points:               points,
		SampleCount:          len(ch.TimeValues),
		Raw:                  schema.Series{X: orEmpty(rawX), Y: orEmpty(rawY)},
		Baseline:             baseline,
		BaselineChosenPoints: orEmpty(ch.BaselineChosenPoints),
		IntegralChosenPairs:  orEmptyPairs(ch.IntegralChosenPairs),
		IntegralResults:      orEmptyResults(ch.IntegralResults),
		LastUpdated:          ch.LastUpdated,
	}, nil
}

func orEmpty(s []float64) []float64 {
	if s == nil {
		return []float64{}
	}
	return s
}

func orEmptyPairs(s []schema.IntegralPair) []schema.IntegralPair {
	if s == nil {
		return []schema.IntegralPair{}
	}
	return s
}

func orEmptyResults(s []schema.IntegralResult) []schema.IntegralResult {
	if s == nil {
		return []schema.IntegralResult{}
	}
	return s
}
