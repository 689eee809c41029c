package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/huangsam/peakbase/core/algo"
	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/internal/metrics"
	"github.com/huangsam/peakbase/schema"
)

// ChannelCommitBuilder computes the commit for one channel edit from the
// record as it is currently stored.
type ChannelCommitBuilder struct {
	current schema.Channel
	edit    schema.ChannelEdit
	interp  schema.InterpolationMethod
	integ   schema.IntegrationMethod
	commit  schema.ChannelCommit

	// Internal data collected during the build process
	droppedAnchors int
	droppedPairs   int
	err            error
}

// NewChannelCommitBuilder is the starting point for computing a channel commit.
// The methods must already be resolved.
func NewChannelCommitBuilder(current schema.Channel, edit schema.ChannelEdit, interp schema.InterpolationMethod, integ schema.IntegrationMethod) *ChannelCommitBuilder {
	return &ChannelCommitBuilder{
		current: current,
		edit:    edit,
		interp:  interp,
		integ:   integ,
	}
}

// ValidateChannel checks the immutable signal before anything is derived from it.
func (b *ChannelCommitBuilder) ValidateChannel() *ChannelCommitBuilder {
	if b.err != nil {
		return b
	}
	b.err = validateSignal(b.current.TimeValues, b.current.RawValues)
	return b
}

// ComputeBaseline rebuilds the spline and the corrected values when the edit
// replaces the anchors.
func (b *ChannelCommitBuilder) ComputeBaseline() *ChannelCommitBuilder {
	if b.err != nil || !b.edit.TouchesBaseline() {
		return b
	}
	chosen := *b.edit.BaselineChosenPoints
	if len(chosen) == 0 {
		// Clearing the anchors clears every derived sequence.
		b.commit.Baseline = &schema.BaselineUpdate{
			ChosenPoints: []float64{},
			Spline:       []float64{},
			Values:       []float64{},
		}
		return b
	}

	spline, dropped, err := algo.BuildBaselineSpline(b.current.TimeValues, b.current.RawValues, chosen, b.interp)
	if err != nil {
		b.err = err
		return b
	}
	values, err := algo.FilterBaseline(b.current.RawValues, spline)
	if err != nil {
		b.err = err
		return b
	}

	b.droppedAnchors = dropped
	b.commit.Baseline = &schema.BaselineUpdate{
		ChosenPoints: append(make([]float64, 0, len(chosen)), chosen...),
		Spline:       spline,
		Values:       values,
	}
	return b
}

// ComputeIntegrals recomputes the peak areas when the edit replaces the pairs.
// Areas are taken over the baseline values current after ComputeBaseline.
func (b *ChannelCommitBuilder) ComputeIntegrals() *ChannelCommitBuilder {
	if b.err != nil || !b.edit.TouchesIntegrals() {
		return b
	}
	pairs := *b.edit.IntegralChosenPairs
	update := &schema.IntegralUpdate{
		ChosenPairs: append(make([]schema.IntegralPair, 0, len(pairs)), pairs...),
		Results:     []schema.IntegralResult{},
	}

	baseline := b.current.BaselineValues
	if b.commit.Baseline != nil {
		baseline = b.commit.Baseline.Values
	}

	switch {
	case len(baseline) == 0 && len(b.current.TimeValues) > 0:
		contract.Logger().Warn("integral pairs stored without baseline values",
			zap.String("channel_id", b.current.ID),
			zap.Int("pairs", len(pairs)))
	default:
		results, dropped, err := algo.IntegratePairs(b.current.TimeValues, baseline, pairs, b.integ)
		if err != nil {
			b.err = err
			return b
		}
		b.droppedPairs = dropped
		update.Results = results
	}

	b.commit.Integral = update
	return b
}

// Build returns the computed commit or the first error met along the way.
func (b *ChannelCommitBuilder) Build() (schema.ChannelCommit, error) {
	if b.err != nil {
		return schema.ChannelCommit{}, b.err
	}
	return b.commit, nil
}

// Dropped returns how many anchors and pairs matched no time value.
func (b *ChannelCommitBuilder) Dropped() (anchors, pairs int) {
	return b.droppedAnchors, b.droppedPairs
}

// validateSignal checks that time and raw values pair up and that time is
// strictly increasing and finite.
func validateSignal(x, y []float64) error {
	if len(x) != len(y) {
		return &schema.LengthError{What: "time and raw values", Left: len(x), Right: len(y)}
	}
	if !algo.IsStrictlyIncreasing(x) {
		return fmt.Errorf("%w: time values must be finite and strictly increasing", schema.ErrInvalidChannel)
	}
	return nil
}

// resolveMethods validates the edit's method names, filling in the defaults.
func resolveMethods(edit schema.ChannelEdit) (schema.InterpolationMethod, schema.IntegrationMethod, error) {
	interp, err := schema.ParseInterpolationMethod(string(edit.Interpolation))
	if err != nil {
		return "", "", err
	}
	integ, err := schema.ParseIntegrationMethod(string(edit.Integration))
	if err != nil {
		return "", "", err
	}
	return interp, integ, nil
}

// EditChannel applies a partial edit to one channel. Methods are validated
// before the store is touched; the recompute and the write then run as one
// transaction scoped to the channel id. It returns the full updated channel.
func EditChannel(ctx context.Context, store contract.ChannelStore, id string, edit schema.ChannelEdit) (schema.Channel, error) {
	start := time.Now()
	log := contract.Logger().With(zap.String("channel_id", id), zap.String("source", editSource(ctx)))

	interp, integ, err := resolveMethods(edit)
	if err != nil {
		metrics.Default.ObserveEdit(metrics.OutcomeRejected, time.Since(start))
		log.Warn("edit rejected", zap.Error(err))
		return schema.Channel{}, err
	}

	if !edit.TouchesBaseline() && !edit.TouchesIntegrals() {
		return store.GetChannel(ctx, id)
	}

	var anchors, pairs int
	updated, err := store.CommitChannel(ctx, id, func(current schema.Channel) (schema.ChannelCommit, error) {
		b := NewChannelCommitBuilder(current, edit, interp, integ).
			ValidateChannel().
			ComputeBaseline().
			ComputeIntegrals()
		anchors, pairs = b.Dropped()
		return b.Build()
	})
	elapsed := time.Since(start)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, schema.ErrInvalidChannel) || errors.Is(err, schema.ErrUnsupportedMethod) {
			outcome = metrics.OutcomeRejected
		}
		metrics.Default.ObserveEdit(outcome, elapsed)
		log.Warn("edit failed", zap.Error(err))
		return schema.Channel{}, err
	}

	metrics.Default.ObserveEdit(metrics.OutcomeOK, elapsed)
	metrics.Default.AddDropped(metrics.KindAnchor, anchors)
	metrics.Default.AddDropped(metrics.KindPair, pairs)
	if anchors > 0 || pairs > 0 {
		log.Debug("unmatched selections dropped", zap.Int("anchors", anchors), zap.Int("pairs", pairs))
	}
	log.Info("channel updated",
		zap.Bool("baseline", edit.TouchesBaseline()),
		zap.Bool("integrals", edit.TouchesIntegrals()),
		zap.Int("results", len(updated.IntegralResults)),
		zap.Duration("elapsed", elapsed))
	return updated, nil
}
