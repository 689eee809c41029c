package core

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/internal/metrics"
	"github.com/huangsam/peakbase/schema"
)

// storedEdit replays a channel's stored selections as an edit. It reports
// false when the channel has nothing to recompute.
func storedEdit(ch schema.Channel) (schema.ChannelEdit, bool) {
	var edit schema.ChannelEdit
	if ch.BaselineChosenPoints != nil {
		points := append([]float64{}, ch.BaselineChosenPoints...)
		edit.BaselineChosenPoints = &points
	}
	if ch.IntegralChosenPairs != nil {
		pairs := append([]schema.IntegralPair{}, ch.IntegralChosenPairs...)
		edit.IntegralChosenPairs = &pairs
	}
	return edit, edit.TouchesBaseline() || edit.TouchesIntegrals()
}

// RecomputeExperiment re-applies every channel's stored selections through
// EditChannel, one transaction per channel, with at most workers channels in
// flight. Failures of single channels are reported in the result; only
// cancellation aborts the run.
func RecomputeExperiment(ctx context.Context, store contract.ChannelStore, id string, workers int) (schema.RecomputeResult, error) {
	exp, err := store.GetExperiment(ctx, id)
	if err != nil {
		return schema.RecomputeResult{}, err
	}
	if workers <= 0 {
		workers = contract.DefaultWorkers
	}

	result := schema.RecomputeResult{ExperimentID: exp.ID, Channels: len(exp.Channels)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(withEditSource(ctx, sourceRecompute))
	g.SetLimit(workers)
	for _, ch := range exp.Channels {
		edit, ok := storedEdit(ch)
		if !ok {
			result.Skipped++
			metrics.Default.ObserveRecompute(metrics.OutcomeSkipped)
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := EditChannel(gctx, store, ch.ID, edit)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Recomputed++
				metrics.Default.ObserveRecompute(metrics.OutcomeOK)
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				result.Failed = append(result.Failed, ch.ID)
				metrics.Default.ObserveRecompute(metrics.OutcomeFailed)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	sort.Strings(result.Failed)
	contract.Logger().Info("experiment recomputed",
		zap.String("experiment_id", exp.ID),
		zap.Int("recomputed", result.Recomputed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}
