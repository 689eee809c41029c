// Package core has core logic for baseline correction, peak integration and experiment exports.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/internal/outwriter"
	"github.com/huangsam/peakbase/schema"
)

// ExecutorFunc defines the function signature for executing one command
// against the active store.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// activeStore returns the manager's store or an error when none is initialized.
func activeStore(mgr contract.StoreManager) (contract.ChannelStore, error) {
	if mgr == nil {
		return nil, errors.New("store is not initialized")
	}
	s := mgr.GetChannelStore()
	if s == nil {
		return nil, errors.New("store is not initialized")
	}
	return s, nil
}

// ExecuteChannelShow prints one channel's downsampled view.
func ExecuteChannelShow(id string) ExecutorFunc {
	return func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
		s, err := activeStore(mgr)
		if err != nil {
			return err
		}
		view, err := GetChannelView(ctx, s, id, cfg.Points)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter(cfg).WriteChannelView(ctx, view)
	}
}

// ExecuteChannelEdit applies edit to one channel and prints the updated view.
// Methods left empty on the edit fall back to the configured defaults.
func ExecuteChannelEdit(id string, edit schema.ChannelEdit) ExecutorFunc {
	return func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
		s, err := activeStore(mgr)
		if err != nil {
			return err
		}
		if edit.Interpolation == "" {
			edit.Interpolation = cfg.Interpolation
		}
		if edit.Integration == "" {
			edit.Integration = cfg.Integration
		}
		updated, err := EditChannel(ctx, s, id, edit)
		if err != nil {
			return err
		}
		view, err := BuildChannelView(updated, cfg.Points)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter(cfg).WriteChannelView(ctx, view)
	}
}

// ExecuteExperimentImport reads a channel CSV from path ("-" is stdin) and
// stores it as a new experiment described by meta.
func ExecuteExperimentImport(meta schema.Experiment, path string) ExecutorFunc {
	return func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
		s, err := activeStore(mgr)
		if err != nil {
			return err
		}
		var r io.Reader = os.Stdin
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer func() { _ = f.Close() }()
			r = f
			if meta.Filename == "" {
				meta.Filename = path
			}
		}
		exp, err := ImportExperiment(ctx, s, meta, r)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter(cfg).WriteExperiment(ctx, exp)
	}
}

// ExecuteExperimentList prints every stored experiment.
func ExecuteExperimentList(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	s, err := activeStore(mgr)
	if err != nil {
		return err
	}
	list, err := s.ListExperiments(ctx)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter(cfg).WriteExperiments(ctx, list)
}

// ExecuteExperimentShow prints one experiment with its channels.
func ExecuteExperimentShow(id string) ExecutorFunc {
	return func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
		s, err := activeStore(mgr)
		if err != nil {
			return err
		}
		exp, err := s.GetExperiment(ctx, id)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter(cfg).WriteExperiment(ctx, exp)
	}
}

// ExecuteExperimentDelete removes one experiment and its channels.
func ExecuteExperimentDelete(id string) ExecutorFunc {
	return func(ctx context.Context, _ *contract.Config, mgr contract.StoreManager) error {
		s, err := activeStore(mgr)
		if err != nil {
			return err
		}
		if err := s.DeleteExperiment(ctx, id); err != nil {
			return err
		}
		contract.Logger().Info("experiment deleted", zap.String("experiment_id", id))
		_, _ = fmt.Fprintf(os.Stderr, "Deleted experiment %s\n", id)
		return nil
	}
}

// ExecuteExperimentRecompute reruns every channel's stored selections.
func ExecuteExperimentRecompute(id string) ExecutorFunc {
	return func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
		s, err := activeStore(mgr)
		if err != nil {
			return err
		}
		result, err := RecomputeExperiment(ctx, s, id, cfg.Workers)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter(cfg).WriteRecompute(ctx, result)
	}
}

// ExecuteExperimentExport prints one of the experiment exports. Parquet output
// writes the experiment's samples and integral results regardless of kind.
func ExecuteExperimentExport(id string, kind schema.ExportKind) ExecutorFunc {
	return func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
		s, err := activeStore(mgr)
		if err != nil {
			return err
		}
		ow := outwriter.NewOutWriter(cfg)
		if cfg.Output == schema.ParquetOut {
			exp, err := s.GetExperiment(ctx, id)
			if err != nil {
				return err
			}
			return ow.WriteExport(ctx, schema.ExportTable{Kind: kind}, exp)
		}
		table, err := ExportExperiment(ctx, s, id, kind)
		if err != nil {
			return err
		}
		return ow.WriteExport(ctx, table, schema.Experiment{ID: id})
	}
}

// ExecuteStoreStatus prints the store status.
func ExecuteStoreStatus(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	s, err := activeStore(mgr)
	if err != nil {
		return err
	}
	status, err := s.GetStatus(ctx)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter(cfg).WriteStatus(ctx, status)
}

// ExecuteStoreClear removes every experiment and channel.
func ExecuteStoreClear(ctx context.Context, _ *contract.Config, mgr contract.StoreManager) error {
	s, err := activeStore(mgr)
	if err != nil {
		return err
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	contract.Logger().Info("store cleared")
	_, _ = fmt.Fprintln(os.Stderr, "Store cleared")
	return nil
}

// ParseAnchors parses a comma-separated list of x-values. The empty string
// is an explicit empty selection.
func ParseAnchors(s string) ([]float64, error) {
	anchors := []float64{}
	for field := range strings.SplitSeq(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := parseFinite(field)
		if err != nil {
			return nil, fmt.Errorf("invalid anchor %q: %w", field, err)
		}
		anchors = append(anchors, v)
	}
	return anchors, nil
}

// ParsePairs parses a comma-separated list of "start:end" or
// "start:end:sample" integration bounds. The empty string is an explicit
// empty selection.
func ParsePairs(s string) ([]schema.IntegralPair, error) {
	pairs := []schema.IntegralPair{}
	for field := range strings.SplitSeq(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		parts := strings.SplitN(field, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid pair %q: expected start:end[:sample]", field)
		}
		start, err := parseFinite(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid pair start %q: %w", field, err)
		}
		end, err := parseFinite(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid pair end %q: %w", field, err)
		}
		pair := schema.IntegralPair{Start: start, End: end}
		if len(parts) == 3 {
			pair.SampleName = strings.TrimSpace(parts[2])
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// ParseOptionalFloat parses an optional numeric metadata value.
func ParseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
