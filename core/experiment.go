package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
)

// ParseChannelsCSV reads a wide CSV table: a time column followed by one
// column per channel. Every channel gets the shared time axis and empty
// annotation sets. Ids are left blank.
func ParseChannelsCSV(r io.Reader) ([]schema.Channel, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = 0 // every row must match the header width

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", schema.ErrInvalidChannel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: need a time column and at least one channel column", schema.ErrInvalidChannel)
	}

	names := make([]string, len(header)-1)
	seen := make(map[string]struct{}, len(names))
	for i, h := range header[1:] {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fmt.Errorf("%w: channel column %d has no name", schema.ErrInvalidChannel, i+2)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate channel %q", schema.ErrInvalidChannel, name)
		}
		seen[name] = struct{}{}
		names[i] = name
	}

	timeValues := []float64{}
	columns := make([][]float64, len(names))
	for i := range columns {
		columns[i] = []float64{}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %v", schema.ErrInvalidChannel, err)
		}
		t, err := parseFinite(record[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: time: %v", schema.ErrInvalidChannel, line, err)
		}
		timeValues = append(timeValues, t)
		for i, cell := range record[1:] {
			v, err := parseFinite(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s: %v", schema.ErrInvalidChannel, line, names[i], err)
			}
			columns[i] = append(columns[i], v)
		}
	}

	if len(timeValues) == 0 {
		return nil, fmt.Errorf("%w: no samples", schema.ErrInvalidChannel)
	}

	channels := make([]schema.Channel, len(names))
	for i, name := range names {
		if err := validateSignal(timeValues, columns[i]); err != nil {
			return nil, fmt.Errorf("channel %s: %w", name, err)
		}
		channels[i] = schema.Channel{
			ChannelName: name,
			TimeValues:  append([]float64(nil), timeValues...),
			RawValues:   columns[i],
		}
	}
	return channels, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// ImportExperiment parses channels from r and stores them under a new
// experiment described by meta, in one transaction. Missing ids are generated.
func ImportExperiment(ctx context.Context, store contract.ChannelStore, meta schema.Experiment, r io.Reader) (schema.Experiment, error) {
	channels, err := ParseChannelsCSV(r)
	if err != nil {
		return schema.Experiment{}, err
	}

	exp := meta
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	if exp.Samples == nil {
		n := len(channels[0].TimeValues)
		exp.Samples = &n
	}
	if exp.SampleInterval == nil && len(channels[0].TimeValues) > 1 {
		step := channels[0].TimeValues[1] - channels[0].TimeValues[0]
		exp.SampleInterval = &step
	}
	now := time.Now().UTC()
	exp.LastUpdated = now
	for i := range channels {
		channels[i].ID = uuid.NewString()
		channels[i].ExperimentID = exp.ID
		channels[i].LastUpdated = now
	}
	exp.Channels = channels

	if err := store.CreateExperiment(ctx, exp); err != nil {
		return schema.Experiment{}, err
	}
	contract.Logger().Info("experiment imported",
		zap.String("experiment_id", exp.ID),
		zap.Int("channels", len(channels)),
		zap.Int("samples", *exp.Samples))
	return exp, nil
}
