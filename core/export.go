package core

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/huangsam/peakbase/core/algo"
	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
)

// Placeholder cells used by the exports.
const (
	missingRawCell     = "N/A"
	missingSummaryCell = "nan"
)

// ExportExperiment loads an experiment and builds the requested export.
func ExportExperiment(ctx context.Context, store contract.ChannelStore, id string, kind schema.ExportKind) (schema.ExportTable, error) {
	exp, err := store.GetExperiment(ctx, id)
	if err != nil {
		return schema.ExportTable{}, err
	}
	switch kind {
	case schema.RawExport:
		return BuildRawExport(exp), nil
	case schema.FilteredExport:
		return BuildFilteredExport(exp)
	case schema.SummaryExport:
		return BuildSummaryExport(exp)
	default:
		return schema.ExportTable{}, fmt.Errorf("unsupported export %q", kind)
	}
}

func sortedChannels(exp schema.Experiment) []schema.Channel {
	channels := slices.Clone(exp.Channels)
	slices.SortStableFunc(channels, func(a, b schema.Channel) int {
		return cmp.Compare(a.ChannelName, b.ChannelName)
	})
	return channels
}

func noChannels(exp schema.Experiment) error {
	return &schema.NotFoundError{Entity: "channels of experiment", ID: exp.ID}
}

// BuildRawExport lays out the raw signals side by side on the time axis of
// the first channel by name. Channels shorter than that axis emit "N/A".
func BuildRawExport(exp schema.Experiment) schema.ExportTable {
	channels := sortedChannels(exp)
	header := make([]string, 0, len(channels)+1)
	header = append(header, "Time/s")
	for _, ch := range channels {
		header = append(header, ch.ChannelName)
	}

	table := schema.ExportTable{Kind: schema.RawExport, Header: header, Rows: [][]string{}}
	if len(channels) == 0 {
		return table
	}
	for i, t := range channels[0].TimeValues {
		row := make([]string, 0, len(header))
		row = append(row, schema.FormatFloat(t))
		for _, ch := range channels {
			if i < len(ch.RawValues) {
				row = append(row, schema.FormatFloat(ch.RawValues[i]))
			} else {
				row = append(row, missingRawCell)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// filteredColumn is one integral result's slice of baseline-corrected values.
type filteredColumn struct {
	name   string
	end    float64
	values []float64
}

// BuildFilteredExport emits, per integral result, the baseline-corrected
// samples between its start and end, aligned to t=0 and stepped by the
// rounded sample interval of the first channel.
func BuildFilteredExport(exp schema.Experiment) (schema.ExportTable, error) {
	channels := sortedChannels(exp)
	if len(channels) == 0 {
		return schema.ExportTable{}, noChannels(exp)
	}

	var columns []filteredColumn
	for _, ch := range channels {
		for _, res := range ch.IntegralResults {
			columns = append(columns, filteredColumn{
				name:   schema.ColumnName(ch.ChannelName, res.SampleName),
				end:    res.End,
				values: resultSlice(ch, res),
			})
		}
	}

	// Colliding names are told apart by their position before sorting.
	counts := make(map[string]int, len(columns))
	for _, c := range columns {
		counts[c.name]++
	}
	for i := range columns {
		if counts[columns[i].name] > 1 {
			columns[i].name = columns[i].name + "_" + strconv.Itoa(i)
		}
	}
	slices.SortStableFunc(columns, func(a, b filteredColumn) int { return cmp.Compare(a.name, b.name) })

	header := make([]string, 0, len(columns)+1)
	header = append(header, "time/s")
	for _, c := range columns {
		header = append(header, c.name)
	}
	table := schema.ExportTable{Kind: schema.FilteredExport, Header: header, Rows: [][]string{}}

	axis := channels[0].TimeValues
	if len(axis) < 2 {
		return schema.ExportTable{}, fmt.Errorf("%w: filtered export needs at least two time values", schema.ErrInvalidChannel)
	}
	step := int64(math.Round(axis[1] - axis[0]))
	if step <= 0 {
		return schema.ExportTable{}, fmt.Errorf("%w: filtered export needs a sample interval of at least 0.5s", schema.ErrInvalidChannel)
	}
	maxEnd := 0.0
	for _, c := range columns {
		maxEnd = max(maxEnd, c.end)
	}
	last := int64(math.Round(maxEnd))

	for t := int64(0); t <= last; t += step {
		idx := int(t / step)
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatInt(t, 10))
		empty := 0
		for _, c := range columns {
			if idx < len(c.values) {
				row = append(row, schema.FormatFloat(c.values[idx]))
			} else {
				row = append(row, "")
				empty++
			}
		}
		if empty == len(columns) {
			break
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// resultSlice returns baseline_values[start:end] with end exclusive, or
// nothing when either bound matches no time value or the range is invalid.
func resultSlice(ch schema.Channel, res schema.IntegralResult) []float64 {
	si, ei := algo.MatchIndex(ch.TimeValues, res.Start), algo.MatchIndex(ch.TimeValues, res.End)
	if si < 0 || ei < 0 || si > ei || ei > len(ch.BaselineValues) {
		return nil
	}
	return ch.BaselineValues[si:ei]
}

// BuildSummaryExport emits one row per channel with four cells per integral
// result. Shorter rows are padded with "nan".
func BuildSummaryExport(exp schema.Experiment) (schema.ExportTable, error) {
	channels := sortedChannels(exp)
	if len(channels) == 0 {
		return schema.ExportTable{}, noChannels(exp)
	}

	maxSamples := 0
	for _, ch := range channels {
		maxSamples = max(maxSamples, len(ch.IntegralResults))
	}

	header := make([]string, 0, 1+4*maxSamples)
	header = append(header, "measurement")
	for i := 1; i <= maxSamples; i++ {
		header = append(header,
			fmt.Sprintf("sample%d_start", i),
			fmt.Sprintf("sample%d_end", i),
			fmt.Sprintf("sample%d_electrons_transferred_mol", i),
			fmt.Sprintf("sample%d_sample_name", i),
		)
	}

	table := schema.ExportTable{Kind: schema.SummaryExport, Header: header, Rows: make([][]string, 0, len(channels))}
	for _, ch := range channels {
		row := make([]string, 0, len(header))
		row = append(row, ch.ChannelName)
		for _, res := range ch.IntegralResults {
			row = append(row,
				schema.FormatFloat(res.Start),
				schema.FormatFloat(res.End),
				schema.FormatFloat(res.Area),
				schema.SampleNameOrDefault(res.SampleName),
			)
		}
		for len(row) < len(header) {
			row = append(row, missingSummaryCell)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
