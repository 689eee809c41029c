package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/peakbase/schema"
)

func exportFixture() schema.Experiment {
	return schema.Experiment{
		ID: "e1",
		Channels: []schema.Channel{
			{
				ChannelName:    "CH2",
				TimeValues:     []float64{0, 1, 2, 3},
				RawValues:      []float64{5, 6, 7},
				BaselineValues: []float64{0.5, 1.5, 2.5, 3.5},
				IntegralResults: []schema.IntegralResult{
					{Start: 0, End: 2, Area: 3, SampleName: "Peak"},
				},
			},
			{
				ChannelName:    "CH1",
				TimeValues:     []float64{0, 1, 2, 3},
				RawValues:      []float64{1, 2, 3, 4},
				BaselineValues: []float64{0, -1, -2, -3},
				IntegralResults: []schema.IntegralResult{
					{Start: 0, End: 3, Area: -4.5, SampleName: "Sample A"},
					{Start: 1, End: 2, Area: -1.5},
				},
			},
		},
	}
}

func TestBuildRawExport(t *testing.T) {
	table := BuildRawExport(exportFixture())
	assert.Equal(t, schema.RawExport, table.Kind)
	assert.Equal(t, []string{"Time/s", "CH1", "CH2"}, table.Header)
	assert.Equal(t, [][]string{
		{"0", "1", "5"},
		{"1", "2", "6"},
		{"2", "3", "7"},
		{"3", "4", "N/A"},
	}, table.Rows)

	empty := BuildRawExport(schema.Experiment{ID: "e2"})
	assert.Equal(t, []string{"Time/s"}, empty.Header)
	assert.Empty(t, empty.Rows)
}

func TestBuildFilteredExport(t *testing.T) {
	table, err := BuildFilteredExport(exportFixture())
	require.NoError(t, err)
	assert.Equal(t, []string{"time/s", "ch1_sample_a", "ch1_undefined", "ch2_peak"}, table.Header)
	assert.Equal(t, [][]string{
		{"0", "0", "-1", "0.5"},
		{"1", "-1", "", "1.5"},
		{"2", "-2", "", ""},
	}, table.Rows)
}

func TestBuildFilteredExportDuplicateColumns(t *testing.T) {
	exp := schema.Experiment{ID: "e1", Channels: []schema.Channel{{
		ChannelName:    "CH1",
		TimeValues:     []float64{0, 1, 2},
		BaselineValues: []float64{1, 2, 3},
		IntegralResults: []schema.IntegralResult{
			{Start: 0, End: 1, SampleName: "a"},
			{Start: 1, End: 2, SampleName: "a"},
		},
	}}}
	table, err := BuildFilteredExport(exp)
	require.NoError(t, err)
	assert.Equal(t, []string{"time/s", "ch1_a_0", "ch1_a_1"}, table.Header)
	assert.Equal(t, [][]string{{"0", "1", "2"}}, table.Rows)
}

func TestBuildFilteredExportErrors(t *testing.T) {
	_, err := BuildFilteredExport(schema.Experiment{ID: "e1"})
	assert.ErrorIs(t, err, schema.ErrNotFound)

	short := schema.Experiment{ID: "e1", Channels: []schema.Channel{{ChannelName: "CH1", TimeValues: []float64{0}}}}
	_, err = BuildFilteredExport(short)
	assert.ErrorIs(t, err, schema.ErrInvalidChannel)

	dense := schema.Experiment{ID: "e1", Channels: []schema.Channel{{ChannelName: "CH1", TimeValues: []float64{0, 0.1, 0.2}}}}
	_, err = BuildFilteredExport(dense)
	assert.ErrorIs(t, err, schema.ErrInvalidChannel)
}

func TestBuildSummaryExport(t *testing.T) {
	table, err := BuildSummaryExport(exportFixture())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"measurement",
		"sample1_start", "sample1_end", "sample1_electrons_transferred_mol", "sample1_sample_name",
		"sample2_start", "sample2_end", "sample2_electrons_transferred_mol", "sample2_sample_name",
	}, table.Header)
	assert.Equal(t, [][]string{
		{"CH1", "0", "3", "-4.5", "Sample A", "1", "2", "-1.5", "undefined"},
		{"CH2", "0", "2", "3", "Peak", "nan", "nan", "nan", "nan"},
	}, table.Rows)

	_, err = BuildSummaryExport(schema.Experiment{ID: "e1"})
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestExportExperiment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := EditChannel(ctx, s, "c1", schema.ChannelEdit{
		BaselineChosenPoints: floats(0, 4),
		IntegralChosenPairs:  pairs(schema.IntegralPair{Start: 0, End: 2, SampleName: "A"}),
	})
	require.NoError(t, err)

	summary, err := ExportExperiment(ctx, s, "e1", schema.SummaryExport)
	require.NoError(t, err)
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, []string{"CH1", "0", "2", "-4.5", "A"}, summary.Rows[0])

	raw, err := ExportExperiment(ctx, s, "e1", schema.RawExport)
	require.NoError(t, err)
	assert.Len(t, raw.Rows, 5)

	filtered, err := ExportExperiment(ctx, s, "e1", schema.FilteredExport)
	require.NoError(t, err)
	assert.Equal(t, []string{"time/s", "ch1_a"}, filtered.Header)
	assert.Equal(t, [][]string{{"0", "0"}, {"1", "-2.25"}}, filtered.Rows)

	_, err = ExportExperiment(ctx, s, "missing", schema.RawExport)
	assert.ErrorIs(t, err, schema.ErrNotFound)
	_, err = ExportExperiment(ctx, s, "e1", "pivot")
	assert.Error(t, err)
}
