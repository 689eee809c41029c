package parquet

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/peakbase/schema"
)

func fixtureExperiment() schema.Experiment {
	updated := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	return schema.Experiment{
		ID: "e1",
		Channels: []schema.Channel{
			{
				ID:             "c1",
				ChannelName:    "CH1",
				TimeValues:     []float64{0, 1, 2},
				RawValues:      []float64{10, 8, 11},
				BaselineSpline: []float64{10, 10.5, 11},
				BaselineValues: []float64{0, -2.5, 0},
				IntegralResults: []schema.IntegralResult{
					{Start: 0, End: 2, Area: -2.5, SampleName: "A"},
					{Start: 1, End: 2, Area: -1.25},
				},
				LastUpdated: updated,
			},
			{
				ID:          "c2",
				ChannelName: "CH2",
				TimeValues:  []float64{0, 1},
				RawValues:   []float64{1, 2},
			},
		},
	}
}

func TestChannelSampleStructTags(t *testing.T) {
	// Verify struct tags are properly defined for parquet schema inference
	s := parquet.SchemaOf(new(ChannelSample))
	for _, colName := range []string{"experiment_id", "channel_id", "channel_name", "sample_index", "time", "raw", "spline", "baseline"} {
		col, ok := s.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
		require.NotNil(t, col)
	}
	spline, _ := s.Lookup("spline")
	assert.True(t, spline.Node.Optional(), "spline should be nullable")
}

func TestIntegralRowStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(IntegralRow))
	for _, colName := range []string{"experiment_id", "channel_id", "channel_name", "start", "end", "area", "sample_name", "last_updated"} {
		_, ok := s.Lookup(colName)
		require.True(t, ok, "Column %s should exist in schema", colName)
	}
}

func TestConvertChannelSamples(t *testing.T) {
	rows := ConvertChannelSamples(fixtureExperiment())
	require.Len(t, rows, 5)

	assert.Equal(t, "c1", rows[1].ChannelID)
	assert.Equal(t, int32(1), rows[1].SampleIndex)
	assert.Equal(t, 8.0, rows[1].Raw)
	require.NotNil(t, rows[1].Baseline)
	assert.Equal(t, -2.5, *rows[1].Baseline)
	assert.Equal(t, 10.5, *rows[1].Spline)

	assert.Equal(t, "CH2", rows[3].ChannelName)
	assert.Nil(t, rows[3].Baseline, "uncorrected channels have null baseline")
	assert.Nil(t, rows[4].Spline)
}

func TestConvertIntegralResults(t *testing.T) {
	rows := ConvertIntegralResults(fixtureExperiment())
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].SampleName)
	assert.Equal(t, schema.DefaultSampleName, rows[1].SampleName)
	assert.Equal(t, -1.25, rows[1].Area)
	assert.Equal(t, "e1", rows[1].ExperimentID)

	assert.Empty(t, ConvertIntegralResults(schema.Experiment{ID: "empty"}))
}

func TestWriteRowsRoundTrip(t *testing.T) {
	exp := fixtureExperiment()

	var buf bytes.Buffer
	samples := ConvertChannelSamples(exp)
	require.NoError(t, WriteRows(&buf, samples))

	got, err := ReadRows[ChannelSample](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestWriteRowsFile(t *testing.T) {
	exp := fixtureExperiment()
	outputPath := filepath.Join(t.TempDir(), "out"+IntegralsSuffix)

	rows := ConvertIntegralResults(exp)
	require.NoError(t, WriteRowsFile(rows, outputPath))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	got, err := ReadRows[IntegralRow](bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i].ChannelID, got[i].ChannelID)
		assert.Equal(t, rows[i].Area, got[i].Area)
		assert.Equal(t, rows[i].SampleName, got[i].SampleName)
		assert.WithinDuration(t, rows[i].LastUpdated, got[i].LastUpdated, time.Microsecond)
	}
}

func TestWriteRowsFileBadPath(t *testing.T) {
	err := WriteRowsFile([]IntegralRow{}, filepath.Join(t.TempDir(), "missing", "out.parquet"))
	assert.Error(t, err)
}
