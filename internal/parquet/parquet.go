// Package parquet provides row types and writers for exporting experiment
// channels to Parquet using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/peakbase/schema"
	"github.com/parquet-go/parquet-go"
)

// File suffixes appended to an export target, one file per row type.
const (
	SamplesSuffix   = ".samples.parquet"
	IntegralsSuffix = ".integrals.parquet"
)

// ChannelSample is one acquired sample of one channel, with its baseline
// columns when the channel has been corrected.
type ChannelSample struct {
	// ExperimentID references the owning experiment
	ExperimentID string `parquet:"experiment_id,snappy,dict"`

	// ChannelID and ChannelName identify the channel
	ChannelID   string `parquet:"channel_id,snappy,dict"`
	ChannelName string `parquet:"channel_name,snappy,dict"`

	// SampleIndex is the position on the channel's time axis
	SampleIndex int32 `parquet:"sample_index,snappy"`

	Time float64 `parquet:"time,snappy"`
	Raw  float64 `parquet:"raw,snappy"`

	// Spline and Baseline are null until a baseline has been computed
	Spline   *float64 `parquet:"spline,optional,snappy"`
	Baseline *float64 `parquet:"baseline,optional,snappy"`
}

// IntegralRow is one computed peak area.
type IntegralRow struct {
	ExperimentID string `parquet:"experiment_id,snappy,dict"`
	ChannelID    string `parquet:"channel_id,snappy,dict"`
	ChannelName  string `parquet:"channel_name,snappy,dict"`

	Start      float64 `parquet:"start,snappy"`
	End        float64 `parquet:"end,snappy"`
	Area       float64 `parquet:"area,snappy"`
	SampleName string  `parquet:"sample_name,snappy"`

	// LastUpdated is when the channel's results were last written (TIMESTAMP, nanoseconds)
	LastUpdated time.Time `parquet:"last_updated,snappy"`
}

// ConvertChannelSamples flattens every channel of exp into sample rows.
func ConvertChannelSamples(exp schema.Experiment) []ChannelSample {
	n := 0
	for _, ch := range exp.Channels {
		n += len(ch.TimeValues)
	}
	rows := make([]ChannelSample, 0, n)
	for _, ch := range exp.Channels {
		withBaseline := len(ch.BaselineValues) == len(ch.TimeValues) && len(ch.BaselineSpline) == len(ch.TimeValues)
		for i, t := range ch.TimeValues {
			row := ChannelSample{
				ExperimentID: exp.ID,
				ChannelID:    ch.ID,
				ChannelName:  ch.ChannelName,
				SampleIndex:  int32(i),
				Time:         t,
			}
			if i < len(ch.RawValues) {
				row.Raw = ch.RawValues[i]
			}
			if withBaseline {
				spline, baseline := ch.BaselineSpline[i], ch.BaselineValues[i]
				row.Spline = &spline
				row.Baseline = &baseline
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// ConvertIntegralResults flattens the integral results of every channel of exp.
func ConvertIntegralResults(exp schema.Experiment) []IntegralRow {
	var rows []IntegralRow
	for _, ch := range exp.Channels {
		for _, res := range ch.IntegralResults {
			rows = append(rows, IntegralRow{
				ExperimentID: exp.ID,
				ChannelID:    ch.ID,
				ChannelName:  ch.ChannelName,
				Start:        res.Start,
				End:          res.End,
				Area:         res.Area,
				SampleName:   schema.SampleNameOrDefault(res.SampleName),
				LastUpdated:  ch.LastUpdated,
			})
		}
	}
	return rows
}

// WriteRows writes rows to w as a single Parquet file. The schema is
// derived from the struct tags of T.
func WriteRows[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// WriteRowsFile writes rows to a new Parquet file at outputPath.
func WriteRowsFile[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteRows(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ReadRows reads every row of a Parquet file into T values.
func ReadRows[T any](r io.ReaderAt, size int64) ([]T, error) {
	rows, err := parquet.Read[T](r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	return rows, nil
}
