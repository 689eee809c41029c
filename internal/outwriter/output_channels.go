package outwriter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/peakbase/core/algo"
	"github.com/huangsam/peakbase/schema"
)

// WriteChannelView outputs a channel view, dispatching based on the output format configured.
func (ow *OutWriter) WriteChannelView(ctx context.Context, view schema.ChannelView) error {
	fmtFloat, _ := createFormatters(ow.cfg.Precision)

	switch ow.cfg.Output {
	case schema.JSONOut:
		if err := ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, view)
		}, "Wrote JSON channel"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeChannelCSV(w, view)
		}, "Wrote CSV channel"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only available for experiment exports")
	default:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return ow.writeChannelTable(w, view, fmtFloat)
		}, "Wrote table")
	}
	return nil
}

// writeChannelCSV writes the view's series in long form: series,x,y.
// Raw and baseline are downsampled independently so their x values differ.
func writeChannelCSV(w io.Writer, view schema.ChannelView) error {
	return writeCSVWithHeader(w, []string{"series", "x", "y"}, func(cw *csv.Writer) error {
		for _, s := range []struct {
			name   string
			series schema.Series
		}{{"raw", view.Raw}, {"baseline", view.Baseline}} {
			for i := range s.series.X {
				if err := cw.Write([]string{s.name, schema.FormatFloat(s.series.X[i]), schema.FormatFloat(s.series.Y[i])}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// writeChannelTable prints a short channel header with sparklines, then the integral results.
func (ow *OutWriter) writeChannelTable(w io.Writer, view schema.ChannelView, fmtFloat func(float64) string) error {
	sparkWidth := min(max(terminalWidth(ow.cfg)-12, 10), 60)

	_, _ = fmt.Fprintf(w, "Channel %s (%s) in experiment %s\n", view.ChannelName, view.ID, view.ExperimentID)
	_, _ = fmt.Fprintf(w, "Samples: %d  Anchors: %d  Pairs: %d  Updated: %s\n",
		view.SampleCount, len(view.BaselineChosenPoints), len(view.IntegralChosenPairs), formatTime(view.LastUpdated))
	if line, err := seriesSparkline(view.Raw, sparkWidth); err == nil && line != "" {
		_, _ = fmt.Fprintf(w, "Raw       %s\n", line)
	}
	if line, err := seriesSparkline(view.Baseline, sparkWidth); err == nil && line != "" {
		_, _ = fmt.Fprintf(w, "Baseline  %s\n", line)
	}

	if len(view.IntegralResults) == 0 {
		_, _ = fmt.Fprintln(w, "No integral results.")
		return nil
	}
	var data [][]string
	for i, r := range view.IntegralResults {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			r.SampleName,
			fmtFloat(r.Start),
			fmtFloat(r.End),
			colorArea(r.Area, fmtFloat(r.Area), ow.cfg.UseColors),
		})
	}
	return renderTable(w, []string{"#", "Sample", "Start", "End", "Area"}, data)
}

// seriesSparkline reduces a series to width points and renders it.
func seriesSparkline(s schema.Series, width int) (string, error) {
	_, ys, err := algo.Downsample(s.X, s.Y, width)
	if err != nil {
		return "", err
	}
	return sparkline(ys), nil
}
