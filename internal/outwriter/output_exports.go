package outwriter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/huangsam/peakbase/internal/parquet"
	"github.com/huangsam/peakbase/schema"
)

// WriteExport outputs an experiment export table. Parquet output ignores the
// table layout and writes the experiment's samples and integral results instead.
func (ow *OutWriter) WriteExport(ctx context.Context, table schema.ExportTable, exp schema.Experiment) error {
	switch ow.cfg.Output {
	case schema.JSONOut:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, table)
		}, fmt.Sprintf("Wrote JSON %s export", table.Kind))
	case schema.CSVOut:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeExportCSV(w, table)
		}, fmt.Sprintf("Wrote CSV %s export", table.Kind))
	case schema.ParquetOut:
		return ow.writeParquet(ctx, exp)
	default:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return ow.writeExportTable(w, table)
		}, "Wrote table")
	}
}

func writeExportCSV(w io.Writer, table schema.ExportTable) error {
	return writeCSVWithHeader(w, table.Header, func(cw *csv.Writer) error {
		return cw.WriteAll(table.Rows)
	})
}

func (ow *OutWriter) writeExportTable(w io.Writer, table schema.ExportTable) error {
	if len(table.Rows) == 0 {
		_, _ = fmt.Fprintf(w, "The %s export has no rows.\n", table.Kind)
		return nil
	}
	if err := renderTable(w, table.Header, table.Rows); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "%d rows, %d columns\n", len(table.Rows), len(table.Header))
	return nil
}

// writeParquet writes two Parquet files next to the configured target: one
// with every channel sample and one with every integral result.
func (ow *OutWriter) writeParquet(ctx context.Context, exp schema.Experiment) error {
	target := ow.cfg.OutputFile
	if target == "" {
		return fmt.Errorf("--output-file is required for parquet output")
	}
	samples := parquet.ConvertChannelSamples(exp)
	if err := ow.writeWithFile(ctx, target+parquet.SamplesSuffix, func(w io.Writer) error {
		return parquet.WriteRows(w, samples)
	}, fmt.Sprintf("Wrote %d samples", len(samples))); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	integrals := parquet.ConvertIntegralResults(exp)
	if err := ow.writeWithFile(ctx, target+parquet.IntegralsSuffix, func(w io.Writer) error {
		return parquet.WriteRows(w, integrals)
	}, fmt.Sprintf("Wrote %d integral results", len(integrals))); err != nil {
		return fmt.Errorf("failed to write integral results: %w", err)
	}
	return nil
}

// WriteStatus outputs the store status.
func (ow *OutWriter) WriteStatus(ctx context.Context, status schema.StoreStatus) error {
	switch ow.cfg.Output {
	case schema.JSONOut:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, status)
		}, "Wrote JSON status")
	default:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			data := [][]string{
				{"Backend", status.Backend},
				{"Connected", fmt.Sprintf("%t", status.Connected)},
				{"Schema version", fmt.Sprintf("%d (dirty: %t)", status.SchemaVersion, status.Dirty)},
				{"Experiments", fmt.Sprintf("%d", status.Experiments)},
				{"Channels", fmt.Sprintf("%d (%s)", status.Channels, fillLabel(status.FilledChannels, status.Channels, ow.cfg.UseColors))},
				{"Last update", formatTime(status.LastUpdated)},
			}
			return renderTable(w, []string{"Property", "Value"}, data)
		}, "Wrote status")
	}
}
