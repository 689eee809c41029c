package outwriter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
)

// WriteExperiments outputs the experiment listing, dispatching based on the output format configured.
func (ow *OutWriter) WriteExperiments(ctx context.Context, list []schema.ExperimentSummary) error {
	switch ow.cfg.Output {
	case schema.JSONOut:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, list)
		}, "Wrote JSON experiments")
	case schema.CSVOut:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeExperimentsCSV(w, list)
		}, "Wrote CSV experiments")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only available for experiment exports")
	default:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return ow.writeExperimentsTable(w, list)
		}, "Wrote table")
	}
}

func writeExperimentsCSV(w io.Writer, list []schema.ExperimentSummary) error {
	header := []string{"id", "name", "date", "instrument_model", "channel_qty", "channel_qty_filled", "status", "last_updated"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, e := range list {
			date := ""
			if e.Date != nil {
				date = e.Date.UTC().Format(contract.DateTimeFormat)
			}
			if err := cw.Write([]string{
				e.ID,
				e.Name,
				date,
				e.InstrumentModel,
				strconv.Itoa(e.ChannelQty),
				strconv.Itoa(e.ChannelQtyFilled),
				contract.GetFillLabel(e.ChannelQtyFilled, e.ChannelQty),
				e.LastUpdated.UTC().Format(contract.DateTimeFormat),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (ow *OutWriter) writeExperimentsTable(w io.Writer, list []schema.ExperimentSummary) error {
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "No experiments stored.")
		return nil
	}
	nameWidth := GetMaxTableNameWidth(ow.cfg)
	data := make([][]string, 0, len(list))
	for _, e := range list {
		date := "-"
		if e.Date != nil {
			date = e.Date.Format("2006-01-02")
		}
		data = append(data, []string{
			e.ID,
			contract.TruncateName(e.Name, nameWidth),
			date,
			e.InstrumentModel,
			fmt.Sprintf("%d/%d", e.ChannelQtyFilled, e.ChannelQty),
			fillLabel(e.ChannelQtyFilled, e.ChannelQty, ow.cfg.UseColors),
			formatTime(e.LastUpdated),
		})
	}
	return renderTable(w, []string{"ID", "Name", "Date", "Instrument", "Filled", "Status", "Updated"}, data)
}

// WriteExperiment outputs one experiment with a row per channel.
func (ow *OutWriter) WriteExperiment(ctx context.Context, exp schema.Experiment) error {
	switch ow.cfg.Output {
	case schema.JSONOut:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, exp)
		}, "Wrote JSON experiment")
	case schema.CSVOut:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeExperimentCSV(w, exp)
		}, "Wrote CSV experiment")
	case schema.ParquetOut:
		return ow.writeParquet(ctx, exp)
	default:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return ow.writeExperimentTable(w, exp)
		}, "Wrote table")
	}
}

func channelRow(ch schema.Channel) []string {
	return []string{
		ch.ID,
		ch.ChannelName,
		strconv.Itoa(len(ch.TimeValues)),
		strconv.Itoa(len(ch.BaselineChosenPoints)),
		strconv.Itoa(len(ch.IntegralChosenPairs)),
		strconv.Itoa(len(ch.IntegralResults)),
	}
}

func writeExperimentCSV(w io.Writer, exp schema.Experiment) error {
	header := []string{"experiment_id", "channel_id", "channel_name", "samples", "anchors", "pairs", "results", "has_baseline"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, ch := range exp.Channels {
			row := append([]string{exp.ID}, channelRow(ch)...)
			row = append(row, strconv.FormatBool(ch.HasBaseline()))
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (ow *OutWriter) writeExperimentTable(w io.Writer, exp schema.Experiment) error {
	name := exp.Name
	if name == "" {
		name = exp.ID
	}
	_, _ = fmt.Fprintf(w, "Experiment %s (%s)\n", contract.TruncateName(name, GetMaxTableNameWidth(ow.cfg)), exp.ID)
	if exp.InstrumentModel != "" {
		_, _ = fmt.Fprintf(w, "Instrument: %s\n", exp.InstrumentModel)
	}
	if exp.Date != nil {
		_, _ = fmt.Fprintf(w, "Date: %s\n", exp.Date.Format(contract.DateTimeFormat))
	}
	filled := exp.ChannelQtyFilled()
	_, _ = fmt.Fprintf(w, "Channels: %d (%s)  Updated: %s\n",
		len(exp.Channels), fillLabel(filled, len(exp.Channels), ow.cfg.UseColors), formatTime(exp.LastUpdated))

	data := make([][]string, 0, len(exp.Channels))
	for _, ch := range exp.Channels {
		data = append(data, channelRow(ch))
	}
	return renderTable(w, []string{"ID", "Channel", "Samples", "Anchors", "Pairs", "Results"}, data)
}

// WriteRecompute outputs the result of an experiment-wide recompute.
func (ow *OutWriter) WriteRecompute(ctx context.Context, result schema.RecomputeResult) error {
	switch ow.cfg.Output {
	case schema.JSONOut:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON recompute result")
	case schema.CSVOut:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"experiment_id", "channels", "recomputed", "skipped", "failed"}, func(cw *csv.Writer) error {
				return cw.Write([]string{
					result.ExperimentID,
					strconv.Itoa(result.Channels),
					strconv.Itoa(result.Recomputed),
					strconv.Itoa(result.Skipped),
					strconv.Itoa(len(result.Failed)),
				})
			})
		}, "Wrote CSV recompute result")
	default:
		return ow.writeWithFile(ctx, ow.cfg.OutputFile, func(w io.Writer) error {
			_, _ = fmt.Fprintf(w, "Recomputed %d of %d channels in experiment %s (%d skipped, %d failed)\n",
				result.Recomputed, result.Channels, result.ExperimentID, result.Skipped, len(result.Failed))
			for _, id := range result.Failed {
				_, _ = fmt.Fprintf(w, "  failed: %s\n", id)
			}
			return nil
		}, "Wrote recompute result")
	}
}
