package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/huangsam/peakbase/core"
	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
)

// experimentCmd groups the experiment-level commands.
var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Import, inspect, recompute and export experiments",
	Long: `Manage experiments and the channels they own.

Subcommands:
  import    - Store a channel CSV as a new experiment
  list      - List stored experiments
  show      - Print one experiment with its channels
  delete    - Remove an experiment and its channels
  recompute - Re-apply every channel's stored anchors and pairs
  export    - Print the raw, filtered or summary table`,
}

// experimentImportCmd imports a channel CSV.
var experimentImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Store a channel CSV as a new experiment",
	Long: `Read a CSV whose first column is time and whose other columns are
channels, and store it as a new experiment. Use '-' to read from stdin.

The time column must be finite and strictly increasing and every channel
must have a value for every time. Channels start with no baseline.

Examples:
  # Import a run with its metadata
  peakbase experiment import run.csv --name "ferrocene 1mM" --instrument-model CHI760E --date 2024-03-01

  # Import into an in-memory store and print JSON
  cat run.csv | peakbase experiment import - --store-backend memory --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		meta, err := metaFromFlags(cmd)
		if err != nil {
			contract.LogFatal("Invalid experiment metadata", err)
		}
		runExecutor(core.ExecuteExperimentImport(meta, args[0]), "Cannot import experiment")
	},
}

// metaFromFlags reads the experiment metadata flags.
func metaFromFlags(cmd *cobra.Command) (schema.Experiment, error) {
	flags := cmd.Flags()
	str := func(name string) string {
		v, _ := flags.GetString(name)
		return v
	}
	meta := schema.Experiment{
		ID:              str("id"),
		Name:            str("name"),
		Description:     str("description"),
		InstrumentModel: str("instrument-model"),
		DataSource:      str("data-source"),
		DeviceFilename:  str("device-filename"),
		ProjectID:       str("project-id"),
	}
	if s := str("date"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return meta, err
		}
		meta.Date = &d
	}
	for name, dst := range map[string]**float64{
		"init-e":          &meta.InitE,
		"sample-interval": &meta.SampleInterval,
		"run-time":        &meta.RunTime,
		"quiet-time":      &meta.QuietTime,
		"sensitivity":     &meta.Sensitivity,
	} {
		v, err := core.ParseOptionalFloat(str(name))
		if err != nil {
			return meta, fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = v
	}
	return meta, nil
}

// parseDate accepts RFC3339 timestamps or plain dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// experimentListCmd lists experiments.
var experimentListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored experiments",
	Long:    `List stored experiments, newest first, with how many channels carry a baseline.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runExecutor(core.ExecuteExperimentList, "Cannot list experiments")
	},
}

// experimentShowCmd prints one experiment.
var experimentShowCmd = &cobra.Command{
	Use:   "show EXPERIMENT_ID",
	Short: "Print one experiment with its channels",
	Long: `Print one experiment's metadata and a row per channel.

With --output parquet the experiment's samples and integral results are
written next to --output-file.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		runExecutor(core.ExecuteExperimentShow(args[0]), "Cannot show experiment")
	},
}

// experimentDeleteCmd deletes one experiment.
var experimentDeleteCmd = &cobra.Command{
	Use:     "delete EXPERIMENT_ID",
	Short:   "Remove an experiment and its channels",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		runExecutor(core.ExecuteExperimentDelete(args[0]), "Cannot delete experiment")
	},
}

// experimentRecomputeCmd reruns every channel's stored selections.
var experimentRecomputeCmd = &cobra.Command{
	Use:   "recompute EXPERIMENT_ID",
	Short: "Re-apply every channel's stored anchors and pairs",
	Long: `Recompute the baseline and integral results of every channel from its
stored anchors and pairs, one transaction per channel, with up to --workers
channels in flight. Channels without selections are skipped and channels
that fail are reported without stopping the others.

Examples:
  # Recompute after upgrading peakbase
  peakbase experiment recompute 9b2e... --workers 8`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		runExecutor(core.ExecuteExperimentRecompute(args[0]), "Cannot recompute experiment")
	},
}

// experimentExportCmd prints one of the experiment exports.
var experimentExportCmd = &cobra.Command{
	Use:   "export EXPERIMENT_ID",
	Short: "Print the raw, filtered or summary table of an experiment",
	Long: `Build one of the experiment exports:

  raw      - time column plus one column per channel
  filtered - the baseline-corrected slice of every integral result
  summary  - one row per channel with the bounds, area and name of each result

Examples:
  # Save the summary as CSV
  peakbase experiment export 9b2e... --kind summary --output csv --output-file summary.csv

  # Upload the filtered table to object storage
  peakbase experiment export 9b2e... --kind filtered --output csv --output-file s3://lab-results/9b2e/filtered.csv

  # Write samples and results as Parquet
  peakbase experiment export 9b2e... --output parquet --output-file 9b2e`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		s, _ := cmd.Flags().GetString("kind")
		kind, err := schema.ParseExportKind(s)
		if err != nil {
			contract.LogFatal("Invalid export", err)
		}
		runExecutor(core.ExecuteExperimentExport(args[0], kind), "Cannot export experiment")
	},
}
