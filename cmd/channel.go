package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/huangsam/peakbase/core"
	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
)

// channelCmd groups the per-channel commands.
var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Inspect and edit single channels",
	Long: `Inspect a channel's raw and baseline-corrected series, or change its
baseline anchors and integration pairs.

Subcommands:
  show - Print a channel view with downsampled series and integral results
  edit - Set baseline anchors and/or integration pairs and recompute`,
}

// channelShowCmd prints one channel.
var channelShowCmd = &cobra.Command{
	Use:   "show CHANNEL_ID",
	Short: "Print a channel with its baseline and integral results",
	Long: `Print a channel's raw and baseline-corrected series together with its
chosen anchors, chosen pairs and integral results.

Series are reduced with Largest-Triangle-Three-Buckets when --points is set,
which keeps the peaks visible. Stored data is never modified.

Examples:
  # Show a channel as a table with sparklines
  peakbase channel show 3f1c...

  # Export a 500-point view for plotting
  peakbase channel show 3f1c... --points 500 --output json --output-file view.json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		runExecutor(core.ExecuteChannelShow(args[0]), "Cannot show channel")
	},
}

// channelEditCmd applies an edit to one channel.
var channelEditCmd = &cobra.Command{
	Use:   "edit CHANNEL_ID",
	Short: "Set baseline anchors and/or integration pairs",
	Long: `Set a channel's baseline anchors and/or integration pairs and recompute
the derived values in one transaction.

A section is only touched when its flag is given. Passing an empty value
clears the section. Anchors and bounds that do not match a sampled time value
are dropped. When only the integration pairs change, they are integrated
against the stored baseline.

Examples:
  # Fit a baseline through three anchors
  peakbase channel edit 3f1c... --baseline 0,12.5,40

  # Integrate two peaks against the stored baseline
  peakbase channel edit 3f1c... --integrals '2:5:peak A,8:9'

  # Clear the baseline
  peakbase channel edit 3f1c... --baseline ''

  # Apply an edit document
  echo '{"baseline_chosen_points":[0,40]}' | peakbase channel edit 3f1c... --from-file -`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		edit, err := editFromFlags(cmd)
		if err != nil {
			contract.LogFatal("Invalid edit", err)
		}
		runExecutor(core.ExecuteChannelEdit(args[0], edit), "Cannot edit channel")
	},
}

// editFromFlags builds the edit from --from-file, then --baseline and
// --integrals, which override the file's sections when both are given.
func editFromFlags(cmd *cobra.Command) (schema.ChannelEdit, error) {
	var edit schema.ChannelEdit
	if path, _ := cmd.Flags().GetString("from-file"); path != "" {
		var r io.Reader = os.Stdin
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return edit, err
			}
			defer func() { _ = f.Close() }()
			r = f
		}
		if err := json.NewDecoder(r).Decode(&edit); err != nil {
			return edit, fmt.Errorf("invalid edit document: %w", err)
		}
	}
	if cmd.Flags().Changed("baseline") {
		s, _ := cmd.Flags().GetString("baseline")
		anchors, err := core.ParseAnchors(s)
		if err != nil {
			return edit, err
		}
		edit.BaselineChosenPoints = &anchors
	}
	if cmd.Flags().Changed("integrals") {
		s, _ := cmd.Flags().GetString("integrals")
		pairs, err := core.ParsePairs(s)
		if err != nil {
			return edit, err
		}
		edit.IntegralChosenPairs = &pairs
	}
	if !edit.TouchesBaseline() && !edit.TouchesIntegrals() {
		return edit, errors.New("nothing to edit: pass --baseline, --integrals or --from-file")
	}
	return edit, nil
}
