package cmd

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/huangsam/peakbase/schema"
)

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of peakbase.",
	Long: `Display version information including build details and the store
backends and numeric methods compiled into this binary.

Attach this output when reporting a bug.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if short, _ := cmd.Flags().GetBool("short"); short {
			_, _ = fmt.Fprintln(out, version)
			return
		}
		_, _ = fmt.Fprintf(out, "peakbase CLI\n")
		_, _ = fmt.Fprintf(out, "  Version:  %s\n", version)
		_, _ = fmt.Fprintf(out, "  Commit:   %s\n", commit)
		_, _ = fmt.Fprintf(out, "  Built:    %s\n", date)
		_, _ = fmt.Fprintf(out, "  Runtime:  %s\n", runtime.Version())
		_, _ = fmt.Fprintf(out, "  Backends: %s\n", sortedKeys(schema.ValidDatabaseBackends))
		_, _ = fmt.Fprintf(out, "  Methods:  %s / %s\n", sortedKeys(schema.ValidInterpolationMethods), sortedKeys(schema.ValidIntegrationMethods))
	},
}

// sortedKeys joins the names of a method or backend set.
func sortedKeys[K ~string](set map[K]struct{}) string {
	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, string(k))
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func init() {
	versionCmd.Flags().Bool("short", false, "Print only the version")
}
