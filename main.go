// main is the entry point for the peakbase CLI.
package main

import (
	"github.com/huangsam/peakbase/cmd"
	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/internal/store"
)

func main() {
	defer store.CloseStores()
	defer func() {
		if err := cmd.StopProfiling(); err != nil {
			contract.LogWarn("Cannot stop profiling", err)
		}
	}()

	if err := cmd.Execute(); err != nil {
		contract.LogFatal("Cannot run peakbase", err)
	}
}
