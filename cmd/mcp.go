package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/internal/mcp"
	"github.com/huangsam/peakbase/internal/metrics"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the peakbase MCP server",
	Long: `Launch an MCP server on stdio that lets agents read channels, edit
baselines and integration pairs, and export experiments via standard tools.

With --metrics-addr, edit and recompute metrics are served for Prometheus
at /metrics on that address while the server runs.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if cfg.MetricsAddr != "" {
			stop := serveMetrics(cfg.MetricsAddr)
			defer stop()
		}
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}

// serveMetrics exposes the default collectors on addr and returns a function
// that shuts the listener down.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Default.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			contract.Logger().Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	contract.Logger().Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
