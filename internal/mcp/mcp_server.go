// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/huangsam/peakbase/internal/contract"
)

// NewMCPServer initializes and configures the peakbase MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"peakbase Channel Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_channel ---
	s.AddTool(mcp.NewTool("get_channel",
		mcp.WithDescription("Get one channel's raw and baseline-corrected series with its chosen anchors, pairs and integral results."),
		mcp.WithString("channel_id", mcp.Description("The channel id."), mcp.Required()),
		mcp.WithNumber("points", mcp.Description("Downsample both series to this many points (0 keeps full resolution).")),
	), h.handleGetChannel)

	// --- 2. Tool: edit_channel ---
	s.AddTool(mcp.NewTool("edit_channel",
		mcp.WithDescription("Set a channel's baseline anchors and/or integration pairs. Omitted sections are left untouched; an empty list clears the section."),
		mcp.WithString("channel_id", mcp.Description("The channel id."), mcp.Required()),
		mcp.WithArray("baseline_chosen_points",
			mcp.Description("Time values of the baseline anchors. Values that do not match a sample are dropped."),
			mcp.Items(map[string]any{"type": "number"})),
		mcp.WithArray("integral_chosen_pairs",
			mcp.Description("Integration bounds as {start, end, sample_name} objects."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start":       map[string]any{"type": "number"},
					"end":         map[string]any{"type": "number"},
					"sample_name": map[string]any{"type": "string"},
				},
				"required": []string{"start", "end"},
			})),
		mcp.WithString("interpolation", mcp.Description("Baseline interpolation. Defaults to 'linear'."), mcp.Enum("linear")),
		mcp.WithString("integration", mcp.Description("Integration rule. Defaults to 'trapezoidal'."), mcp.Enum("trapezoidal", "trapz", "simpson")),
	), h.handleEditChannel)

	// --- 3. Tool: list_experiments ---
	s.AddTool(mcp.NewTool("list_experiments",
		mcp.WithDescription("List stored experiments with how many channels carry a baseline."),
	), h.handleListExperiments)

	// --- 4. Tool: get_experiment ---
	s.AddTool(mcp.NewTool("get_experiment",
		mcp.WithDescription("Get one experiment's metadata and channel ids."),
		mcp.WithString("experiment_id", mcp.Description("The experiment id."), mcp.Required()),
	), h.handleGetExperiment)

	// --- 5. Tool: export_experiment ---
	s.AddTool(mcp.NewTool("export_experiment",
		mcp.WithDescription("Build one of the tabular exports of an experiment."),
		mcp.WithString("experiment_id", mcp.Description("The experiment id."), mcp.Required()),
		mcp.WithString("kind", mcp.Description("Export kind."), mcp.Enum("raw", "filtered", "summary"), mcp.Required()),
	), h.handleExportExperiment)

	// --- 6. Tool: recompute_experiment ---
	s.AddTool(mcp.NewTool("recompute_experiment",
		mcp.WithDescription("Re-apply every channel's stored anchors and pairs."),
		mcp.WithString("experiment_id", mcp.Description("The experiment id."), mcp.Required()),
	), h.handleRecomputeExperiment)

	return s
}

// StartMCPServer starts the peakbase MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
