package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/huangsam/peakbase/core"
	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

func (h *toolHandler) store() (contract.ChannelStore, error) {
	if h.mgr == nil || h.mgr.GetChannelStore() == nil {
		return nil, errors.New("store is not initialized")
	}
	return h.mgr.GetChannelStore(), nil
}

// jsonResult renders v as the tool's text content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetChannel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("channel_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	points := request.GetInt("points", h.baseCfg.Points)
	if points < 0 || points > contract.MaxPoints {
		return mcp.NewToolResultError(fmt.Sprintf("points must be between 0 and %d", contract.MaxPoints)), nil
	}
	s, err := h.store()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	view, err := core.GetChannelView(ctx, s, id, points)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get channel failed: %v", err)), nil
	}
	return jsonResult(view)
}

// decodeEdit reads the edit sections from the raw arguments. A section key
// that is absent or null leaves the pointer nil; an empty list is kept as an
// explicit empty selection.
func decodeEdit(args map[string]any) (schema.ChannelEdit, error) {
	var edit schema.ChannelEdit
	raw, err := json.Marshal(args)
	if err != nil {
		return edit, err
	}
	if err := json.Unmarshal(raw, &edit); err != nil {
		return edit, fmt.Errorf("invalid edit: %w", err)
	}
	return edit, nil
}

func (h *toolHandler) handleEditChannel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("channel_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	edit, err := decodeEdit(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if edit.Interpolation == "" {
		edit.Interpolation = h.baseCfg.Interpolation
	}
	if edit.Integration == "" {
		edit.Integration = h.baseCfg.Integration
	}
	s, err := h.store()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	updated, err := core.EditChannel(ctx, s, id, edit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("edit failed: %v", err)), nil
	}
	return jsonResult(updated)
}

func (h *toolHandler) handleListExperiments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := h.store()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.ListExperiments(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(list)
}

func (h *toolHandler) handleGetExperiment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("experiment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s, err := h.store()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	exp, err := s.GetExperiment(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get experiment failed: %v", err)), nil
	}
	// Sample arrays are served per channel by get_channel.
	summary := struct {
		schema.Experiment
		Channels []channelSummary `json:"channels"`
	}{Experiment: exp}
	for _, ch := range exp.Channels {
		summary.Channels = append(summary.Channels, channelSummary{
			ID:          ch.ID,
			ChannelName: ch.ChannelName,
			Samples:     len(ch.TimeValues),
			HasBaseline: ch.HasBaseline(),
			Results:     len(ch.IntegralResults),
		})
	}
	return jsonResult(summary)
}

type channelSummary struct {
	ID          string `json:"id"`
	ChannelName string `json:"channel_name"`
	Samples     int    `json:"samples"`
	HasBaseline bool   `json:"has_baseline"`
	Results     int    `json:"results"`
}

func (h *toolHandler) handleExportExperiment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("experiment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := schema.ParseExportKind(request.GetString("kind", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s, err := h.store()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	table, err := core.ExportExperiment(ctx, s, id, kind)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return jsonResult(table)
}

func (h *toolHandler) handleRecomputeExperiment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("experiment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s, err := h.store()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := core.RecomputeExperiment(ctx, s, id, h.baseCfg.Workers)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recompute failed: %v", err)), nil
	}
	return jsonResult(result)
}
