package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/internal/store"
	"github.com/huangsam/peakbase/schema"
)

// testManager wraps s in a mock manager.
func testManager(s contract.ChannelStore) *store.MockStoreManager {
	mgr := &store.MockStoreManager{}
	mgr.On("GetChannelStore").Return(s)
	return mgr
}

// jsonConfig writes JSON output to a file under t.TempDir.
func jsonConfig(t *testing.T) *contract.Config {
	t.Helper()
	return &contract.Config{
		Output:        schema.JSONOut,
		OutputFile:    filepath.Join(t.TempDir(), "out.json"),
		Precision:     contract.DefaultPrecision,
		Workers:       2,
		Interpolation: schema.LinearInterpolation,
		Integration:   schema.TrapezoidalIntegration,
	}
}

func readJSON(t *testing.T, path string, dst any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, dst))
}

func TestExecuteChannelEditAndShow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mgr := testManager(s)
	cfg := jsonConfig(t)

	edit := schema.ChannelEdit{
		BaselineChosenPoints: floats(0, 4),
		IntegralChosenPairs:  pairs(schema.IntegralPair{Start: 0, End: 4}),
	}
	require.NoError(t, ExecuteChannelEdit("c1", edit)(ctx, cfg, mgr))

	var view schema.ChannelView
	readJSON(t, cfg.OutputFile, &view)
	assert.Equal(t, "c1", view.ID)
	require.Len(t, view.IntegralResults, 1)
	assert.Equal(t, schema.DefaultSampleName, view.IntegralResults[0].SampleName)

	require.NoError(t, ExecuteChannelShow("c1")(ctx, cfg, mgr))
	var shown schema.ChannelView
	readJSON(t, cfg.OutputFile, &shown)
	assert.Equal(t, view.IntegralResults, shown.IntegralResults)
	assert.Equal(t, []float64{0, -2.25, -4.5, -1.75, 0}, shown.Baseline.Y)
}

func TestExecuteChannelEditConfiguredMethod(t *testing.T) {
	cfg := jsonConfig(t)
	cfg.Interpolation = "cubic"
	err := ExecuteChannelEdit("c1", schema.ChannelEdit{BaselineChosenPoints: floats(0, 4)})(context.Background(), cfg, testManager(newTestStore(t)))
	assert.ErrorIs(t, err, schema.ErrUnsupportedMethod)
}

func TestExecuteExperimentImportAndExport(t *testing.T) {
	ctx := context.Background()
	mgr := testManager(store.NewMemoryStore())
	cfg := jsonConfig(t)

	src := filepath.Join(t.TempDir(), "run.csv")
	require.NoError(t, os.WriteFile(src, []byte("time,CH1,CH2\n0,1,5\n1,2,6\n2,1,5\n"), 0o600))

	require.NoError(t, ExecuteExperimentImport(schema.Experiment{ID: "e9", Name: "run"}, src)(ctx, cfg, mgr))
	var exp schema.Experiment
	readJSON(t, cfg.OutputFile, &exp)
	assert.Equal(t, "e9", exp.ID)
	assert.Equal(t, src, exp.Filename)
	require.Len(t, exp.Channels, 2)

	require.NoError(t, ExecuteExperimentExport("e9", schema.RawExport)(ctx, cfg, mgr))
	var table schema.ExportTable
	readJSON(t, cfg.OutputFile, &table)
	assert.Equal(t, []string{"Time/s", "CH1", "CH2"}, table.Header)
	assert.Len(t, table.Rows, 3)

	require.NoError(t, ExecuteExperimentList(ctx, cfg, mgr))
	var list []schema.ExperimentSummary
	readJSON(t, cfg.OutputFile, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].ChannelQty)

	require.NoError(t, ExecuteExperimentRecompute("e9")(ctx, cfg, mgr))
	var result schema.RecomputeResult
	readJSON(t, cfg.OutputFile, &result)
	assert.Equal(t, 2, result.Skipped)

	require.NoError(t, ExecuteExperimentDelete("e9")(ctx, cfg, mgr))
	assert.ErrorIs(t, ExecuteExperimentShow("e9")(ctx, cfg, mgr), schema.ErrNotFound)
}

func TestExecuteStoreStatusAndClear(t *testing.T) {
	ctx := context.Background()
	mgr := testManager(newTestStore(t))
	cfg := jsonConfig(t)

	require.NoError(t, ExecuteStoreStatus(ctx, cfg, mgr))
	var status schema.StoreStatus
	readJSON(t, cfg.OutputFile, &status)
	assert.Equal(t, 1, status.Experiments)
	assert.Equal(t, 2, status.Channels)

	require.NoError(t, ExecuteStoreClear(ctx, cfg, mgr))
	require.NoError(t, ExecuteStoreStatus(ctx, cfg, mgr))
	readJSON(t, cfg.OutputFile, &status)
	assert.Zero(t, status.Experiments)
}

func TestExecuteWithoutStore(t *testing.T) {
	cfg := jsonConfig(t)
	assert.Error(t, ExecuteExperimentList(context.Background(), cfg, nil))
	assert.Error(t, ExecuteStoreStatus(context.Background(), cfg, testManager(nil)))
}

func TestParseAnchors(t *testing.T) {
	got, err := ParseAnchors(" 0, 2.5 ,4")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2.5, 4}, got)

	got, err = ParseAnchors("")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = ParseAnchors("1,x")
	assert.Error(t, err)
	_, err = ParseAnchors("NaN")
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	got, err := ParsePairs("0:2:peak A, 3:4")
	require.NoError(t, err)
	assert.Equal(t, []schema.IntegralPair{{Start: 0, End: 2, SampleName: "peak A"}, {Start: 3, End: 4}}, got)

	got, err = ParsePairs("")
	require.NoError(t, err)
	assert.NotNil(t, got)

	for _, bad := range []string{"1", "a:2", "1:b", strings.Repeat(":", 2)} {
		_, err := ParsePairs(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseOptionalFloat(t *testing.T) {
	v, err := ParseOptionalFloat("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseOptionalFloat(" 0.5 ")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 0.5, *v)

	_, err = ParseOptionalFloat("abc")
	assert.Error(t, err)
}
