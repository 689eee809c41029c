package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/huangsam/peakbase/internal/contract"
	"github.com/huangsam/peakbase/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var ignoreUpdated = cmpopts.IgnoreFields(schema.Channel{}, "LastUpdated")

func ptr[T any](v T) *T { return &v }

func sampleExperiment(id string) schema.Experiment {
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return schema.Experiment{
		ID:              id,
		Name:            "run " + id,
		Date:            &date,
		InstrumentModel: "CHI760E",
		InitE:           ptr(-0.2),
		SampleInterval:  ptr(1.0),
		Samples:         ptr(5),
		Channels: []schema.Channel{
			{
				ID:          id + "-ch1",
				ChannelName: "CH1",
				TimeValues:  []float64{0, 1, 2, 3, 4},
				RawValues:   []float64{10, 8, 6, 9, 11},
			},
			{
				ID:          id + "-ch2",
				ChannelName: "CH2",
				TimeValues:  []float64{0, 1, 2, 3, 4},
				RawValues:   []float64{1, 1, 1, 1, 1},
			},
		},
	}
}

func baselineCommit(points, spline, values []float64) contract.CommitFunc {
	return func(schema.Channel) (schema.ChannelCommit, error) {
		return schema.ChannelCommit{Baseline: &schema.BaselineUpdate{ChosenPoints: points, Spline: spline, Values: values}}, nil
	}
}

// runStoreSuite exercises the ChannelStore behaviour every backend must share.
func runStoreSuite(t *testing.T, open func(t *testing.T) contract.ChannelStore) {
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		s := open(t)
		exp := sampleExperiment("e1")
		require.NoError(t, s.CreateExperiment(ctx, exp))

		got, err := s.GetExperiment(ctx, "e1")
		require.NoError(t, err)
		require.Len(t, got.Channels, 2)
		assert.Equal(t, "CH1", got.Channels[0].ChannelName)
		assert.Equal(t, "e1", got.Channels[1].ExperimentID)
		assert.True(t, exp.Date.Equal(*got.Date))
		assert.Equal(t, 5, *got.Samples)
		assert.Nil(t, got.RunTime)

		ch, err := s.GetChannel(ctx, "e1-ch1")
		require.NoError(t, err)
		want := exp.Channels[0]
		want.ExperimentID = "e1"
		if diff := cmp.Diff(want, ch, ignoreUpdated); diff != "" {
			t.Errorf("channel mismatch (-want +got):\n%s", diff)
		}
		assert.Nil(t, ch.BaselineValues)
		assert.Nil(t, ch.IntegralResults)
	})

	t.Run("duplicate experiment", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateExperiment(ctx, sampleExperiment("e1")))
		err := s.CreateExperiment(ctx, sampleExperiment("e1"))
		assert.ErrorIs(t, err, schema.ErrAlreadyExists)
	})

	t.Run("not found", func(t *testing.T) {
		s := open(t)
		_, err := s.GetChannel(ctx, "missing")
		assert.ErrorIs(t, err, schema.ErrNotFound)
		_, err = s.GetExperiment(ctx, "missing")
		assert.ErrorIs(t, err, schema.ErrNotFound)
		_, err = s.CommitChannel(ctx, "missing", baselineCommit(nil, nil, nil))
		assert.ErrorIs(t, err, schema.ErrNotFound)
		assert.ErrorIs(t, s.DeleteExperiment(ctx, "missing"), schema.ErrNotFound)
	})

	t.Run("commit keeps empty distinct from absent", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateExperiment(ctx, sampleExperiment("e1")))

		out, err := s.CommitChannel(ctx, "e1-ch1", baselineCommit([]float64{}, []float64{}, []float64{}))
		require.NoError(t, err)
		assert.NotNil(t, out.BaselineValues)

		got, err := s.GetChannel(ctx, "e1-ch1")
		require.NoError(t, err)
		require.NotNil(t, got.BaselineChosenPoints)
		require.NotNil(t, got.BaselineSpline)
		require.NotNil(t, got.BaselineValues)
		assert.Empty(t, got.BaselineValues)
		assert.Nil(t, got.IntegralChosenPairs)
		if diff := cmp.Diff(out, got, ignoreUpdated); diff != "" {
			t.Errorf("returned and stored channel differ (-returned +stored):\n%s", diff)
		}
	})

	t.Run("commit writes both sections", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateExperiment(ctx, sampleExperiment("e1")))

		pairs := []schema.IntegralPair{{Start: 0, End: 2, SampleName: "A"}}
		results := []schema.IntegralResult{{Start: 0, End: 2, Area: -4.5, SampleName: "A"}}
		_, err := s.CommitChannel(ctx, "e1-ch1", func(cur schema.Channel) (schema.ChannelCommit, error) {
			assert.Equal(t, []float64{10, 8, 6, 9, 11}, cur.RawValues)
			return schema.ChannelCommit{
				Baseline: &schema.BaselineUpdate{
					ChosenPoints: []float64{0, 4},
					Spline:       []float64{10, 10.25, 10.5, 10.75, 11},
					Values:       []float64{0, -2.25, -4.5, -1.75, 0},
				},
				Integral: &schema.IntegralUpdate{ChosenPairs: pairs, Results: results},
			}, nil
		})
		require.NoError(t, err)

		got, err := s.GetChannel(ctx, "e1-ch1")
		require.NoError(t, err)
		assert.Equal(t, []float64{0, -2.25, -4.5, -1.75, 0}, got.BaselineValues)
		assert.Equal(t, pairs, got.IntegralChosenPairs)
		assert.Equal(t, results, got.IntegralResults)

		rows, err := s.ListExperiments(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 2, rows[0].ChannelQty)
		assert.Equal(t, 1, rows[0].ChannelQtyFilled)
	})

	t.Run("compute error leaves record unchanged", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateExperiment(ctx, sampleExperiment("e1")))
		before, err := s.GetChannel(ctx, "e1-ch1")
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = s.CommitChannel(ctx, "e1-ch1", func(schema.Channel) (schema.ChannelCommit, error) {
			return schema.ChannelCommit{}, boom
		})
		assert.ErrorIs(t, err, boom)

		after, err := s.GetChannel(ctx, "e1-ch1")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("cancellation before commit leaves record unchanged", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateExperiment(ctx, sampleExperiment("e1")))
		before, err := s.GetChannel(ctx, "e1-ch1")
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		_, err = s.CommitChannel(cctx, "e1-ch1", func(schema.Channel) (schema.ChannelCommit, error) {
			cancel()
			return schema.ChannelCommit{Baseline: &schema.BaselineUpdate{ChosenPoints: []float64{0}, Spline: []float64{10, 10, 10, 10, 10}, Values: []float64{0, -2, -4, -1, 1}}}, nil
		})
		assert.Error(t, err)

		after, err := s.GetChannel(ctx, "e1-ch1")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("concurrent commits do not lose updates", func(t *testing.T) {
		defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
		s := open(t)
		require.NoError(t, s.CreateExperiment(ctx, sampleExperiment("e1")))

		const writers = 16
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := range writers {
			wg.Go(func() {
				_, err := s.CommitChannel(ctx, "e1-ch1", func(cur schema.Channel) (schema.ChannelCommit, error) {
					pairs := append(cur.IntegralChosenPairs, schema.IntegralPair{Start: float64(i), End: float64(i), SampleName: fmt.Sprint(i)})
					return schema.ChannelCommit{Integral: &schema.IntegralUpdate{ChosenPairs: pairs, Results: []schema.IntegralResult{}}}, nil
				})
				errs <- err
			})
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := s.GetChannel(ctx, "e1-ch1")
		require.NoError(t, err)
		assert.Len(t, got.IntegralChosenPairs, writers)
		require.NoError(t, s.Close())
	})

	t.Run("delete cascades to channels", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateExperiment(ctx, sampleExperiment("e1")))
		require.NoError(t, s.CreateExperiment(ctx, sampleExperiment("e2")))

		require.NoError(t, s.DeleteExperiment(ctx, "e1"))
		_, err := s.GetChannel(ctx, "e1-ch1")
		assert.ErrorIs(t, err, schema.ErrNotFound)
		_, err = s.GetChannel(ctx, "e2-ch1")
		assert.NoError(t, err)

		rows, err := s.ListExperiments(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "e2", rows[0].ID)
	})

	t.Run("status and clear", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.CreateExperiment(ctx, sampleExperiment("e1")))
		_, err := s.CommitChannel(ctx, "e1-ch2", baselineCommit([]float64{0}, []float64{1, 1, 1, 1, 1}, []float64{0, 0, 0, 0, 0}))
		require.NoError(t, err)

		status, err := s.GetStatus(ctx)
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.Equal(t, 1, status.Experiments)
		assert.Equal(t, 2, status.Channels)
		assert.Equal(t, 1, status.FilledChannels)
		assert.False(t, status.LastUpdated.IsZero())

		require.NoError(t, s.Clear(ctx))
		status, err = s.GetStatus(ctx)
		require.NoError(t, err)
		assert.Zero(t, status.Experiments)
		assert.Zero(t, status.Channels)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) contract.ChannelStore {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) contract.ChannelStore {
		s, err := NewSQLStore(schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStoreSchemaVersion(t *testing.T) {
	s, err := NewSQLStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "peakbase.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	status, err := s.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.Equal(t, uint(3), status.SchemaVersion)
	assert.False(t, status.Dirty)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{backend: schema.PostgreSQLBackend}
	assert.Equal(t, "UPDATE t SET a = $1 WHERE id = $2", pg.rebind("UPDATE t SET a = ? WHERE id = ?"))

	my := &SQLStore{backend: schema.MySQLBackend}
	assert.Equal(t, "SELECT ? FROM t", my.rebind("SELECT ? FROM t"))
	assert.Equal(t, " FOR UPDATE", my.rowLockSuffix())
	assert.Empty(t, (&SQLStore{backend: schema.SQLiteBackend}).rowLockSuffix())
}

func TestEncodeJSON(t *testing.T) {
	col, err := encodeJSON([]float64(nil))
	require.NoError(t, err)
	assert.False(t, col.Valid)

	col, err = encodeJSON([]float64{})
	require.NoError(t, err)
	assert.Equal(t, "[]", col.String)

	var back []float64
	require.NoError(t, decodeJSON(col, &back))
	assert.NotNil(t, back)
	assert.Empty(t, back)
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate.db")
	var out bytes.Buffer

	require.NoError(t, Migrate(&out, schema.SQLiteBackend, dbPath, -1))
	assert.Contains(t, out.String(), "to version 3")

	out.Reset()
	require.NoError(t, Migrate(&out, schema.SQLiteBackend, dbPath, -1))
	assert.Contains(t, out.String(), "No migration needed")

	require.NoError(t, Migrate(&out, schema.SQLiteBackend, dbPath, 1))
	require.NoError(t, Migrate(&out, schema.SQLiteBackend, dbPath, 0))
	require.NoError(t, Migrate(&out, schema.SQLiteBackend, dbPath, -1))

	err := Migrate(&out, schema.MemoryBackend, "", -1)
	assert.Error(t, err)
}

func TestInitStores(t *testing.T) {
	initOnce = sync.Once{}  // Reset for test
	closeOnce = sync.Once{} // Reset for test
	defer func() {
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
		Manager = &ChannelStoreManager{}
	}()

	require.NoError(t, InitStores(schema.MemoryBackend, ""))
	first := Manager.GetChannelStore()
	require.NotNil(t, first)

	// Repeated initialization keeps the first store
	require.NoError(t, InitStores(schema.SQLiteBackend, ":memory:"))
	assert.Same(t, first, Manager.GetChannelStore())

	CloseStores()
	CloseStores()
}

func TestNewChannelStoreUnsupported(t *testing.T) {
	_, err := NewChannelStore("redis", "")
	assert.Error(t, err)
}
