package recording

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cachesim/sim"
)

func sampleMetrics() (sim.HierarchyConfig, *sim.Metrics) {
	cfg := sim.DefaultHierarchyConfig()
	m := sim.NewMetrics()
	m.WritePolicy = cfg.WritePolicy
	m.MemoryLatency = cfg.MemoryLatencyCycles
	m.TotalAccesses = 10
	m.SimEndedTime = 1234
	m.Execution.Mean = 51.5
	m.Stall.Mean = 2.25
	m.Layers = []sim.LayerStats{
		{Level: 0, Name: "L0", SizeBytes: 32768, BlockSizeBytes: 64, Ways: 4, NumSets: 128, LatencyCycles: 1,
			Accesses: 10, Hits: 6, Misses: 4, HitRate: 0.6, MissRate: 0.4, Evictions: 1},
		{Level: 1, Name: "L1", SizeBytes: 2097152, BlockSizeBytes: 64, Ways: 8, NumSets: 4096, LatencyCycles: 50,
			Accesses: 4, Hits: 0, Misses: 4, HitRate: 0, MissRate: 1, Writebacks: 2, BackInvalidations: 3},
	}
	return cfg, m
}

func TestRecorder_RecordRun_RoundTrips(t *testing.T) {
	// GIVEN a recorder on a fresh database file
	rec, err := New(filepath.Join(t.TempDir(), "runs.sqlite3"))
	require.NoError(t, err)
	defer rec.Close() //nolint:errcheck
	cfg, m := sampleMetrics()

	// WHEN two runs are recorded
	first, err := rec.RecordRun("baseline", cfg, m)
	require.NoError(t, err)
	second, err := rec.RecordRun("again", cfg, m)
	require.NoError(t, err)

	// THEN both are listed with their summary columns
	assert.NotEqual(t, first, second)
	runs, err := rec.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.ElementsMatch(t, []string{"baseline", "again"}, []string{runs[0].Label, runs[1].Label})
	for _, r := range runs {
		assert.Equal(t, int64(64), r.BlockSizeBytes)
		assert.Equal(t, 2, r.NumLayers)
		assert.Equal(t, "wb+wa", r.WritePolicy)
		assert.Equal(t, 10, r.TotalAccesses)
		assert.Equal(t, int64(1234), r.SimEndedTime)
		assert.InDelta(t, 51.5, r.MeanExecution, 1e-9)
		assert.InDelta(t, 2.25, r.MeanStall, 1e-9)
		assert.False(t, r.CreatedAt.IsZero())
	}

	// AND the layer snapshot comes back intact
	layers, err := rec.LayerStats(first)
	require.NoError(t, err)
	assert.Equal(t, m.Layers, layers)
}

func TestRecorder_LayerStats_UnknownRun(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	rec, err := NewWithDB(db)
	require.NoError(t, err)
	defer rec.Close() //nolint:errcheck

	layers, err := rec.LayerStats("missing")
	require.NoError(t, err)
	assert.Empty(t, layers)
}
