package sim

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePercentile(t *testing.T) {
	data := []int64{10, 20, 30, 40, 50}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10}, {50, 30}, {100, 50}, {25, 20}, {90, 46},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, CalculatePercentile(data, tt.p), 1e-9, "p%v", tt.p)
	}
	assert.Equal(t, 0.0, CalculatePercentile([]int64{}, 50))
	assert.Equal(t, 7.0, CalculatePercentile([]int{7}, 99))
}

func TestCalculateMean(t *testing.T) {
	assert.Equal(t, 0.0, CalculateMean([]float64{}))
	assert.InDelta(t, 2.5, CalculateMean([]int{1, 2, 3, 4}), 1e-9)
}

func TestCollectMetrics_SummarizesServedAccesses(t *testing.T) {
	// GIVEN two misses to colliding lines and a hit, with one access unserved
	h := newTestHierarchy(t, 4, WriteBackAllocate, 0, LayerConfig{SizeBytes: 16, LatencyCycles: 1, Ways: 1})
	accesses := []*AccessRecord{read(0, 0, 0), write(1, 4, 0), read(2, 0, 0), read(3, 8, 0)}
	replay(t, h, accesses[:3]...)

	// WHEN metrics are collected
	m := CollectMetrics(h, accesses)

	// THEN the unserved access is ignored
	assert.Equal(t, 3, m.TotalAccesses)
	assert.Equal(t, 2, m.Reads)
	assert.Equal(t, 1, m.Writes)
	assert.Equal(t, 2, m.StalledCount, "K=0 makes every follower wait")
	assert.Equal(t, map[Terminal]int{TerminalMemory: 2, TerminalHit: 1}, m.TerminalCounts)
	assert.Equal(t, int64(102+102+1), m.TotalExecution)
	assert.Equal(t, accesses[2].FinishTime(), m.SimEndedTime)
	assert.Equal(t, int64(102), m.Execution.Max)
	assert.InDelta(t, 205.0/3, m.Execution.Mean, 1e-9)
	assert.Equal(t, WriteBackAllocate, m.WritePolicy)
	require.Len(t, m.Layers, 1)
	assert.InDelta(t, 1.0/3, m.HitRate(0), 1e-9)
	assert.Equal(t, 0.0, m.HitRate(5))
}

func TestMetrics_SaveResults_WritesJSON(t *testing.T) {
	h := newTestHierarchy(t, 4, WriteThroughNoAllocate, 2, LayerConfig{SizeBytes: 16, LatencyCycles: 1, Ways: 1})
	accesses := []*AccessRecord{write(0, 0, 0)}
	replay(t, h, accesses...)
	path := filepath.Join(t.TempDir(), "results.json")

	require.NoError(t, CollectMetrics(h, accesses).SaveResults(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Metrics
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, WriteThroughNoAllocate, decoded.WritePolicy)
	assert.Equal(t, 2, decoded.OutstandingLimit)
	assert.Equal(t, 1, decoded.TerminalCounts[TerminalWriteThrough])
}
