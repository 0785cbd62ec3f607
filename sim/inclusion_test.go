package sim_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cachesim/sim"
	"github.com/inference-sim/cachesim/sim/internal/testutil"
	"github.com/inference-sim/cachesim/sim/trace"
	"github.com/inference-sim/cachesim/sim/workload"
)

// threeLevelConfig is a small hierarchy that evicts constantly on 12-bit
// traces: 64, 128 and 256 lines of 4 bytes.
func threeLevelConfig(policy sim.WritePolicy, k int) sim.HierarchyConfig {
	return sim.HierarchyConfig{
		BlockSizeBytes: 4,
		Layers: []sim.LayerConfig{
			{SizeBytes: 256, LatencyCycles: 10, Ways: 1},
			{SizeBytes: 512, LatencyCycles: 20, Ways: 2},
			{SizeBytes: 1024, LatencyCycles: 50, Ways: 4},
		},
		WritePolicy:            policy,
		OutstandingAccessLimit: k,
		MemoryLatencyCycles:    sim.MemoryLatency,
	}
}

// assertInclusive checks that every line resident in a layer is also resident
// in the layer below it.
func assertInclusive(t *testing.T, h *sim.Hierarchy, context string) bool {
	t.Helper()
	ok := true
	for i := 0; i+1 < h.NumLayers(); i++ {
		upper, lower := h.Layer(i), h.Layer(i+1)
		ok = testutil.AssertSubset(t, upper.ValidLines(), lower.ValidLines(),
			fmt.Sprintf("%s: %s in %s", context, upper.Name, lower.Name)) && ok
	}
	return ok
}

func runInclusive(t *testing.T, cfg sim.HierarchyConfig, accesses []*sim.AccessRecord) *sim.Metrics {
	t.Helper()
	h, err := sim.NewHierarchy(cfg)
	require.NoError(t, err)

	s := sim.NewSimulator(h, accesses, trace.TraceConfig{})
	s.OnAccess = func(a *sim.AccessRecord) {
		if !assertInclusive(t, h, fmt.Sprintf("after access %d", a.Seq)) {
			t.FailNow()
		}
	}
	m, err := s.Run(context.Background())
	require.NoError(t, err)
	return m
}

func TestInclusion_BasicTrace(t *testing.T) {
	for _, policy := range []sim.WritePolicy{sim.WriteBackAllocate, sim.WriteThroughNoAllocate} {
		t.Run(string(policy), func(t *testing.T) {
			accesses, err := workload.LoadTrace(testutil.TestdataPath(t, "basic.trace"), 10)
			require.NoError(t, err)

			m := runInclusive(t, threeLevelConfig(policy, 0), accesses)

			assert.Equal(t, len(accesses), m.TotalAccesses)
			assert.Positive(t, m.Layers[2].Evictions, "trace must exercise eviction in the last layer")
			assert.Positive(t, m.Layers[0].BackInvalidations+m.Layers[1].BackInvalidations)
		})
	}
}

func TestInclusion_RandomTraces(t *testing.T) {
	for seed := int64(1); seed <= 8; seed++ {
		for _, policy := range []sim.WritePolicy{sim.WriteBackAllocate, sim.WriteThroughNoAllocate} {
			t.Run(fmt.Sprintf("seed=%d/%s", seed, policy), func(t *testing.T) {
				gen := workload.DefaultGeneratorConfig()
				gen.AddressBits = 12
				gen.NumAccesses = 300
				gen.Seed = seed
				lines, err := workload.GenerateTrace(gen)
				require.NoError(t, err)

				runInclusive(t, threeLevelConfig(policy, int(seed%3)), workload.ToAccessRecords(lines))
			})
		}
	}
}

// Every access that reaches a layer either hits there or moves on, so each
// layer sees at most as many accesses as the one above and no fewer than the
// misses above that needed it.
func TestInclusion_AccessesFunnelDownward(t *testing.T) {
	accesses, err := workload.LoadTrace(testutil.TestdataPath(t, "basic.trace"), 10)
	require.NoError(t, err)

	m := runInclusive(t, threeLevelConfig(sim.WriteBackAllocate, 0), accesses)

	assert.Equal(t, int64(len(accesses)), m.Layers[0].Accesses)
	for i := 1; i < len(m.Layers); i++ {
		// under write-back only misses travel down
		assert.Equal(t, m.Layers[i-1].Misses, m.Layers[i].Accesses, "layer %d", i)
	}
	for _, l := range m.Layers {
		assert.InDelta(t, 1.0, l.HitRate+l.MissRate, 1e-9)
	}
}
