package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cachesim/sim/trace"
)

func newTestSimulator(t *testing.T, tc trace.TraceConfig) *Simulator {
	t.Helper()
	h := newTestHierarchy(t, 4, WriteBackAllocate, 0,
		LayerConfig{SizeBytes: 16, LatencyCycles: 1, Ways: 1},
		LayerConfig{SizeBytes: 64, LatencyCycles: 5, Ways: 2},
	)
	accesses := []*AccessRecord{
		read(0, 0, 0), write(1, 16, 0), read(2, 0, 3), write(3, 32, 3), read(4, 16, 10),
	}
	return NewSimulator(h, accesses, tc)
}

func TestSimulator_Run_ServesEveryAccessInOrder(t *testing.T) {
	s := newTestSimulator(t, trace.TraceConfig{})
	var order []int
	s.OnAccess = func(a *AccessRecord) { order = append(order, a.Seq) }

	m, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, 5, m.TotalAccesses)
	assert.Nil(t, s.Trace)
	for _, a := range s.Accesses {
		assert.NotEqual(t, TerminalNone, a.Terminal)
	}
}

func TestSimulator_Run_RecordsTrace(t *testing.T) {
	s := newTestSimulator(t, trace.TraceConfig{Level: trace.TraceLevelAccesses})

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, s.Trace)
	require.Len(t, s.Trace.Accesses, 5)
	first := s.Trace.Accesses[0]
	assert.Equal(t, "r", first.Mode)
	assert.Equal(t, string(TerminalMemory), first.Terminal)
	assert.Equal(t, -1, first.HitLevel())
	assert.Len(t, first.Levels, 2)
	assert.Equal(t, s.Accesses[0].FinishTime(), first.FinishTime)
}

func TestSimulator_Run_StopsOnCancel(t *testing.T) {
	s := newTestSimulator(t, trace.TraceConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	s.OnAccess = func(a *AccessRecord) {
		if a.Seq == 1 {
			cancel()
		}
	}

	m, err := s.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, m.TotalAccesses)
	assert.Equal(t, TerminalNone, s.Accesses[2].Terminal)
}

func TestSimulator_Reset_ReplaysIdentically(t *testing.T) {
	s := newTestSimulator(t, trace.TraceConfig{Level: trace.TraceLevelAccesses})
	first, err := s.Run(context.Background())
	require.NoError(t, err)

	s.Reset()
	require.Empty(t, s.Trace.Accesses)
	second, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, s.Trace.Accesses, 5)
}
