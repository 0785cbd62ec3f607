package sim

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cachesim/sim/trace"
)

// Simulator replays a sequence of accesses through a hierarchy, strictly in
// the order given.
type Simulator struct {
	Hierarchy *Hierarchy
	Accesses  []*AccessRecord
	// Trace is nil unless access tracing is enabled.
	Trace *trace.SimulationTrace
	// OnAccess, when set, is called after every access is served.
	OnAccess func(*AccessRecord)
	// WallTime is how long the last Run took.
	WallTime time.Duration
}

// NewSimulator returns a simulator ready to replay accesses through h.
func NewSimulator(h *Hierarchy, accesses []*AccessRecord, traceConfig trace.TraceConfig) *Simulator {
	s := &Simulator{
		Hierarchy: h,
		Accesses:  accesses,
	}
	if traceConfig.Enabled() {
		s.Trace = trace.NewSimulationTrace(traceConfig)
	}
	return s
}

// Run serves every access in order and returns the statistics snapshot.
// Cancellation is checked between accesses; a cancelled run returns the
// context error together with the snapshot so far.
func (s *Simulator) Run(ctx context.Context) (*Metrics, error) {
	start := time.Now()
	defer func() { s.WallTime = time.Since(start) }()

	logrus.Infof("Starting replay of %d accesses through %d layers", len(s.Accesses), s.Hierarchy.NumLayers())
	for _, a := range s.Accesses {
		if err := ctx.Err(); err != nil {
			return CollectMetrics(s.Hierarchy, s.Accesses), err
		}
		if err := s.Hierarchy.Access(a); err != nil {
			return CollectMetrics(s.Hierarchy, s.Accesses), err
		}
		if s.Trace != nil {
			s.Trace.RecordAccess(traceRecordOf(a))
		}
		if s.OnAccess != nil {
			s.OnAccess(a)
		}
	}
	logrus.Infof("Replay ended after %d accesses", len(s.Accesses))
	return CollectMetrics(s.Hierarchy, s.Accesses), nil
}

// Reset invalidates the hierarchy and restores every access to its parsed
// state so the same sequence can be replayed again.
func (s *Simulator) Reset() {
	s.Hierarchy.Invalidate()
	for _, a := range s.Accesses {
		a.Reset()
	}
	if s.Trace != nil {
		s.Trace = trace.NewSimulationTrace(s.Trace.Config)
	}
}

func traceRecordOf(a *AccessRecord) trace.AccessRecord {
	levels := make([]trace.LevelRecord, len(a.Path))
	for i, p := range a.Path {
		levels[i] = trace.LevelRecord{
			Level:     p.Level,
			Hit:       p.Hit,
			Allocated: p.Allocated,
			Evicted:   p.Evicted,
			Writeback: p.Writeback,
		}
	}
	return trace.AccessRecord{
		Seq:         a.Seq,
		Mode:        a.Mode.String(),
		Address:     a.Address,
		ArrivalTime: a.ArrivalTime,
		ServeTime:   a.ServeTime,
		FinishTime:  a.FinishTime(),
		Execution:   a.ExecutionTime,
		Terminal:    string(a.Terminal),
		Levels:      levels,
	}
}
