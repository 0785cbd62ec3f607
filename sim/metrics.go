// Tracks per-layer and per-access statistics of a replay such as:
// hit and miss rates, evictions, writebacks, execution and stall latency.

package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/sirupsen/logrus"
)

// LayerStats is a point-in-time snapshot of one layer.
type LayerStats struct {
	Level             int     `json:"level"`
	Name              string  `json:"name"`
	SizeBytes         int64   `json:"size_bytes"`
	BlockSizeBytes    int64   `json:"block_size_bytes"`
	Ways              int     `json:"ways"`
	NumSets           int     `json:"num_sets"`
	LatencyCycles     int64   `json:"latency_cycles"`
	Accesses          int64   `json:"accesses"`
	Hits              int64   `json:"hits"`
	Misses            int64   `json:"misses"`
	HitRate           float64 `json:"hit_rate"`
	MissRate          float64 `json:"miss_rate"`
	Evictions         int64   `json:"evictions"`
	Writebacks        int64   `json:"writebacks"`
	BackInvalidations int64   `json:"back_invalidations"`
}

// LatencySummary describes a distribution of cycle counts.
type LatencySummary struct {
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P99  float64 `json:"p99"`
	Max  int64   `json:"max"`
}

// Metrics is the stable statistics snapshot of one replay. It is what
// reporting and recording consume; nothing in it refers back to live state.
type Metrics struct {
	WritePolicy      WritePolicy  `json:"write_policy"`
	OutstandingLimit int          `json:"outstanding_access_limit"`
	MemoryLatency    int64        `json:"memory_latency_cycles"`
	Layers           []LayerStats `json:"layers"`

	TotalAccesses  int   `json:"total_accesses"`
	Reads          int   `json:"reads"`
	Writes         int   `json:"writes"`
	StalledCount   int   `json:"stalled_accesses"`
	SimEndedTime   int64 `json:"sim_ended_time"` // latest finish time
	TotalExecution int64 `json:"total_execution_cycles"`

	Execution LatencySummary `json:"execution"`
	Stall     LatencySummary `json:"stall"`

	TerminalCounts map[Terminal]int `json:"terminal_counts"`
}

// NewMetrics returns an empty snapshot.
func NewMetrics() *Metrics {
	return &Metrics{TerminalCounts: make(map[Terminal]int)}
}

// CollectMetrics snapshots h and the accesses it has served.
func CollectMetrics(h *Hierarchy, accesses []*AccessRecord) *Metrics {
	m := NewMetrics()
	m.OutstandingLimit = h.OutstandingLimit()
	m.MemoryLatency = h.MemoryLatency()
	m.Layers = h.Stats()
	if first := h.Layer(0); first != nil {
		m.WritePolicy = first.Policy
	}

	execs := make([]int64, 0, len(accesses))
	stalls := make([]int64, 0, len(accesses))
	for _, a := range accesses {
		if a.Terminal == TerminalNone {
			// not replayed yet
			continue
		}
		m.TotalAccesses++
		if a.Mode.IsWrite() {
			m.Writes++
		} else {
			m.Reads++
		}
		if a.StallTime() > 0 {
			m.StalledCount++
		}
		m.TerminalCounts[a.Terminal]++
		m.TotalExecution += a.ExecutionTime
		m.SimEndedTime = max(m.SimEndedTime, a.FinishTime())
		execs = append(execs, a.ExecutionTime)
		stalls = append(stalls, a.StallTime())
	}
	m.Execution = summarize(execs)
	m.Stall = summarize(stalls)
	return m
}

func summarize(data []int64) LatencySummary {
	if len(data) == 0 {
		return LatencySummary{}
	}
	sorted := slices.Clone(data)
	slices.Sort(sorted)
	return LatencySummary{
		Mean: CalculateMean(sorted),
		P50:  CalculatePercentile(sorted, 50),
		P90:  CalculatePercentile(sorted, 90),
		P99:  CalculatePercentile(sorted, 99),
		Max:  sorted[len(sorted)-1],
	}
}

// HitRate returns the hit rate of layer i, or 0 when out of range.
func (m *Metrics) HitRate(i int) float64 {
	if i < 0 || i >= len(m.Layers) {
		return 0.0
	}
	return m.Layers[i].HitRate
}

// SaveResults writes the snapshot as indented JSON to path.
func (m *Metrics) SaveResults(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	logrus.Infof("Metrics written to %s", path)
	return nil
}
