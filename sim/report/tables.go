// Package report renders replay results for people: hierarchy snapshots,
// per-access tables and summaries, plus CSV files for plotting.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/inference-sim/cachesim/sim"
)

// CacheView selects how much of each layer's contents is shown.
type CacheView int

const (
	ViewStatsOnly CacheView = iota // counters only
	ViewDirtySets                  // sets holding at least one dirty block
	ViewValidSets                  // sets holding at least one valid block
	ViewAllSets                    // every set, empty ones included
)

// ParseCacheView validates a --cache-view value.
func ParseCacheView(v int) (CacheView, error) {
	if v < int(ViewStatsOnly) || v > int(ViewAllSets) {
		return 0, fmt.Errorf("cache view %d must be 0, 1, 2 or 3", v)
	}
	return CacheView(v), nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.Debug)
}

// PrintHierarchy writes a snapshot of every layer, top to bottom, ending
// with main memory.
func PrintHierarchy(w io.Writer, h *sim.Hierarchy, view CacheView) error {
	if _, err := fmt.Fprintln(w, "<<<<<<<<<<< Hierarchy Snapshot >>>>>>>>>>>"); err != nil {
		return err
	}
	for _, l := range h.Layers() {
		if err := PrintLayer(w, l, view); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "        |\n        v"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, " ============ MAIN MEMORY (%d cycles) ============\n", h.MemoryLatency())
	return err
}

// PrintLayer writes one layer's counters and, depending on view, its sets.
func PrintLayer(w io.Writer, l *sim.Layer, view CacheView) error {
	s := l.Stats()
	tw := newTable(w)
	fmt.Fprintf(tw, "%s\tsize %dB\tways %d\tsets %d\tlatency %d\n", s.Name, s.SizeBytes, s.Ways, s.NumSets, s.LatencyCycles)
	fmt.Fprintf(tw, "accesses %d\thits %d\tmisses %d\thit rate %.4f\tmiss rate %.4f\n",
		s.Accesses, s.Hits, s.Misses, s.HitRate, s.MissRate)
	fmt.Fprintf(tw, "evictions %d\twritebacks %d\tback-invalidations %d\t\t\n", s.Evictions, s.Writebacks, s.BackInvalidations)
	if err := tw.Flush(); err != nil {
		return err
	}
	if view == ViewStatsOnly {
		return nil
	}

	tw = newTable(w)
	fmt.Fprintln(tw, "set\tway\ttag\tline\tdirty")
	for i := 0; i < l.NumSets; i++ {
		blocks := l.SetEntries(i, view == ViewDirtySets)
		if len(blocks) == 0 {
			if view == ViewAllSets {
				fmt.Fprintf(tw, "%d\t-\t-\t-\t-\n", i)
			}
			continue
		}
		for way, b := range blocks {
			fmt.Fprintf(tw, "%d\t%d\t%#x\t%#x\t%v\n", i, way, b.Tag, b.Line, b.Dirty)
		}
	}
	return tw.Flush()
}

// PrintAccesses writes one row per access with its final timing.
func PrintAccesses(w io.Writer, accesses []*sim.AccessRecord) error {
	if _, err := fmt.Fprintln(w, "--- Memory Access Summary ---"); err != nil {
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "seq\tmode\taddress\tarrival\tserve\tfinish\texecution\tterminal")
	for _, a := range accesses {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			a.Seq, a.Mode, a.Address, a.ArrivalTime, a.ServeTime, a.FinishTime(), a.ExecutionTime, a.Terminal)
	}
	return tw.Flush()
}

// PrintMetrics writes the run summary.
func PrintMetrics(w io.Writer, m *sim.Metrics) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "=== Simulation Metrics ===\t")
	fmt.Fprintf(tw, "Write Policy\t%s\n", m.WritePolicy)
	fmt.Fprintf(tw, "Outstanding Limit\t%d\n", m.OutstandingLimit)
	fmt.Fprintf(tw, "Accesses\t%d (%d reads, %d writes)\n", m.TotalAccesses, m.Reads, m.Writes)
	fmt.Fprintf(tw, "Stalled Accesses\t%d\n", m.StalledCount)
	fmt.Fprintf(tw, "Last Finish Time\t%d cycles\n", m.SimEndedTime)
	fmt.Fprintf(tw, "Execution (mean/p50/p90/p99/max)\t%.2f / %.2f / %.2f / %.2f / %d\n",
		m.Execution.Mean, m.Execution.P50, m.Execution.P90, m.Execution.P99, m.Execution.Max)
	fmt.Fprintf(tw, "Stall (mean/p50/p90/p99/max)\t%.2f / %.2f / %.2f / %.2f / %d\n",
		m.Stall.Mean, m.Stall.P50, m.Stall.P90, m.Stall.P99, m.Stall.Max)
	for _, l := range m.Layers {
		fmt.Fprintf(tw, "%s hit rate\t%.4f (%d/%d)\n", l.Name, l.HitRate, l.Hits, l.Accesses)
	}
	return tw.Flush()
}
