package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalAccesses   int
	TerminalCounts  map[string]int // terminal state → count
	HitsByLevel     map[int]int    // level → accesses resolved there
	StalledAccesses int
	MeanStall       float64
	MaxStall        int64
	Writebacks      int
	Evictions       int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		TerminalCounts: make(map[string]int),
		HitsByLevel:    make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalAccesses = len(st.Accesses)
	totalStall := int64(0)
	for _, a := range st.Accesses {
		summary.TerminalCounts[a.Terminal]++
		if lvl := a.HitLevel(); lvl >= 0 && a.Terminal == "hit" {
			summary.HitsByLevel[lvl]++
		}
		stall := a.Stall()
		if stall > 0 {
			summary.StalledAccesses++
		}
		totalStall += stall
		if stall > summary.MaxStall {
			summary.MaxStall = stall
		}
		for _, l := range a.Levels {
			if l.Evicted {
				summary.Evictions++
			}
			if l.Writeback {
				summary.Writebacks++
			}
		}
	}
	if summary.TotalAccesses > 0 {
		summary.MeanStall = float64(totalStall) / float64(summary.TotalAccesses)
	}

	return summary
}
