// Package trace provides per-access decision tracing for hierarchy analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// LevelRecord captures what one layer did with an access.
type LevelRecord struct {
	Level     int
	Hit       bool
	Allocated bool
	Evicted   bool
	Writeback bool
}

// AccessRecord captures the full path of one access through the hierarchy.
type AccessRecord struct {
	Seq         int
	Mode        string // "r" or "w"
	Address     uint32
	ArrivalTime int64
	ServeTime   int64
	FinishTime  int64
	Execution   int64
	Terminal    string // "hit", "memory" or "write-through"
	Levels      []LevelRecord
}

// Stall is how long admission delayed the access.
func (r AccessRecord) Stall() int64 {
	return r.ServeTime - r.ArrivalTime
}

// HitLevel returns the level that hit, or -1 if none did.
func (r AccessRecord) HitLevel() int {
	for _, l := range r.Levels {
		if l.Hit {
			return l.Level
		}
	}
	return -1
}
