// Defines the AccessRecord struct that models one memory access replayed through the hierarchy.
// Tracks arrival, admission (serve) time and accumulated execution time.

package sim

import (
	"fmt"
	"strings"
)

// AccessMode is the kind of memory operation an access performs.
type AccessMode int

const (
	ModeRead AccessMode = iota
	ModeWrite
)

// ParseAccessMode maps a trace mode token to an AccessMode.
// The mapping is fixed: "r" is a read and "w" is a write, case-insensitive.
func ParseAccessMode(token string) (AccessMode, error) {
	switch strings.ToLower(token) {
	case "r":
		return ModeRead, nil
	case "w":
		return ModeWrite, nil
	default:
		return 0, configErrorf("mode", token, `must be "r" or "w"`)
	}
}

func (m AccessMode) Valid() bool {
	return m == ModeRead || m == ModeWrite
}

func (m AccessMode) IsWrite() bool {
	return m == ModeWrite
}

// String returns the trace token for the mode.
func (m AccessMode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Terminal is the state an access ended in.
type Terminal string

const (
	TerminalNone         Terminal = ""              // not yet served
	TerminalHit          Terminal = "hit"           // resolved by a hit in some layer
	TerminalMemory       Terminal = "memory"        // missed every layer and went to main memory
	TerminalWriteThrough Terminal = "write-through" // store forwarded past the hierarchy without allocation
)

// LevelOutcome records what one layer did with an access.
type LevelOutcome struct {
	Level     int
	Hit       bool
	Allocated bool // a block was filled into the layer
	Evicted   bool // the fill displaced a valid block
	Writeback bool // a dirty line was flushed to memory
}

// AccessRecord models a single access's lifecycle in the simulation.
// It is created once per trace line and mutated by every layer it passes through.
// ServeTime starts at ArrivalTime and only ever increases.
type AccessRecord struct {
	Seq           int        // position in the trace, 0-based
	Mode          AccessMode // read or write
	Address       uint32     // byte address
	ArrivalTime   int64      // cycle the access arrives at the hierarchy
	ServeTime     int64      // cycle the hierarchy starts serving it (>= ArrivalTime)
	ExecutionTime int64      // cycles accumulated across layers and memory

	Terminal Terminal       // how the access ended
	Path     []LevelOutcome // per-layer outcomes, in traversal order
}

// NewAccessRecord returns a record ready to be replayed.
func NewAccessRecord(seq int, mode AccessMode, address uint32, arrival int64) *AccessRecord {
	return &AccessRecord{
		Seq:         seq,
		Mode:        mode,
		Address:     address,
		ArrivalTime: arrival,
		ServeTime:   arrival,
	}
}

// FinishTime is the cycle the access completes.
func (a *AccessRecord) FinishTime() int64 {
	return a.ServeTime + a.ExecutionTime
}

// StallTime is how long admission delayed the access.
func (a *AccessRecord) StallTime() int64 {
	return a.ServeTime - a.ArrivalTime
}

// AddTime charges cycles to the access.
func (a *AccessRecord) AddTime(cycles int64) {
	a.ExecutionTime += cycles
}

// DelayUntil raises ServeTime to t. Earlier times are ignored.
func (a *AccessRecord) DelayUntil(t int64) {
	if t > a.ServeTime {
		a.ServeTime = t
	}
}

// Reset restores the record to its just-parsed state.
func (a *AccessRecord) Reset() {
	a.ServeTime = a.ArrivalTime
	a.ExecutionTime = 0
	a.Terminal = TerminalNone
	a.Path = nil
}

// This method returns a human-readable string representation of an AccessRecord.
func (a AccessRecord) String() string {
	return fmt.Sprintf("Access: (Seq: %d, Mode: %s, Address: %d, Arrival: %d, Serve: %d, Finish: %d)",
		a.Seq, a.Mode, a.Address, a.ArrivalTime, a.ServeTime, a.FinishTime())
}
