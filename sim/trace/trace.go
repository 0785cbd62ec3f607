package trace

// TraceLevel controls the verbosity of access tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelAccesses captures the layer path of every access.
	TraceLevelAccesses TraceLevel = "accesses"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelAccesses: true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// Enabled reports whether anything is recorded.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelAccesses
}

// SimulationTrace collects access records during a replay.
type SimulationTrace struct {
	Config   TraceConfig
	Accesses []AccessRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:   config,
		Accesses: make([]AccessRecord, 0),
	}
}

// RecordAccess appends an access record.
func (st *SimulationTrace) RecordAccess(record AccessRecord) {
	st.Accesses = append(st.Accesses, record)
}
