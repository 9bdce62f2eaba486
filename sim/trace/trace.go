package trace

// TraceLevel controls how much of each displayed step is recorded.
type TraceLevel string

const (
	// TraceLevelNone disables recording (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelSteps records occupancy statistics for every displayed step.
	TraceLevelSteps TraceLevel = "steps"
	// TraceLevelCounts additionally keeps a copy of the per-node counts.
	TraceLevelCounts TraceLevel = "counts"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelSteps:  true,
	TraceLevelCounts: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects step records during a run.
type SimulationTrace struct {
	Config TraceConfig
	Steps  []StepRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Steps:  make([]StepRecord, 0),
	}
}

// Enabled reports whether RecordStep stores anything.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level != TraceLevelNone && st.Config.Level != ""
}

// RecordStep appends the occupancy after step. counts is copied when the
// level keeps counts, so callers may pass live state.
func (st *SimulationTrace) RecordStep(step int, counts []int) {
	if !st.Enabled() {
		return
	}
	rec := NewStepRecord(step, counts)
	if st.Config.Level == TraceLevelCounts {
		rec.Counts = append([]int(nil), counts...)
	}
	st.Steps = append(st.Steps, rec)
}
