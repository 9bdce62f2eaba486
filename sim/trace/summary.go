package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	Records       int
	FirstStep     int
	LastStep      int
	InitialStdDev float64
	FinalStdDev   float64
	PeakMax       int // highest single-node occupancy seen in any record
	FinalMax      int
	FinalMin      int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil || len(st.Steps) == 0 {
		return summary
	}

	first, last := st.Steps[0], st.Steps[len(st.Steps)-1]
	summary.Records = len(st.Steps)
	summary.FirstStep = first.Step
	summary.LastStep = last.Step
	summary.InitialStdDev = first.StdDev
	summary.FinalStdDev = last.StdDev
	summary.FinalMax = last.Max
	summary.FinalMin = last.Min
	for _, rec := range st.Steps {
		summary.PeakMax = max(summary.PeakMax, rec.Max)
	}
	return summary
}
