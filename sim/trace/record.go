// Package trace records and prints the per-step occupancy of a run.
// This package has no dependencies on sim/ or sim/cluster/; it works on plain
// count vectors.
package trace

import "math"

// StepRecord captures the node occupancy after one displayed step.
type StepRecord struct {
	Step   int
	NRat   int
	Max    int     // most rats on any node
	Min    int     // fewest rats on any node
	StdDev float64 // population standard deviation of the per-node count
	Counts []int   // per-node counts; nil unless the trace level keeps them
}

// NewStepRecord computes the statistics of counts. Counts is left nil.
func NewStepRecord(step int, counts []int) StepRecord {
	rec := StepRecord{Step: step}
	if len(counts) == 0 {
		return rec
	}
	rec.Max, rec.Min = counts[0], counts[0]
	for _, c := range counts {
		rec.NRat += c
		rec.Max = max(rec.Max, c)
		rec.Min = min(rec.Min, c)
	}
	mean := float64(rec.NRat) / float64(len(counts))
	sq := 0.0
	for _, c := range counts {
		d := float64(c) - mean
		sq += d * d
	}
	rec.StdDev = math.Sqrt(sq / float64(len(counts)))
	return rec
}
