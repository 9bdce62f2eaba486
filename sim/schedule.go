package sim

import (
	"fmt"
	"strings"
)

// UpdateMode selects the update discipline for a whole run.
type UpdateMode int

const (
	// UpdateSynchronous refreshes weights before every step; every rat moves once per refresh.
	UpdateSynchronous UpdateMode = iota
	// UpdateBatch refreshes weights every BatchSize moves, cycling through the population.
	UpdateBatch
	// UpdateRat iterates rat-major: each rat takes all of its steps before the next rat.
	UpdateRat
)

// ValidUpdateModes is the set of recognized update mode names.
// Shared by ParseUpdateMode and RunBundle.Validate.
var ValidUpdateModes = map[string]UpdateMode{
	"s": UpdateSynchronous, "synchronous": UpdateSynchronous,
	"b": UpdateBatch, "batch": UpdateBatch,
	"r": UpdateRat, "rat": UpdateRat,
}

// ParseUpdateMode accepts the single-letter flags (s, b, r) or full names.
func ParseUpdateMode(s string) (UpdateMode, error) {
	if m, ok := ValidUpdateModes[strings.ToLower(s)]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("unknown update mode %q", s)
}

func (m UpdateMode) String() string {
	switch m {
	case UpdateSynchronous:
		return "synchronous"
	case UpdateBatch:
		return "batch"
	case UpdateRat:
		return "rat"
	}
	return fmt.Sprintf("UpdateMode(%d)", int(m))
}

// Segment is a run of consecutive moves [Start, End) read against one weight
// snapshot. Refresh is set when the snapshot must be rebuilt before the
// segment. Step is the number of logical steps completed at End, or 0 when
// End is not a step boundary.
type Segment struct {
	Start, End int64
	Refresh    bool
	Step       int
}

// Schedule cuts the count·nrat moves of a run into segments at refresh points
// and logical step boundaries. Every zone walks the same schedule, so the
// collective exchanges line up.
type Schedule struct {
	Mode            UpdateMode
	NRat            int
	Count           int
	RefreshInterval int64

	next        int64
	lastRefresh int64
}

// NewSchedule returns the schedule for count steps of nrat rats.
func NewSchedule(mode UpdateMode, nrat, count, batchSize int) *Schedule {
	interval := int64(batchSize)
	if mode == UpdateSynchronous || interval <= 0 {
		interval = int64(nrat)
	}
	return &Schedule{
		Mode:            mode,
		NRat:            nrat,
		Count:           count,
		RefreshInterval: interval,
		lastRefresh:     -1,
	}
}

// TotalMoves is count·nrat.
func (s *Schedule) TotalMoves() int64 {
	return int64(s.Count) * int64(s.NRat)
}

// Refreshes returns ⌈count·nrat / RefreshInterval⌉.
func (s *Schedule) Refreshes() int64 {
	if s.RefreshInterval == 0 {
		return 0
	}
	return (s.TotalMoves() + s.RefreshInterval - 1) / s.RefreshInterval
}

// RatFor returns the rat making move m.
func (s *Schedule) RatFor(m int64) int {
	if s.Mode == UpdateRat {
		return int(m / int64(s.Count))
	}
	return int(m % int64(s.NRat))
}

// Next returns the next segment, or false once every move has been scheduled.
func (s *Schedule) Next() (Segment, bool) {
	total := s.TotalMoves()
	if s.next >= total {
		return Segment{}, false
	}
	start := s.next
	seg := Segment{Start: start}
	block := start / s.RefreshInterval
	if block != s.lastRefresh {
		seg.Refresh = true
		s.lastRefresh = block
	}
	end := min((block+1)*s.RefreshInterval, total)
	nrat := int64(s.NRat)
	if stepEnd := (start/nrat + 1) * nrat; stepEnd <= end {
		end = stepEnd
		seg.Step = int(stepEnd / nrat)
	}
	seg.End = end
	s.next = end
	return seg, true
}

// RatMoves calls fn once for every rat that moves in seg, in increasing rat
// order, with the number of moves it makes there.
func (s *Schedule) RatMoves(seg Segment, fn func(rat int, moves int64)) {
	if seg.End <= seg.Start {
		return
	}
	if s.Mode == UpdateRat {
		c := int64(s.Count)
		for r := seg.Start / c; r <= (seg.End-1)/c; r++ {
			lo, hi := max(seg.Start, r*c), min(seg.End, (r+1)*c)
			fn(int(r), hi-lo)
		}
		return
	}
	// segments never cross a step boundary, so the rats form one ascending run
	first := s.RatFor(seg.Start)
	for i := int64(0); i < seg.End-seg.Start; i++ {
		fn(first+int(i), 1)
	}
}
