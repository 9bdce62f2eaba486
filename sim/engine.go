package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DisplayFunc receives the node occupancy after step steps (0 = initial state).
// counts aliases live state and is only valid for the duration of the call.
type DisplayFunc func(step int, counts []int)

// Engine runs one update discipline over a single population.
type Engine struct {
	Population *Population
	Weights    *WeightModel
	Mode       UpdateMode
	// Display is called at step 0 and every DisplayInterval steps; nil disables it.
	Display         DisplayFunc
	DisplayInterval int

	refreshes int64
}

// NewEngine wires a weight model to the population.
func NewEngine(p *Population, mode UpdateMode, cfg Config) *Engine {
	return &Engine{
		Population:      p,
		Weights:         NewWeightModel(p.Graph, p.LoadFactor, cfg),
		Mode:            mode,
		DisplayInterval: 1,
	}
}

// Refreshes returns how many weight refreshes the last Run performed.
func (e *Engine) Refreshes() int64 { return e.refreshes }

// Run advances every rat exactly count logical steps. There is no early exit.
// It returns an error only if the rat-count invariant is found broken.
func (e *Engine) Run(count int) error {
	p := e.Population
	sched := NewSchedule(e.Mode, p.NRat, count, p.BatchSize)
	e.refreshes = 0
	e.show(0)
	for {
		seg, ok := sched.Next()
		if !ok {
			break
		}
		if seg.Refresh {
			e.Weights.Refresh(p.Count)
			e.refreshes++
		}
		for m := seg.Start; m < seg.End; m++ {
			r := sched.RatFor(m)
			next := e.Weights.SelectNextNode(p.Position[r], &p.Streams[r])
			p.move(r, next)
		}
		if seg.Step > 0 {
			if total := p.TotalCount(); total != p.NRat {
				return fmt.Errorf("step %d: rat count %d does not match population %d", seg.Step, total, p.NRat)
			}
			if e.DisplayInterval > 0 && seg.Step%e.DisplayInterval == 0 {
				e.show(seg.Step)
			}
		}
	}
	logrus.Debugf("%s run: %d steps, %d rats, %d refreshes", e.Mode, count, p.NRat, e.refreshes)
	return nil
}

func (e *Engine) show(step int) {
	if e.Display != nil {
		e.Display(step, e.Population.Count)
	}
}
