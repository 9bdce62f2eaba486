package cluster

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/graphrat-sim/graphrat-sim/sim"
	"github.com/graphrat-sim/graphrat-sim/sim/input"
	"github.com/graphrat-sim/graphrat-sim/sim/internal/testutil"
)

// gridGraph loads a k×k grid tiled by 2×2 file regions, partitioned into nzone zones.
func gridGraph(t *testing.T, k, nzone int) *sim.Graph {
	t.Helper()
	g, err := input.ReadGraph(strings.NewReader(testutil.GridGraphFile(k, 2, 2)), nzone)
	if err != nil {
		t.Fatalf("ReadGraph(grid %d, %d zones): %v", k, nzone, err)
	}
	return g
}

// displayLog copies every display record.
type displayLog struct {
	steps  []int
	counts [][]int
}

func (d *displayLog) record(step int, counts []int) {
	d.steps = append(d.steps, step)
	d.counts = append(d.counts, append([]int(nil), counts...))
}

// runEngine runs the single-process engine on the same inputs as cfg.
func runEngine(t *testing.T, g *sim.Graph, positions []int, cfg DeploymentConfig, log *displayLog) (*sim.Population, *sim.Engine) {
	t.Helper()
	p, err := sim.NewPopulation(g, len(positions), sim.NewSimulationKey(cfg.Seed), positions, cfg.Config)
	if err != nil {
		t.Fatalf("NewPopulation: %v", err)
	}
	e := sim.NewEngine(p, cfg.Mode, cfg.Config)
	e.DisplayInterval = cfg.DisplayInterval
	if log != nil {
		e.Display = log.record
	}
	if err := e.Run(cfg.Steps); err != nil {
		t.Fatalf("Engine.Run: %v", err)
	}
	return p, e
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
