package cluster

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/graphrat-sim/graphrat-sim/sim"
	"github.com/graphrat-sim/graphrat-sim/sim/exchange"
)

// Result is the final state of a run as gathered at the coordinator.
type Result struct {
	Position  []int // node of every rat
	Count     []int // rats per node
	Refreshes int64
	Rounds    int64 // handoff rounds
}

// RunCoordinator runs zone 0 of a partitioned run: it validates the inputs,
// distributes the graph and setup to every other zone, then runs its own zone.
// display, if non-nil, receives the global occupancy on display steps.
func RunCoordinator(ctx context.Context, ep exchange.Endpoint, g *sim.Graph, setup *exchange.Setup, display sim.DisplayFunc) (*Result, error) {
	if ep.Zone() != exchange.Coordinator {
		return nil, fmt.Errorf("%w: coordinator must be zone %d, got %d", sim.ErrZoneMismatch, exchange.Coordinator, ep.Zone())
	}
	z, err := NewZoneSimulator(ep, g, setup)
	if err != nil {
		return nil, err
	}
	z.display = display
	if err := exchange.BroadcastGraph(ctx, ep, g); err != nil {
		return nil, err
	}
	if err := exchange.BroadcastSetup(ctx, ep, setup); err != nil {
		return nil, err
	}
	logrus.Infof("run %s: %d rats on %d nodes across %d zones, %s updates", setup.RunID, len(setup.Positions), g.NNode, g.NZone, setup.Mode)
	return z.Run(ctx)
}

// RunWorker runs a non-coordinator zone: it receives the graph and setup from
// the coordinator and runs until the final state has been gathered.
func RunWorker(ctx context.Context, ep exchange.Endpoint) (Stats, error) {
	g, err := exchange.ReceiveGraph(ctx, ep)
	if err != nil {
		return Stats{}, err
	}
	setup, err := exchange.ReceiveSetup(ctx, ep)
	if err != nil {
		return Stats{}, err
	}
	z, err := NewZoneSimulator(ep, g, setup)
	if err != nil {
		return Stats{}, err
	}
	if _, err := z.Run(ctx); err != nil {
		return Stats{}, err
	}
	return z.Stats(), nil
}

// ClusterSimulator runs every zone of a partitioned run as a goroutine of this
// process, connected by a local mesh.
type ClusterSimulator struct {
	config    DeploymentConfig
	graph     *sim.Graph
	positions []int
	display   sim.DisplayFunc
	hasRun    bool
	result    *Result
}

// NewClusterSimulator creates a ClusterSimulator for g, which must already be
// partitioned into the wanted number of zones.
func NewClusterSimulator(config DeploymentConfig, g *sim.Graph, positions []int) *ClusterSimulator {
	return &ClusterSimulator{config: config, graph: g, positions: positions}
}

// SetDisplay installs the display hook called with global occupancy.
func (c *ClusterSimulator) SetDisplay(fn sim.DisplayFunc) { c.display = fn }

// Run executes all zones to completion. The first zone to fail cancels the
// others and its error is returned.
// Panics if called more than once.
func (c *ClusterSimulator) Run(ctx context.Context) error {
	if c.hasRun {
		panic("ClusterSimulator.Run() called more than once")
	}
	c.hasRun = true

	setup := c.config.Setup(c.positions, c.display != nil)
	eps := exchange.NewLocalMesh(c.graph.NZone)
	defer func() {
		for _, ep := range eps {
			_ = ep.Close()
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := RunCoordinator(ctx, eps[exchange.Coordinator], c.graph, setup, c.display)
		c.result = res
		return err
	})
	for z := 1; z < len(eps); z++ {
		g.Go(func() error {
			_, err := RunWorker(ctx, eps[z])
			return err
		})
	}
	return g.Wait()
}

// Result returns the gathered final state.
// Panics if called before Run() has completed.
func (c *ClusterSimulator) Result() *Result {
	if !c.hasRun {
		panic("ClusterSimulator.Result() called before Run()")
	}
	return c.result
}
