package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/graphrat-sim/graphrat-sim/sim"
	"github.com/graphrat-sim/graphrat-sim/sim/cluster"
	"github.com/graphrat-sim/graphrat-sim/sim/exchange"
	"github.com/graphrat-sim/graphrat-sim/sim/input"
	"github.com/graphrat-sim/graphrat-sim/sim/trace"
)

// runOptions is the resolved configuration of one simulation.
type runOptions struct {
	GraphFile       string
	RatFile         string
	Steps           int
	Seed            uint64
	Quiet           bool
	DisplayInterval int
	Mode            sim.UpdateMode
	Zones           int
	Config          sim.Config
	TraceLevel      trace.TraceLevel
}

// outcome summarizes a finished run for the final log lines.
type outcome struct {
	Steps     int
	NRat      int
	Elapsed   time.Duration
	Count     []int
	Refreshes int64
	Summary   *trace.TraceSummary
}

// resolveOptions merges the run bundle named by --config with the flags.
// A bundle value wins unless the matching flag was given explicitly.
func resolveOptions(cmd *cobra.Command) (runOptions, error) {
	opts := runOptions{
		GraphFile:       graphFile,
		RatFile:         ratFile,
		Steps:           steps,
		Seed:            seed,
		Quiet:           quiet,
		DisplayInterval: displayInterval,
		Zones:           zones,
		Config:          sim.DefaultConfig(),
		TraceLevel:      trace.TraceLevel(traceLevel),
	}
	mode := updateMode

	if configFile != "" {
		bundle, err := sim.LoadRunBundle(configFile)
		if err != nil {
			return opts, err
		}
		if err := bundle.Validate(); err != nil {
			return opts, err
		}
		opts.Config = bundle.Apply(opts.Config)
		changed := cmd.Flags().Changed
		if bundle.Steps != nil && !changed("steps") {
			opts.Steps = *bundle.Steps
		}
		if bundle.Seed != nil && !changed("seed") {
			opts.Seed = *bundle.Seed
		}
		if bundle.Mode != "" && !changed("update") {
			mode = bundle.Mode
		}
		if bundle.DisplayInterval != nil && !changed("interval") {
			opts.DisplayInterval = *bundle.DisplayInterval
		}
		if bundle.Quiet != nil && !changed("quiet") {
			opts.Quiet = *bundle.Quiet
		}
		if bundle.Zones != nil && !changed("zones") {
			opts.Zones = *bundle.Zones
		}
	}

	if opts.GraphFile == "" {
		return opts, fmt.Errorf("graph file not provided (-g)")
	}
	if opts.RatFile == "" {
		return opts, fmt.Errorf("rat file not provided (-r)")
	}
	if opts.Steps < 0 {
		return opts, fmt.Errorf("--steps must be non-negative, got %d", opts.Steps)
	}
	if opts.DisplayInterval < 0 {
		return opts, fmt.Errorf("--interval must be non-negative, got %d", opts.DisplayInterval)
	}
	if opts.Zones < 1 {
		return opts, fmt.Errorf("--zones must be at least 1, got %d", opts.Zones)
	}
	if !trace.IsValidTraceLevel(traceLevel) {
		return opts, fmt.Errorf("unknown trace level %q", traceLevel)
	}
	m, err := sim.ParseUpdateMode(mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = m
	return opts, nil
}

func (o runOptions) deployment() cluster.DeploymentConfig {
	return cluster.DeploymentConfig{
		Seed:            o.Seed,
		Steps:           o.Steps,
		Mode:            o.Mode,
		DisplayInterval: o.DisplayInterval,
		Config:          o.Config,
	}
}

// loadInputs reads the graph, partitioned for o.Zones when there is more
// than one, and the initial rat positions.
func loadInputs(o runOptions) (*sim.Graph, []int, error) {
	nzone := o.Zones
	if nzone == 1 {
		nzone = 0
	}
	g, err := input.LoadGraphFile(o.GraphFile, nzone)
	if err != nil {
		return nil, nil, err
	}
	positions, err := input.LoadRatFile(o.RatFile, g.NNode)
	if err != nil {
		return nil, nil, err
	}
	logrus.Debugf("loaded %d nodes, %d edges, %d rats", g.NNode, g.NEdge, len(positions))
	return g, positions, nil
}

// displaySink prints display records and keeps the occupancy trace.
type displaySink struct {
	w          *trace.Writer
	st         *trace.SimulationTrace
	showCounts bool
}

func newDisplaySink(w io.Writer, o runOptions) *displaySink {
	return &displaySink{
		w:          trace.NewWriter(w),
		st:         trace.NewSimulationTrace(trace.TraceConfig{Level: o.TraceLevel}),
		showCounts: !o.Quiet,
	}
}

func (d *displaySink) record(step int, counts []int) {
	d.w.Step(counts, d.showCounts)
	d.st.RecordStep(step, counts)
}

// hook returns the display function for o, or nil when display is off.
func (d *displaySink) hook(o runOptions) sim.DisplayFunc {
	if o.DisplayInterval <= 0 {
		return nil
	}
	return d.record
}

// finish terminates the display protocol and builds the outcome.
func (d *displaySink) finish(o runOptions, nrat int, elapsed time.Duration, count []int, refreshes int64) (*outcome, error) {
	d.w.Done()
	if err := d.w.Err(); err != nil {
		return nil, fmt.Errorf("writing display: %w", err)
	}
	return &outcome{
		Steps:     o.Steps,
		NRat:      nrat,
		Elapsed:   elapsed,
		Count:     count,
		Refreshes: refreshes,
		Summary:   trace.Summarize(d.st),
	}, nil
}

// runSimulation runs o in this process: the single-process engine for one
// zone, otherwise one goroutine per zone over a local mesh. Display records
// are written to stdout.
func runSimulation(ctx context.Context, o runOptions, stdout io.Writer) (*outcome, error) {
	g, positions, err := loadInputs(o)
	if err != nil {
		return nil, err
	}
	sink := newDisplaySink(stdout, o)
	start := time.Now()

	if o.Zones <= 1 {
		p, err := sim.NewPopulation(g, len(positions), sim.NewSimulationKey(o.Seed), positions, o.Config)
		if err != nil {
			return nil, err
		}
		e := sim.NewEngine(p, o.Mode, o.Config)
		e.DisplayInterval = o.DisplayInterval
		e.Display = sink.hook(o)
		if err := e.Run(o.Steps); err != nil {
			return nil, err
		}
		return sink.finish(o, p.NRat, time.Since(start), p.Count, e.Refreshes())
	}

	c := cluster.NewClusterSimulator(o.deployment(), g, positions)
	c.SetDisplay(sink.hook(o))
	if err := c.Run(ctx); err != nil {
		return nil, err
	}
	res := c.Result()
	return sink.finish(o, len(positions), time.Since(start), res.Count, res.Refreshes)
}

// runCoordinator serves zone 0 on addr, waits for o.Zones-1 workers and
// runs the simulation with them.
func runCoordinator(ctx context.Context, o runOptions, addr string, stdout io.Writer) (*outcome, error) {
	g, positions, err := loadInputs(o)
	if err != nil {
		return nil, err
	}
	ep, err := exchange.ListenHub(ctx, addr, o.Zones)
	if err != nil {
		return nil, err
	}
	defer ep.Close()

	sink := newDisplaySink(stdout, o)
	setup := o.deployment().Setup(positions, o.DisplayInterval > 0)
	start := time.Now()
	res, err := cluster.RunCoordinator(ctx, ep, g, setup, sink.hook(o))
	if err != nil {
		return nil, err
	}
	return sink.finish(o, len(positions), time.Since(start), res.Count, res.Refreshes)
}

// runWorker joins the coordinator at url and serves zone until the run ends.
func runWorker(ctx context.Context, url string, zone int) error {
	ep, err := exchange.Dial(ctx, url, zone)
	if err != nil {
		return err
	}
	defer ep.Close()
	stats, err := cluster.RunWorker(ctx, ep)
	if err != nil {
		return err
	}
	logrus.Infof("zone %d: %d moves, %d handoffs, %d refreshes, %d rounds", zone, stats.Moves, stats.Handoffs, stats.Refreshes, stats.Rounds)
	return nil
}

func reportOutcome(out *outcome) {
	logrus.Infof("%d steps, %d rats, %.3f seconds", out.Steps, out.NRat, out.Elapsed.Seconds())
	logrus.Debugf("%d weight refreshes", out.Refreshes)
	if s := out.Summary; s.Records > 0 {
		logrus.Infof("occupancy stddev %.3f -> %.3f over steps %d..%d; max %d (peak %d), min %d",
			s.InitialStdDev, s.FinalStdDev, s.FirstStep, s.LastStep, s.FinalMax, s.PeakMax, s.FinalMin)
	}
}
