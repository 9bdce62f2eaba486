package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/graphrat-sim/graphrat-sim/sim"
	"github.com/graphrat-sim/graphrat-sim/sim/trace"
)

var (
	// CLI flags shared by run and coordinator
	graphFile       string // Graph description file
	ratFile         string // Initial rat positions file
	steps           int    // Number of logical steps to simulate
	seed            uint64 // Global seed; per-rat streams derive from it
	quiet           bool   // Omit per-node counts from display records
	displayInterval int    // Steps between display records
	updateMode      string // s, b or r
	zones           int    // Number of zones the graph is partitioned into
	configFile      string // Optional YAML run bundle
	logLevel        string // Log verbosity level
	metricsAddr     string // Address serving Prometheus metrics
	traceOut        string // File receiving OpenTelemetry spans
	traceLevel      string // Occupancy trace recorded for the summary

	// CLI flags for multi-process runs
	listenAddr string // coordinator: websocket listen address
	hubURL     string // worker: coordinator websocket URL
	workerZone int    // worker: zone served by this process
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "graphrat-sim",
	Short: "Zone-partitioned weighted random walk simulator",
}

// runCmd executes a whole simulation in this process
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation in one process",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		opts, err := resolveOptions(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		stop := startTelemetry()
		defer stop()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		out, err := runSimulation(ctx, opts, os.Stdout)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		reportOutcome(out)
	},
}

// coordinatorCmd runs zone 0 and waits for workers to connect
var coordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Run zone 0 of a multi-process simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		opts, err := resolveOptions(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if opts.Zones < 2 {
			logrus.Fatalf("coordinator needs --zones of at least 2, got %d", opts.Zones)
		}
		stop := startTelemetry()
		defer stop()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		out, err := runCoordinator(ctx, opts, listenAddr, os.Stdout)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		reportOutcome(out)
	},
}

// workerCmd serves one zone of a multi-process simulation
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Serve one zone of a multi-process simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if hubURL == "" {
			logrus.Fatalf("Coordinator URL not provided (--connect)")
		}
		if workerZone < 1 {
			logrus.Fatalf("--zone must be at least 1, got %d", workerZone)
		}
		stop := startTelemetry()
		defer stop()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		if err := runWorker(ctx, hubURL, workerZone); err != nil {
			logrus.Fatalf("Zone %d failed: %v", workerZone, err)
		}
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// startTelemetry starts the metrics server and span exporter named by flags
// and returns a function that stops both.
func startTelemetry() func() {
	var stops []func()
	if metricsAddr != "" {
		srv, err := startMetricsServer(metricsAddr)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		stops = append(stops, func() { _ = srv.Close() })
	}
	if traceOut != "" {
		shutdown, err := setupTracing(traceOut)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		stops = append(stops, func() {
			if err := shutdown(context.Background()); err != nil {
				logrus.Warnf("flushing spans: %v", err)
			}
		})
	}
	return func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addRunFlags registers the simulation flags on a command
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&graphFile, "graph", "g", "", "Graph file")
	cmd.Flags().StringVarP(&ratFile, "rats", "r", "", "Initial rat position file")
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of simulation steps")
	cmd.Flags().Uint64VarP(&seed, "seed", "s", sim.DefaultSeed, "Initial random seed")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Omit node counts from display records")
	cmd.Flags().IntVarP(&displayInterval, "interval", "i", 1, "Display interval in steps (0 disables display)")
	cmd.Flags().StringVarP(&updateMode, "update", "u", "b", "Update mode: s(ynchronous), b(atch), r(at)")
	cmd.Flags().IntVar(&zones, "zones", 1, "Number of zones")
	cmd.Flags().StringVar(&configFile, "config", "", "YAML run configuration; explicit flags take precedence")
	cmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelSteps), "Occupancy trace for the final summary (none, steps, counts)")
}

// addTelemetryFlags registers logging, metrics and tracing flags on a command
func addTelemetryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&traceOut, "trace-out", "", "Write OpenTelemetry spans to this file")
}

// init sets up CLI flags and subcommands
func init() {
	addRunFlags(runCmd)
	addTelemetryFlags(runCmd)

	addRunFlags(coordinatorCmd)
	addTelemetryFlags(coordinatorCmd)
	coordinatorCmd.Flags().StringVar(&listenAddr, "listen", ":7400", "Websocket listen address for workers")

	addTelemetryFlags(workerCmd)
	workerCmd.Flags().StringVar(&hubURL, "connect", "", "Coordinator URL, e.g. ws://host:7400/zone")
	workerCmd.Flags().IntVar(&workerZone, "zone", 0, "Zone served by this worker (1..zones-1)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(coordinatorCmd)
	rootCmd.AddCommand(workerCmd)
}
