package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrat-sim/graphrat-sim/sim"
	"github.com/graphrat-sim/graphrat-sim/sim/trace"
)

// squareGraph is a 2x2 grid with one zone region per node.
const squareGraph = `# 2x2 grid
4 8 4
n 1
n 1
n 1
n 1
e 0 1
e 0 2
e 1 0
e 1 3
e 2 0
e 2 3
e 3 1
e 3 2
z 0 0 1 1
z 1 0 1 1
z 0 1 1 1
z 1 1 1 1
`

const squareRats = "4 6\n0\n0\n0\n1\n1\n0\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// parseRunFlags registers the run flags on a fresh command and parses args,
// resetting the package-level flag variables to their defaults first.
func parseRunFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "run"}
	addRunFlags(c)
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func squareOptions(t *testing.T, args ...string) runOptions {
	t.Helper()
	g := writeFile(t, "square.graph", squareGraph)
	r := writeFile(t, "square.rats", squareRats)
	c := parseRunFlags(t, append([]string{"-g", g, "-r", r}, args...)...)
	opts, err := resolveOptions(c)
	require.NoError(t, err)
	return opts
}

func TestResolveOptions_Defaults(t *testing.T) {
	opts := squareOptions(t)

	assert.Equal(t, 1, opts.Steps)
	assert.Equal(t, uint64(sim.DefaultSeed), opts.Seed)
	assert.Equal(t, 1, opts.DisplayInterval)
	assert.Equal(t, sim.UpdateBatch, opts.Mode)
	assert.Equal(t, 1, opts.Zones)
	assert.False(t, opts.Quiet)
	assert.Equal(t, sim.DefaultConfig(), opts.Config)
	assert.Equal(t, trace.TraceLevelSteps, opts.TraceLevel)
}

func TestResolveOptions_HexSeed(t *testing.T) {
	opts := squareOptions(t, "-s", "0x10")
	assert.Equal(t, uint64(16), opts.Seed)
}

func TestResolveOptions_BundleValues_ExplicitFlagsWin(t *testing.T) {
	// GIVEN a run bundle setting steps, seed, mode, zones and the batch fraction
	bundle := writeFile(t, "run.yaml", "steps: 7\nseed: 5\nmode: r\nzones: 2\nbatch_fraction: 0.5\n")

	// WHEN --seed is also given explicitly
	opts := squareOptions(t, "--config", bundle, "-s", "9")

	// THEN the flag wins for seed and the bundle supplies the rest
	assert.Equal(t, uint64(9), opts.Seed)
	assert.Equal(t, 7, opts.Steps)
	assert.Equal(t, sim.UpdateRat, opts.Mode)
	assert.Equal(t, 2, opts.Zones)
	assert.Equal(t, 0.5, opts.Config.BatchFraction)
	assert.Equal(t, sim.DefaultBaseILF, opts.Config.BaseILF)
}

func TestResolveOptions_Errors(t *testing.T) {
	g := writeFile(t, "g", squareGraph)
	r := writeFile(t, "r", squareRats)
	tests := []struct {
		name string
		args []string
	}{
		{"missing graph", []string{"-r", r}},
		{"missing rats", []string{"-g", g}},
		{"negative steps", []string{"-g", g, "-r", r, "-n", "-1"}},
		{"negative interval", []string{"-g", g, "-r", r, "-i", "-2"}},
		{"zero zones", []string{"-g", g, "-r", r, "--zones", "0"}},
		{"unknown mode", []string{"-g", g, "-r", r, "-u", "x"}},
		{"unknown trace level", []string{"-g", g, "-r", r, "--trace-level", "all"}},
		{"missing bundle", []string{"-g", g, "-r", r, "--config", filepath.Join(t.TempDir(), "nope.yaml")}},
		{"invalid bundle", []string{"-g", g, "-r", r, "--config", writeFile(t, "bad.yaml", "mode: q\n")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveOptions(parseRunFlags(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestRunSimulation_DisplayProtocol(t *testing.T) {
	// GIVEN two steps displayed every step
	opts := squareOptions(t, "-n", "2")
	var stdout bytes.Buffer

	// WHEN the simulation runs
	out, err := runSimulation(testContext(t), opts, &stdout)
	require.NoError(t, err)

	// THEN three records of four counts each are printed, then DONE
	text := stdout.String()
	assert.Equal(t, 3, strings.Count(text, "STEP 4 6\n"))
	assert.Equal(t, 3, strings.Count(text, "END\n"))
	assert.True(t, strings.HasSuffix(text, "END\nDONE\n"))
	assert.True(t, strings.HasPrefix(text, "STEP 4 6\n4\n2\n0\n0\nEND\n"), "initial occupancy first")
	assert.Equal(t, 2, out.Steps)
	assert.Equal(t, 6, out.NRat)
	assert.Equal(t, 3, out.Summary.Records)
	assert.Equal(t, 6, sum(out.Count))
}

func TestRunSimulation_Quiet_OmitsCounts(t *testing.T) {
	opts := squareOptions(t, "-n", "2", "-q")
	var stdout bytes.Buffer

	_, err := runSimulation(testContext(t), opts, &stdout)
	require.NoError(t, err)

	assert.Equal(t, "STEP 4 6\nEND\nSTEP 4 6\nEND\nSTEP 4 6\nEND\nDONE\n", stdout.String())
}

func TestRunSimulation_DisplayDisabled(t *testing.T) {
	opts := squareOptions(t, "-n", "3", "-i", "0")
	var stdout bytes.Buffer

	out, err := runSimulation(testContext(t), opts, &stdout)
	require.NoError(t, err)

	assert.Equal(t, "DONE\n", stdout.String())
	assert.Zero(t, out.Summary.Records)
}

func TestRunSimulation_ZonesMatchSingleProcess(t *testing.T) {
	for _, mode := range []string{"s", "b", "r"} {
		t.Run(mode, func(t *testing.T) {
			// GIVEN the same run in one process and split across zones
			var single bytes.Buffer
			want, err := runSimulation(testContext(t), squareOptions(t, "-n", "5", "-u", mode), &single)
			require.NoError(t, err)

			for _, n := range []string{"2", "4"} {
				var zoned bytes.Buffer
				got, err := runSimulation(testContext(t), squareOptions(t, "-n", "5", "-u", mode, "--zones", n), &zoned)
				require.NoError(t, err)

				// THEN the display stream and final occupancy are identical
				assert.Equal(t, single.String(), zoned.String(), "%s zones", n)
				assert.Equal(t, want.Count, got.Count, "%s zones", n)
				assert.Equal(t, want.Refreshes, got.Refreshes, "%s zones", n)
			}
		})
	}
}

func TestRunSimulation_ZoneMismatch(t *testing.T) {
	opts := squareOptions(t, "--zones", "3")

	_, err := runSimulation(testContext(t), opts, &bytes.Buffer{})

	assert.ErrorIs(t, err, sim.ErrZoneMismatch)
}

func TestRunSimulation_RatFileForOtherGraph(t *testing.T) {
	opts := squareOptions(t)
	opts.RatFile = writeFile(t, "other.rats", "5 1\n0\n")

	_, err := runSimulation(testContext(t), opts, &bytes.Buffer{})

	assert.ErrorIs(t, err, sim.ErrMalformedInput)
}

func TestRunWorker_NoCoordinator(t *testing.T) {
	err := runWorker(testContext(t), "ws://127.0.0.1:1/zone", 1)
	assert.ErrorIs(t, err, sim.ErrCommunication)
}

func sum(counts []int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
