package cluster

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/graphrat-sim/graphrat-sim/sim"
	"github.com/graphrat-sim/graphrat-sim/sim/exchange"
	"github.com/graphrat-sim/graphrat-sim/sim/internal/testutil"
)

func TestClusterSimulator_MatchesSingleProcessEngine(t *testing.T) {
	modes := []sim.UpdateMode{sim.UpdateSynchronous, sim.UpdateBatch, sim.UpdateRat}
	for _, nzone := range []int{1, 2, 4} {
		for _, mode := range modes {
			t.Run(fmt.Sprintf("%d zones/%s", nzone, mode), func(t *testing.T) {
				// GIVEN identical inputs for the engine and a partitioned run
				cfg := DeploymentConfig{RunID: "t", Seed: 618, Steps: 8, Mode: mode, DisplayInterval: 2, Config: sim.DefaultConfig()}
				positions := testutil.ClusteredRats(64, 300)
				var want, got displayLog
				p, e := runEngine(t, gridGraph(t, 8, 0), positions, cfg, &want)

				c := NewClusterSimulator(cfg, gridGraph(t, 8, nzone), positions)
				c.SetDisplay(got.record)

				// WHEN the zones run to completion
				require.NoError(t, c.Run(testContext(t)))

				// THEN final state and every display record are identical
				res := c.Result()
				assert.Equal(t, p.Position, res.Position)
				assert.Equal(t, p.Count, res.Count)
				assert.Equal(t, e.Refreshes(), res.Refreshes)
				assert.Equal(t, want.steps, got.steps)
				assert.Equal(t, want.counts, got.counts)
			})
		}
	}
}

func TestClusterSimulator_ConservesRatsAtEveryDisplay(t *testing.T) {
	cfg := DeploymentConfig{Seed: 3, Steps: 6, Mode: sim.UpdateBatch, DisplayInterval: 1, Config: sim.DefaultConfig()}
	c := NewClusterSimulator(cfg, gridGraph(t, 8, 4), testutil.ClusteredRats(64, 500))
	var log displayLog
	c.SetDisplay(log.record)

	require.NoError(t, c.Run(testContext(t)))

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, log.steps)
	for i, counts := range log.counts {
		total := 0
		for _, n := range counts {
			total += n
		}
		assert.Equal(t, 500, total, "display %d", i)
	}
}

func TestRunWorker_RatsCrossZones(t *testing.T) {
	// GIVEN rats starting on the top row of a grid split in four, so zones 2 and 3 start empty
	g := gridGraph(t, 8, 4)
	cfg := DeploymentConfig{Seed: 9, Steps: 10, Mode: sim.UpdateRat, Config: sim.DefaultConfig()}
	setup := cfg.Setup(testutil.ClusteredRats(64, 200), false)
	eps := exchange.NewLocalMesh(4)

	stats := make([]Stats, 4)
	group, ctx := errgroup.WithContext(testContext(t))
	group.Go(func() error {
		_, err := RunCoordinator(ctx, eps[0], g, setup, nil)
		return err
	})
	for z := 1; z < 4; z++ {
		group.Go(func() error {
			s, err := RunWorker(ctx, eps[z])
			stats[z] = s
			return err
		})
	}
	require.NoError(t, group.Wait())

	// THEN rats handed into the bottom zones keep moving there
	assert.Positive(t, stats[2].Moves+stats[3].Moves, "bottom zones moved rats handed to them")
	assert.Positive(t, stats[1].Handoffs+stats[2].Handoffs+stats[3].Handoffs)
}

// failingEndpoint fails every Send after the first limit calls.
type failingEndpoint struct {
	exchange.Endpoint
	limit int
	sends int
}

func (f *failingEndpoint) Send(ctx context.Context, to int, msg exchange.Message) error {
	f.sends++
	if f.sends > f.limit {
		return fmt.Errorf("%w: injected failure", sim.ErrCommunication)
	}
	return f.Endpoint.Send(ctx, to, msg)
}

func TestRun_ExchangeFailure_AbortsEveryZone(t *testing.T) {
	g := gridGraph(t, 8, 2)
	cfg := DeploymentConfig{Seed: 1, Steps: 20, Mode: sim.UpdateBatch, Config: sim.DefaultConfig()}
	setup := cfg.Setup(testutil.ClusteredRats(64, 100), false)
	eps := exchange.NewLocalMesh(2)
	worker := &failingEndpoint{Endpoint: eps[1], limit: 5}

	group, ctx := errgroup.WithContext(testContext(t))
	group.Go(func() error {
		_, err := RunCoordinator(ctx, eps[0], g, setup, nil)
		return err
	})
	group.Go(func() error {
		_, err := RunWorker(ctx, worker)
		return err
	})

	err := group.Wait()
	assert.ErrorIs(t, err, sim.ErrCommunication)
}

func TestNewZoneSimulator_ZoneCountMismatch(t *testing.T) {
	g := gridGraph(t, 8, 4)
	setup := DeploymentConfig{Seed: 1, Steps: 1}.Setup([]int{0}, false)

	_, err := NewZoneSimulator(exchange.NewLocalMesh(2)[0], g, setup)

	assert.ErrorIs(t, err, sim.ErrZoneMismatch)
}

func TestRunCoordinator_InvalidPositions_FailsBeforeBroadcast(t *testing.T) {
	g := gridGraph(t, 8, 2)
	setup := DeploymentConfig{Seed: 1, Steps: 1}.Setup([]int{0, 64}, false)
	eps := exchange.NewLocalMesh(2)

	_, err := RunCoordinator(testContext(t), eps[0], g, setup, nil)

	assert.ErrorIs(t, err, sim.ErrMalformedInput)
	_, err = eps[1].Recv(canceled(), 0)
	assert.Error(t, err, "nothing was sent to the worker")
}

func canceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestClusterSimulator_OverWebsocket(t *testing.T) {
	// GIVEN a coordinator hub and three workers connected over websockets
	ctx := testContext(t)
	hub := exchange.NewHub(4)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	group, gctx := errgroup.WithContext(ctx)
	for z := 1; z < 4; z++ {
		group.Go(func() error {
			ep, err := exchange.Dial(gctx, url, z)
			if err != nil {
				return err
			}
			defer ep.Close()
			_, err = RunWorker(gctx, ep)
			return err
		})
	}
	cfg := DeploymentConfig{Seed: 618, Steps: 5, Mode: sim.UpdateBatch, DisplayInterval: 1, Config: sim.DefaultConfig()}
	positions := testutil.ClusteredRats(64, 250)
	var res *Result
	group.Go(func() error {
		ep, err := hub.Endpoint(gctx)
		if err != nil {
			return err
		}
		defer ep.Close()
		res, err = RunCoordinator(gctx, ep, gridGraph(t, 8, 4), cfg.Setup(positions, false), nil)
		return err
	})
	require.NoError(t, group.Wait())

	// THEN the result equals the single-process engine
	p, _ := runEngine(t, gridGraph(t, 8, 0), positions, cfg, nil)
	assert.Equal(t, p.Position, res.Position)
	assert.Equal(t, p.Count, res.Count)
}

func TestClusterSimulator_RunTwice_Panics(t *testing.T) {
	c := NewClusterSimulator(DeploymentConfig{Steps: 1}, gridGraph(t, 4, 1), []int{0})
	require.NoError(t, c.Run(testContext(t)))
	assert.Panics(t, func() { _ = c.Run(testContext(t)) })
}
