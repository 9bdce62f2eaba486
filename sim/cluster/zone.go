package cluster

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/graphrat-sim/graphrat-sim/sim"
	"github.com/graphrat-sim/graphrat-sim/sim/exchange"
)

var tracer = otel.Tracer("graphrat-sim/cluster")

// Stats summarizes one zone's share of a run.
type Stats struct {
	Moves     int64
	Handoffs  int64
	Refreshes int64
	Rounds    int64
}

// ratWork is a rat with moves left to make in the current segment.
type ratWork struct {
	rat   int
	moves int64
}

// ZoneSimulator runs the rats currently on one zone's nodes. All zones walk
// the same schedule; they meet at every refresh to trade boundary counts and
// after every segment to hand off rats that crossed into a peer's nodes.
type ZoneSimulator struct {
	ep       exchange.Endpoint
	graph    *sim.Graph
	setup    *exchange.Setup
	boundary *sim.ZoneBoundary
	pop      *sim.Population
	weights  *sim.WeightModel
	log      *logrus.Entry
	metrics  zoneMetrics

	zone        int
	owned       []bool // rats whose stream this zone may advance
	ownedCount  int64
	subscribers [][]int // subscribers[z] = local nodes whose counts zone z needs
	weightNodes []int   // local plus imported nodes, ascending

	// coordinator only
	display   sim.DisplayFunc
	zoneNodes [][]int
	global    []int

	stats Stats
}

// NewZoneSimulator prepares ep's zone for the run described by setup. It does
// not communicate.
func NewZoneSimulator(ep exchange.Endpoint, g *sim.Graph, setup *exchange.Setup) (*ZoneSimulator, error) {
	if g.NZone != ep.Zones() {
		return nil, fmt.Errorf("%w: graph has %d zones, exchange has %d", sim.ErrZoneMismatch, g.NZone, ep.Zones())
	}
	zone := ep.Zone()
	boundary, err := sim.PartitionZone(g, zone)
	if err != nil {
		return nil, err
	}
	pop, err := sim.NewPopulation(g, len(setup.Positions), sim.NewSimulationKey(setup.Seed), setup.Positions, setup.Config)
	if err != nil {
		return nil, err
	}
	z := &ZoneSimulator{
		ep:          ep,
		graph:       g,
		setup:       setup,
		boundary:    boundary,
		pop:         pop,
		weights:     sim.NewWeightModel(g, pop.LoadFactor, setup.Config),
		log:         logrus.WithFields(logrus.Fields{"zone": zone, "run": setup.RunID}),
		metrics:     newZoneMetrics(zone),
		zone:        zone,
		owned:       make([]bool, pop.NRat),
		subscribers: make([][]int, ep.Zones()),
	}
	for r, n := range pop.Position {
		if g.ZoneID[n] == zone {
			z.owned[r] = true
			z.ownedCount++
		}
	}
	z.weightNodes = append(slices.Clone(boundary.LocalNodes), boundary.ImportedNodes()...)
	slices.Sort(z.weightNodes)
	return z, nil
}

// Stats returns this zone's counters for the last run.
func (z *ZoneSimulator) Stats() Stats { return z.stats }

// Run executes every step of the run. On the coordinator it returns the
// gathered final state; on other zones the result is nil.
func (z *ZoneSimulator) Run(ctx context.Context) (result *Result, err error) {
	ctx, span := tracer.Start(ctx, "cluster.Zone.Run", trace.WithAttributes(
		attribute.Int("zone", z.zone),
		attribute.String("run.id", z.setup.RunID),
		attribute.Int("steps", z.setup.Steps),
		attribute.String("mode", z.setup.Mode.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	start := time.Now()
	z.log.Debugf("zone owns %d nodes and %d of %d rats", len(z.boundary.LocalNodes), z.ownedCount, z.pop.NRat)
	if err := z.subscribe(ctx); err != nil {
		return nil, err
	}
	if err := z.syncBoundaryState(ctx, 0); err != nil {
		return nil, err
	}

	sched := sim.NewSchedule(z.setup.Mode, z.pop.NRat, z.setup.Steps, z.pop.BatchSize)
	for {
		seg, ok := sched.Next()
		if !ok {
			break
		}
		segStart := time.Now()
		if seg.Refresh {
			if err := z.refresh(ctx); err != nil {
				return nil, err
			}
		}
		var work []ratWork
		sched.RatMoves(seg, func(rat int, moves int64) {
			if z.owned[rat] {
				work = append(work, ratWork{rat: rat, moves: moves})
			}
		})
		if err := z.runSegment(ctx, work); err != nil {
			return nil, err
		}
		if seg.Step > 0 {
			if err := z.syncBoundaryState(ctx, seg.Step); err != nil {
				return nil, err
			}
		}
		z.metrics.segment.Observe(time.Since(segStart).Seconds())
	}

	result, err = z.collect(ctx)
	if err != nil {
		return nil, err
	}
	z.log.Debugf("zone done in %s: %d moves, %d handoffs, %d rounds", time.Since(start), z.stats.Moves, z.stats.Handoffs, z.stats.Rounds)
	return result, nil
}

// subscribe tells every peer which of its nodes this zone imports, and
// records which local nodes each peer needs in return.
func (z *ZoneSimulator) subscribe(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "cluster.Zone.subscribe")
	defer span.End()

	out := make([]exchange.Message, z.ep.Zones())
	for p := range out {
		out[p].Nodes = z.boundary.ImportFrom(p)
	}
	in, err := exchange.ExchangeAll(ctx, z.ep, exchange.KindSubscribe, out)
	if err != nil {
		return err
	}
	for p, msg := range in {
		if p == z.zone {
			continue
		}
		for _, n := range msg.Nodes {
			if !z.graph.ValidNode(n) || z.graph.ZoneID[n] != z.zone {
				return fmt.Errorf("%w: zone %d subscribed to node %d not owned by zone %d", sim.ErrCommunication, p, n, z.zone)
			}
		}
		z.subscribers[p] = msg.Nodes
	}
	return nil
}

// refresh publishes subscribed counts, installs the imported counts, and
// rebuilds weights for local and imported nodes.
func (z *ZoneSimulator) refresh(ctx context.Context) error {
	count := z.pop.Count
	out := make([]exchange.Message, z.ep.Zones())
	for p, nodes := range z.subscribers {
		if p == z.zone {
			continue
		}
		values := make([]int, len(nodes))
		for i, n := range nodes {
			values[i] = count[n]
		}
		out[p].Values = values
	}
	in, err := exchange.ExchangeAll(ctx, z.ep, exchange.KindCounts, out)
	if err != nil {
		return err
	}
	for p, msg := range in {
		if p == z.zone {
			continue
		}
		nodes := z.boundary.ImportFrom(p)
		if len(msg.Values) != len(nodes) {
			return fmt.Errorf("%w: zone %d sent %d counts for %d imported nodes", sim.ErrCommunication, p, len(msg.Values), len(nodes))
		}
		for i, n := range nodes {
			count[n] = msg.Values[i]
		}
	}
	z.weights.RefreshNodes(count, z.weightNodes, z.boundary.LocalNodes)
	z.stats.Refreshes++
	z.metrics.refreshes.Inc()
	return nil
}

// runSegment moves every owned rat through its moves in the segment, handing
// rats to peers as they cross, until no rat anywhere has moves left.
func (z *ZoneSimulator) runSegment(ctx context.Context, work []ratWork) error {
	for {
		out, inFlight, err := z.advance(work)
		if err != nil {
			return err
		}
		msgs := make([]exchange.Message, z.ep.Zones())
		for p := range msgs {
			msgs[p] = exchange.Message{Rats: out[p], InFlight: inFlight}
		}
		in, err := exchange.ExchangeAll(ctx, z.ep, exchange.KindHandoff, msgs)
		if err != nil {
			return err
		}
		z.stats.Rounds++
		z.metrics.rounds.Inc()

		total := inFlight
		work = work[:0]
		for p, msg := range in {
			if p == z.zone {
				continue
			}
			total += msg.InFlight
			for _, rat := range msg.Rats {
				if err := z.install(p, rat); err != nil {
					return err
				}
				if rat.Pending > 0 {
					work = append(work, ratWork{rat: rat.ID, moves: rat.Pending})
				}
			}
		}
		if total == 0 {
			if len(work) > 0 {
				return fmt.Errorf("%w: zone %d received %d rats with pending moves but no zone reported any", sim.ErrCommunication, z.zone, len(work))
			}
			return nil
		}
		slices.SortFunc(work, func(a, b ratWork) int { return a.rat - b.rat })
	}
}

// advance makes the moves in work. A rat that lands on a peer's node stops and
// is returned in out[peer]; inFlight counts those that still have moves left.
func (z *ZoneSimulator) advance(work []ratWork) (out [][]exchange.Rat, inFlight int64, err error) {
	g, p := z.graph, z.pop
	out = make([][]exchange.Rat, z.ep.Zones())
	var moves, handoffs int64
	for _, w := range work {
		r := w.rat
		if !z.owned[r] {
			return nil, 0, fmt.Errorf("zone %d: rat %d is not owned here", z.zone, r)
		}
		for w.moves > 0 {
			cur := p.Position[r]
			next := z.weights.SelectNextNode(cur, &p.Streams[r])
			w.moves--
			moves++
			p.Position[r] = next
			if next == cur {
				continue
			}
			p.Count[cur]--
			peer := g.ZoneID[next]
			if peer == z.zone {
				p.Count[next]++
				continue
			}
			state, err := p.Streams[r].MarshalBinary()
			if err != nil {
				return nil, 0, err
			}
			z.owned[r] = false
			z.ownedCount--
			out[peer] = append(out[peer], exchange.Rat{ID: r, Node: next, Stream: state, Pending: w.moves})
			if w.moves > 0 {
				inFlight++
			}
			handoffs++
			break
		}
	}
	z.stats.Moves += moves
	z.stats.Handoffs += handoffs
	z.metrics.moves.Add(float64(moves))
	z.metrics.handoffs.Add(float64(handoffs))
	return out, inFlight, nil
}

// install takes ownership of a rat handed off by zone from.
func (z *ZoneSimulator) install(from int, rat exchange.Rat) error {
	g, p := z.graph, z.pop
	if rat.ID < 0 || rat.ID >= p.NRat || !g.ValidNode(rat.Node) || g.ZoneID[rat.Node] != z.zone {
		return fmt.Errorf("%w: zone %d handed off rat %d to node %d outside zone %d", sim.ErrCommunication, from, rat.ID, rat.Node, z.zone)
	}
	if z.owned[rat.ID] {
		return fmt.Errorf("%w: zone %d handed off rat %d already owned by zone %d", sim.ErrCommunication, from, rat.ID, z.zone)
	}
	if err := p.Streams[rat.ID].UnmarshalBinary(rat.Stream); err != nil {
		return fmt.Errorf("%w: rat %d from zone %d: %w", sim.ErrCommunication, rat.ID, from, err)
	}
	z.owned[rat.ID] = true
	z.ownedCount++
	p.Position[rat.ID] = rat.Node
	p.Count[rat.Node]++
	return nil
}

// displayStep reports whether the occupancy after step is shown.
func (z *ZoneSimulator) displayStep(step int) bool {
	if !z.setup.Display {
		return false
	}
	return step == 0 || (z.setup.DisplayInterval > 0 && step%z.setup.DisplayInterval == 0)
}

// localCounts returns the counts of this zone's nodes in LocalNodes order.
func (z *ZoneSimulator) localCounts() []int {
	values := make([]int, len(z.boundary.LocalNodes))
	for i, n := range z.boundary.LocalNodes {
		values[i] = z.pop.Count[n]
	}
	return values
}

// syncBoundaryState gathers rat totals at the coordinator after every step,
// plus the full occupancy on display steps, and checks conservation.
func (z *ZoneSimulator) syncBoundaryState(ctx context.Context, step int) error {
	show := z.displayStep(step)
	msg := exchange.Message{Kind: exchange.KindStep, Step: step, Total: z.ownedCount}
	if show {
		msg.Values = z.localCounts()
	}
	all, err := exchange.Gather(ctx, z.ep, msg)
	if err != nil || all == nil {
		return err
	}
	var total int64
	for p, m := range all {
		if m.Step != step {
			return fmt.Errorf("%w: zone %d reported step %d at step %d", sim.ErrCommunication, p, m.Step, step)
		}
		total += m.Total
	}
	if total != int64(z.pop.NRat) {
		return fmt.Errorf("step %d: rat count %d does not match population %d", step, total, z.pop.NRat)
	}
	if !show || z.display == nil {
		return nil
	}
	if err := z.merge(all); err != nil {
		return err
	}
	z.display(step, z.global)
	return nil
}

// merge assembles the global occupancy from per-zone local counts.
func (z *ZoneSimulator) merge(all []exchange.Message) error {
	if z.zoneNodes == nil {
		z.zoneNodes = make([][]int, z.ep.Zones())
		for n, zid := range z.graph.ZoneID {
			z.zoneNodes[zid] = append(z.zoneNodes[zid], n)
		}
		z.global = make([]int, z.graph.NNode)
	}
	for p, m := range all {
		nodes := z.zoneNodes[p]
		if len(m.Values) != len(nodes) {
			return fmt.Errorf("%w: zone %d sent %d counts for %d nodes", sim.ErrCommunication, p, len(m.Values), len(nodes))
		}
		for i, n := range nodes {
			z.global[n] = m.Values[i]
		}
	}
	return nil
}

// collect gathers every rat's final node at the coordinator.
func (z *ZoneSimulator) collect(ctx context.Context) (*Result, error) {
	msg := exchange.Message{Kind: exchange.KindResult, Step: z.setup.Steps, Values: z.localCounts()}
	for r, own := range z.owned {
		if own {
			msg.Rats = append(msg.Rats, exchange.Rat{ID: r, Node: z.pop.Position[r]})
		}
	}
	all, err := exchange.Gather(ctx, z.ep, msg)
	if err != nil || all == nil {
		return nil, err
	}
	if err := z.merge(all); err != nil {
		return nil, err
	}
	res := &Result{
		Position:  make([]int, z.pop.NRat),
		Count:     slices.Clone(z.global),
		Refreshes: z.stats.Refreshes,
		Rounds:    z.stats.Rounds,
	}
	seen := make([]bool, z.pop.NRat)
	for p, m := range all {
		for _, rat := range m.Rats {
			if rat.ID < 0 || rat.ID >= z.pop.NRat || seen[rat.ID] {
				return nil, fmt.Errorf("%w: zone %d reported rat %d twice or out of range", sim.ErrCommunication, p, rat.ID)
			}
			seen[rat.ID] = true
			res.Position[rat.ID] = rat.Node
		}
	}
	for r, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: rat %d was not reported by any zone", sim.ErrCommunication, r)
		}
	}
	return res, nil
}
