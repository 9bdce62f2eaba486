package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Population is the state of every rat: position, private stream and the
// derived per-node occupancy counters.
type Population struct {
	Graph *Graph
	NRat  int
	Key   SimulationKey

	Position []int       // node id for each rat. Length = NRat
	Streams  []RatStream // per-rat RNG stream. Length = NRat
	Count    []int       // number of rats at each node. Length = NNode

	LoadFactor float64 // NRat / NNode
	BatchSize  int     // max(⌊BatchFraction·NRat⌋, ⌊√NRat⌋)
}

// NewPopulation places nrat rats at the given initial positions and seeds each
// rat's stream from (key, rat index).
func NewPopulation(g *Graph, nrat int, key SimulationKey, positions []int, cfg Config) (*Population, error) {
	cfg = cfg.withDefaults()
	if nrat < 0 || nrat > MaxElements {
		return nil, fmt.Errorf("%w: %d rats", ErrAllocation, nrat)
	}
	if len(positions) != nrat {
		return nil, inputErrorf(0, "expected %d rat positions, got %d", nrat, len(positions))
	}
	p := &Population{
		Graph:      g,
		NRat:       nrat,
		Key:        key,
		Position:   make([]int, nrat),
		Streams:    make([]RatStream, nrat),
		Count:      make([]int, g.NNode),
		LoadFactor: float64(nrat) / float64(g.NNode),
		BatchSize:  ComputeBatchSize(nrat, cfg.BatchFraction),
	}
	for r, n := range positions {
		if !g.ValidNode(n) {
			return nil, inputErrorf(0, "rat %d: invalid node number %d", r, n)
		}
		p.Position[r] = n
		p.Count[n]++
		p.Streams[r] = SeedStream(key, r)
	}
	logrus.Debugf("Loaded %d rats, load factor = %f, batch size = %d", nrat, p.LoadFactor, p.BatchSize)
	return p, nil
}

// ComputeBatchSize returns max(⌊fraction·nrat⌋, ⌊√nrat⌋), and at least 1 when
// there are rats to move.
func ComputeBatchSize(nrat int, fraction float64) int {
	rpct := int(fraction * float64(nrat))
	sroot := int(math.Sqrt(float64(nrat)))
	b := max(rpct, sroot)
	if nrat > 0 && b < 1 {
		b = 1
	}
	return min(b, max(nrat, 1))
}

// TotalCount returns Σ Count; equal to NRat at every observable point.
func (p *Population) TotalCount() int {
	total := 0
	for _, c := range p.Count {
		total += c
	}
	return total
}

// move relocates rat r to node next, keeping Count consistent.
func (p *Population) move(r, next int) {
	cur := p.Position[r]
	if cur == next {
		return
	}
	p.Count[cur]--
	p.Count[next]++
	p.Position[r] = next
}
