package sim

import (
	"testing"

	"github.com/graphrat-sim/graphrat-sim/sim/internal/testutil"
)

// buildGraphFromEdges builds a graph with unit ILFs and no zone regions.
func buildGraphFromEdges(t *testing.T, nnode int, edges [][2]int) *Graph {
	t.Helper()
	nodes := make([]NodeRecord, nnode)
	for i := range nodes {
		nodes[i] = NodeRecord{ILF: 1.0, Line: i + 2}
	}
	recs := make([]EdgeRecord, len(edges))
	for i, e := range edges {
		recs[i] = EdgeRecord{Head: e[0], Tail: e[1], Line: nnode + i + 2}
	}
	g, err := BuildGraph(GraphHeader{NNode: nnode, NEdge: len(edges)}, nodes, recs, nil, 0)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	return g
}

// buildGridGraph builds a k×k lattice tiled by zx·zy file regions and
// partitioned into nzone zones.
func buildGridGraph(t *testing.T, k, zx, zy, nzone int) *Graph {
	t.Helper()
	edges := testutil.GridEdges(k)
	nodes := make([]NodeRecord, k*k)
	for i := range nodes {
		nodes[i] = NodeRecord{ILF: 1.0 + float64(i%3)*0.5}
	}
	recs := make([]EdgeRecord, len(edges))
	for i, e := range edges {
		recs[i] = EdgeRecord{Head: e[0], Tail: e[1]}
	}
	var regions []ZoneRegion
	for _, r := range testutil.GridRegions(k, zx, zy) {
		regions = append(regions, ZoneRegion{X: r[0], Y: r[1], W: r[2], H: r[3]})
	}
	g, err := BuildGraph(GraphHeader{NNode: k * k, NEdge: len(edges), FNZone: len(regions)}, nodes, recs, regions, nzone)
	if err != nil {
		t.Fatalf("BuildGraph(grid %d): %v", k, err)
	}
	return g
}

// newTestPopulation places rats with testutil.ClusteredRats.
func newTestPopulation(t *testing.T, g *Graph, nrat int, seed uint64) *Population {
	t.Helper()
	p, err := NewPopulation(g, nrat, NewSimulationKey(seed), testutil.ClusteredRats(g.NNode, nrat), DefaultConfig())
	if err != nil {
		t.Fatalf("NewPopulation: %v", err)
	}
	return p
}
