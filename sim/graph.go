package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// GraphHeader is the first record of a graph description.
// FNZone is the number of rectangular zone regions the file declares (0 = none).
type GraphHeader struct {
	NNode  int
	NEdge  int
	FNZone int
}

// NodeRecord carries a node's ideal load factor. Line is the source line (0 = unknown).
type NodeRecord struct {
	ILF  float64
	Line int
}

// EdgeRecord is a directed edge head -> tail.
type EdgeRecord struct {
	Head int
	Tail int
	Line int
}

// ZoneRegion is an axis-aligned rectangle on the node grid, anchored at its
// upper left corner (X, Y) with width W and height H.
type ZoneRegion struct {
	X, Y, W, H int
	Line       int
}

// contains reports whether grid cell (x, y) lies inside the region.
func (z ZoneRegion) contains(x, y int) bool {
	return z.X <= x && x <= z.X+z.W-1 && z.Y <= y && y <= z.Y+z.H-1
}

// Graph is an immutable CSR adjacency structure with a self edge injected at
// the front of every node's neighbor slice.
//
// Neighbor has length NEdge+NNode; node n's neighbors are
// Neighbor[NeighborStart[n]:NeighborStart[n+1]], never empty.
type Graph struct {
	NNode int
	NEdge int
	NZone int

	Neighbor      []int
	NeighborStart []int
	ZoneID        []int     // zone owning each node, in [0, NZone)
	ILF           []float64 // per-node ideal load factor as read from the file
}

// Neighbors returns node n's neighbor slice, self edge first.
// The returned slice aliases the graph and must not be modified.
func (g *Graph) Neighbors(n int) []int {
	g.checkNode(n)
	return g.Neighbor[g.NeighborStart[n]:g.NeighborStart[n+1]]
}

// Degree returns the number of neighbors of n, including the self edge.
func (g *Graph) Degree(n int) int {
	g.checkNode(n)
	return g.NeighborStart[n+1] - g.NeighborStart[n]
}

// ZoneOf returns the zone owning node n.
func (g *Graph) ZoneOf(n int) int {
	g.checkNode(n)
	return g.ZoneID[n]
}

// ValidNode reports whether n is a node id of this graph.
func (g *Graph) ValidNode(n int) bool {
	return n >= 0 && n < g.NNode
}

func (g *Graph) checkNode(n int) {
	if !g.ValidNode(n) {
		panic(fmt.Sprintf("graph: node %d out of range [0, %d)", n, g.NNode))
	}
}

// GridColumns returns the width of the square grid nodes are laid out on: ⌈√nnode⌉.
func GridColumns(nnode int) int {
	if nnode <= 0 {
		return 0
	}
	c := int(math.Sqrt(float64(nnode)))
	for c*c < nnode {
		c++
	}
	for c > 1 && (c-1)*(c-1) >= nnode {
		c--
	}
	return c
}

// BuildGraph validates the records and assembles a Graph. nzone is the number of
// zones requested by the caller; 0 means no partitioning (a single zone).
// No partial graph is returned on error.
func BuildGraph(h GraphHeader, nodes []NodeRecord, edges []EdgeRecord, regions []ZoneRegion, nzone int) (*Graph, error) {
	if h.NNode <= 0 || h.NEdge < 0 || h.FNZone < 0 || nzone < 0 {
		return nil, inputErrorf(0, "invalid graph header: nnode=%d nedge=%d fnzone=%d (nzone=%d)", h.NNode, h.NEdge, h.FNZone, nzone)
	}
	if h.NNode > MaxElements || h.NEdge > MaxElements-h.NNode {
		return nil, fmt.Errorf("%w: graph with %d nodes and %d edges", ErrAllocation, h.NNode, h.NEdge)
	}
	if len(nodes) != h.NNode {
		return nil, inputErrorf(0, "expected %d node records, got %d", h.NNode, len(nodes))
	}
	if len(edges) != h.NEdge {
		return nil, inputErrorf(0, "expected %d edge records, got %d", h.NEdge, len(edges))
	}

	g := &Graph{
		NNode:         h.NNode,
		NEdge:         h.NEdge,
		Neighbor:      make([]int, h.NNode+h.NEdge),
		NeighborStart: make([]int, h.NNode+1),
		ZoneID:        make([]int, h.NNode),
		ILF:           make([]float64, h.NNode),
	}
	for i, nr := range nodes {
		if nr.ILF < 0 || math.IsNaN(nr.ILF) || math.IsInf(nr.ILF, 0) {
			return nil, inputErrorf(nr.Line, "invalid ideal load factor %v for node %d", nr.ILF, i)
		}
		g.ILF[i] = nr.ILF
	}

	// nid tracks the last node whose list has been opened; eid counts every
	// edge written including the injected self edges.
	nid, eid := -1, 0
	for _, e := range edges {
		if e.Head < 0 || e.Head >= h.NNode {
			return nil, inputErrorf(e.Line, "invalid head index %d", e.Head)
		}
		if e.Tail < 0 || e.Tail >= h.NNode {
			return nil, inputErrorf(e.Line, "invalid tail index %d", e.Tail)
		}
		if e.Head < nid {
			return nil, inputErrorf(e.Line, "head index %d out of order", e.Head)
		}
		for nid < e.Head {
			nid++
			g.NeighborStart[nid] = eid
			g.Neighbor[eid] = nid
			eid++
		}
		g.Neighbor[eid] = e.Tail
		eid++
	}
	// isolated trailing nodes still get their self edge
	for nid < h.NNode-1 {
		nid++
		g.NeighborStart[nid] = eid
		g.Neighbor[eid] = nid
		eid++
	}
	g.NeighborStart[h.NNode] = eid

	if err := g.assignZones(h, regions, nzone); err != nil {
		return nil, err
	}
	logrus.Debugf("Loaded graph with %d nodes and %d edges (%d zones)", g.NNode, g.NEdge, g.NZone)
	return g, nil
}

// assignZones maps every node onto a target zone through the file's regions.
func (g *Graph) assignZones(h GraphHeader, regions []ZoneRegion, nzone int) error {
	if nzone == 0 {
		g.NZone = 1
		return nil
	}
	g.NZone = nzone
	if h.FNZone == 0 {
		if nzone == 1 {
			return nil
		}
		return fmt.Errorf("%w: %d zones requested but the graph declares none", ErrZoneMismatch, nzone)
	}
	if h.FNZone%nzone != 0 {
		return fmt.Errorf("%w: file zone count %d is not a multiple of %d", ErrZoneMismatch, h.FNZone, nzone)
	}
	if len(regions) != h.FNZone {
		return inputErrorf(0, "expected %d zone records, got %d", h.FNZone, len(regions))
	}
	for _, r := range regions {
		if r.W <= 0 || r.H <= 0 {
			return inputErrorf(r.Line, "zone region %dx%d has no area", r.W, r.H)
		}
	}
	perZone := h.FNZone / nzone
	ncol := GridColumns(g.NNode)
	for n := 0; n < g.NNode; n++ {
		x, y := n%ncol, n/ncol
		fz := findRegion(regions, x, y)
		if fz < 0 {
			return inputErrorf(0, "could not find zone for node %d (x = %d, y = %d)", n, x, y)
		}
		g.ZoneID[n] = fz / perZone
	}
	return nil
}

// findRegion returns the index of the first region containing (x, y), or -1.
func findRegion(regions []ZoneRegion, x, y int) int {
	for i, r := range regions {
		if r.contains(x, y) {
			return i
		}
	}
	return -1
}
