package input

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/graphrat-sim/graphrat-sim/sim"
)

// ReadGraph parses a graph description and builds it for nzone zones
// (0 = no partitioning).
//
// Format: a header "nnode nedge [fnzone]", nnode lines "n <ilf>", nedge lines
// "e <head> <tail>" with non-decreasing heads, then fnzone lines
// "z <x> <y> <w> <h>".
func ReadGraph(r io.Reader, nzone int) (*sim.Graph, error) {
	lr := newLineReader(r)

	fields, err := lr.next("graph header")
	if err != nil {
		return nil, err
	}
	if len(fields) < 2 || len(fields) > 3 {
		return nil, lr.errorf("malformed graph file header")
	}
	hv, err := lr.ints(fields)
	if err != nil {
		return nil, err
	}
	h := sim.GraphHeader{NNode: hv[0], NEdge: hv[1]}
	if len(hv) == 3 {
		h.FNZone = hv[2]
	}
	if h.NNode <= 0 || h.NEdge < 0 || h.FNZone < 0 {
		return nil, lr.errorf("invalid graph header: %d nodes, %d edges, %d zones", h.NNode, h.NEdge, h.FNZone)
	}
	if h.NNode > sim.MaxElements || h.NEdge > sim.MaxElements-h.NNode || h.FNZone > sim.MaxElements {
		return nil, fmt.Errorf("%w: graph with %d nodes and %d edges", sim.ErrAllocation, h.NNode, h.NEdge)
	}

	nodes := make([]sim.NodeRecord, h.NNode)
	for i := range nodes {
		fields, err := lr.next(fmt.Sprintf("node %d", i+1))
		if err != nil {
			return nil, err
		}
		if fields[0] != "n" || len(fields) != 2 {
			return nil, lr.errorf("malformed line, expecting node %d", i+1)
		}
		ilf, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, lr.errorf("invalid ideal load factor %q", fields[1])
		}
		nodes[i] = sim.NodeRecord{ILF: ilf, Line: lr.line}
	}

	edges := make([]sim.EdgeRecord, h.NEdge)
	for i := range edges {
		fields, err := lr.next(fmt.Sprintf("edge %d", i+1))
		if err != nil {
			return nil, err
		}
		v, err := lr.tagged(fields, "e", 2, fmt.Sprintf("edge %d", i+1))
		if err != nil {
			return nil, err
		}
		edges[i] = sim.EdgeRecord{Head: v[0], Tail: v[1], Line: lr.line}
	}

	regions := make([]sim.ZoneRegion, h.FNZone)
	for i := range regions {
		fields, err := lr.next(fmt.Sprintf("zone %d", i+1))
		if err != nil {
			return nil, err
		}
		v, err := lr.tagged(fields, "z", 4, fmt.Sprintf("zone %d", i+1))
		if err != nil {
			return nil, err
		}
		regions[i] = sim.ZoneRegion{X: v[0], Y: v[1], W: v[2], H: v[3], Line: lr.line}
	}

	return sim.BuildGraph(h, nodes, edges, regions, nzone)
}

// LoadGraphFile opens path and reads it with ReadGraph.
func LoadGraphFile(path string, nzone int) (*sim.Graph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph file: %w", err)
	}
	defer func() { _ = file.Close() }()
	g, err := ReadGraph(file, nzone)
	if err != nil {
		return nil, fmt.Errorf("graph file %s: %w", path, err)
	}
	return g, nil
}
