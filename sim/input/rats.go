package input

import (
	"fmt"
	"io"
	"os"

	"github.com/graphrat-sim/graphrat-sim/sim"
)

// ReadRats parses a rat file for a graph of nnode nodes and returns the
// initial node of every rat.
//
// Format: a header "nnode nrat" followed by nrat lines, each one node id.
func ReadRats(r io.Reader, nnode int) ([]int, error) {
	lr := newLineReader(r)

	fields, err := lr.next("rat header")
	if err != nil {
		return nil, err
	}
	if len(fields) != 2 {
		return nil, lr.errorf("malformed rat file header")
	}
	hv, err := lr.ints(fields)
	if err != nil {
		return nil, err
	}
	if hv[0] != nnode {
		return nil, lr.errorf("graph contains %d nodes, but rat file has %d", nnode, hv[0])
	}
	nrat := hv[1]
	if nrat < 0 {
		return nil, lr.errorf("invalid rat count %d", nrat)
	}
	if nrat > sim.MaxElements {
		return nil, fmt.Errorf("%w: %d rats", sim.ErrAllocation, nrat)
	}

	positions := make([]int, nrat)
	for i := range positions {
		fields, err := lr.next(fmt.Sprintf("rat %d", i+1))
		if err != nil {
			return nil, err
		}
		if len(fields) != 1 {
			return nil, lr.errorf("malformed line, expecting rat %d", i+1)
		}
		v, err := lr.ints(fields)
		if err != nil {
			return nil, err
		}
		if v[0] < 0 || v[0] >= nnode {
			return nil, lr.errorf("invalid node number %d", v[0])
		}
		positions[i] = v[0]
	}
	return positions, nil
}

// LoadRatFile opens path and reads it with ReadRats.
func LoadRatFile(path string, nnode int) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rat file: %w", err)
	}
	defer func() { _ = file.Close() }()
	positions, err := ReadRats(file, nnode)
	if err != nil {
		return nil, fmt.Errorf("rat file %s: %w", path, err)
	}
	return positions, nil
}
