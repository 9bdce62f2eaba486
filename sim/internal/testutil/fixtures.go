// Package testutil provides shared test infrastructure for the graphrat
// simulator. It generates grid graph fixtures and holds assertion helpers
// used across sim/, sim/input/ and sim/cluster/ test packages.
// It does not import sim, so in-package sim tests can use it.
package testutil

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

// GridEdges returns the directed edges of a k×k grid where every node links to
// its four lattice neighbors in both directions. Heads are non-decreasing.
func GridEdges(k int) [][2]int {
	var edges [][2]int
	for n := 0; n < k*k; n++ {
		x, y := n%k, n/k
		if y > 0 {
			edges = append(edges, [2]int{n, n - k})
		}
		if x > 0 {
			edges = append(edges, [2]int{n, n - 1})
		}
		if x < k-1 {
			edges = append(edges, [2]int{n, n + 1})
		}
		if y < k-1 {
			edges = append(edges, [2]int{n, n + k})
		}
	}
	return edges
}

// GridRegions tiles a k×k grid with zx·zy rectangles (x, y, w, h), row-major.
// k must be divisible by zx and zy.
func GridRegions(k, zx, zy int) [][4]int {
	w, h := k/zx, k/zy
	regions := make([][4]int, 0, zx*zy)
	for j := 0; j < zy; j++ {
		for i := 0; i < zx; i++ {
			regions = append(regions, [4]int{i * w, j * h, w, h})
		}
	}
	return regions
}

// GridGraphFile renders a k×k grid graph in the graph file format, with
// zx·zy zone regions (no zone records when zx·zy == 0).
func GridGraphFile(k, zx, zy int) string {
	var b strings.Builder
	edges := GridEdges(k)
	nzone := zx * zy
	fmt.Fprintf(&b, "# %dx%d grid\n", k, k)
	if nzone > 0 {
		fmt.Fprintf(&b, "%d %d %d\n", k*k, len(edges), nzone)
	} else {
		fmt.Fprintf(&b, "%d %d\n", k*k, len(edges))
	}
	for n := 0; n < k*k; n++ {
		fmt.Fprintf(&b, "n %.2f\n", 1.0+float64(n%3)*0.5)
	}
	for _, e := range edges {
		fmt.Fprintf(&b, "e %d %d\n", e[0], e[1])
	}
	if nzone > 0 {
		for _, r := range GridRegions(k, zx, zy) {
			fmt.Fprintf(&b, "z %d %d %d %d\n", r[0], r[1], r[2], r[3])
		}
	}
	return b.String()
}

// ClusteredRats places nrat rats on the first few nodes so that a run has
// imbalance to work off.
func ClusteredRats(nnode, nrat int) []int {
	positions := make([]int, nrat)
	hot := max(1, nnode/8)
	for r := range positions {
		positions[r] = (r * 7) % hot
	}
	return positions
}

// RatFile renders positions in the rat file format.
func RatFile(nnode int, positions []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %d\n", nnode, len(positions))
	for _, p := range positions {
		fmt.Fprintf(&b, "%d\n", p)
	}
	return b.String()
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
