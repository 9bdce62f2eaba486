package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPopulation_CountsAndDerivedParameters(t *testing.T) {
	// GIVEN 3 rats on a 3-node path, two on node 0 and one on node 2
	g := buildGraphFromEdges(t, 3, [][2]int{{0, 1}, {1, 2}})

	p, err := NewPopulation(g, 3, NewSimulationKey(1), []int{0, 2, 0}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []int{2, 0, 1}, p.Count)
	assert.Equal(t, 3, p.TotalCount())
	assert.InDelta(t, 1.0, p.LoadFactor, 1e-12)
	assert.Equal(t, 1, p.BatchSize)
}

func TestNewPopulation_StreamsMatchSeedStream(t *testing.T) {
	g := buildGraphFromEdges(t, 2, [][2]int{{0, 1}})
	key := NewSimulationKey(99)
	p, err := NewPopulation(g, 4, key, []int{0, 1, 1, 0}, DefaultConfig())
	require.NoError(t, err)

	for r := 0; r < p.NRat; r++ {
		want := SeedStream(key, r)
		assert.Equal(t, want.Uint64(), p.Streams[r].Uint64(), "rat %d", r)
	}
}

func TestNewPopulation_InvalidPositions(t *testing.T) {
	g := buildGraphFromEdges(t, 2, [][2]int{{0, 1}})

	_, err := NewPopulation(g, 2, NewSimulationKey(1), []int{0, 2}, DefaultConfig())
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = NewPopulation(g, 3, NewSimulationKey(1), []int{0, 1}, DefaultConfig())
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestComputeBatchSize(t *testing.T) {
	tests := []struct {
		nrat int
		want int
	}{
		{0, 0},
		{1, 1},
		{3, 1},
		{100, 10},        // sqrt dominates
		{10000, 200},     // 2% dominates: max(200, 100)
		{1036800, 20736}, // 180x180 grid at load factor 32
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeBatchSize(tt.nrat, DefaultBatchFraction), "nrat=%d", tt.nrat)
	}
}
