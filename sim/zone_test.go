package sim

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionZone_GridQuadrant_BoundaryTables(t *testing.T) {
	// GIVEN a 4x4 lattice split into four 2x2 zones
	g := buildGridGraph(t, 4, 2, 2, 4)

	// WHEN zone 0 (top-left quadrant) computes its tables
	b, err := PartitionZone(g, 0)
	require.NoError(t, err)

	// THEN it owns nodes 0,1,4,5 and borders zones 1 and 2 but not 3
	assert.Equal(t, []int{0, 1, 4, 5}, b.LocalNodes)
	assert.Equal(t, []int{1, 5}, b.ExportTo(1))
	assert.Equal(t, []int{2, 6}, b.ImportFrom(1))
	assert.Equal(t, []int{4, 5}, b.ExportTo(2))
	assert.Equal(t, []int{8, 9}, b.ImportFrom(2))
	assert.Nil(t, b.ExportTo(3))
	assert.Nil(t, b.ImportFrom(3))
	assert.Equal(t, []int{2, 6, 8, 9}, b.ImportedNodes())
}

func TestPartitionZone_MirrorInvariant_SymmetricGraph(t *testing.T) {
	// GIVEN a symmetric 12x12 lattice in 9 zones (36 file regions coarsened 4:1)
	g := buildGridGraph(t, 12, 6, 6, 9)
	bounds := make([]*ZoneBoundary, g.NZone)
	for z := range bounds {
		b, err := PartitionZone(g, z)
		require.NoError(t, err)
		bounds[z] = b
	}

	// THEN every export list is mirrored by the peer's import list
	for a := 0; a < g.NZone; a++ {
		for b := 0; b < g.NZone; b++ {
			if a == b {
				continue
			}
			exp := bounds[a].ExportTo(b)
			imp := bounds[b].ImportFrom(a)
			assert.Equal(t, exp, imp, "zone %d export to %d vs zone %d import from %d", a, b, b, a)
			assert.True(t, slices.IsSorted(exp))
			assert.Equal(t, len(exp), len(slices.Compact(slices.Clone(exp))), "duplicates in export %d->%d", a, b)
			assert.Equal(t, len(exp), cap(exp), "export list must be clipped to its length")
			for _, n := range exp {
				assert.Equal(t, a, g.ZoneOf(n))
			}
		}
	}
}

func TestPartitionZone_LocalNodesCoverGraph(t *testing.T) {
	g := buildGridGraph(t, 8, 4, 4, 4)
	seen := make([]int, g.NNode)
	for z := 0; z < g.NZone; z++ {
		b, err := PartitionZone(g, z)
		require.NoError(t, err)
		assert.True(t, slices.IsSorted(b.LocalNodes))
		for _, n := range b.LocalNodes {
			seen[n]++
		}
	}
	for n, c := range seen {
		assert.Equal(t, 1, c, "node %d must belong to exactly one zone", n)
	}
}

func TestPartitionZone_InvalidZone(t *testing.T) {
	g := buildGridGraph(t, 4, 2, 2, 4)
	_, err := PartitionZone(g, 4)
	assert.ErrorIs(t, err, ErrZoneMismatch)
}
