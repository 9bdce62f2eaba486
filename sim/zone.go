package sim

import (
	"fmt"
	"slices"
)

// ZoneBoundary holds the node tables one zone needs to cooperate with its peers.
//
// Export[z] lists the local nodes with at least one neighbor owned by zone z.
// Import[z] lists the zone-z nodes that are neighbors of some local node.
// Both are sorted, free of duplicates, and stored only when non-empty.
type ZoneBoundary struct {
	Zone       int
	LocalNodes []int
	Export     map[int][]int
	Import     map[int][]int
}

// ExportTo returns the export list toward zone z (nil when empty).
func (b *ZoneBoundary) ExportTo(z int) []int { return b.Export[z] }

// ImportFrom returns the import list from zone z (nil when empty).
func (b *ZoneBoundary) ImportFrom(z int) []int { return b.Import[z] }

// ImportedNodes returns every imported node across all peers, ascending.
func (b *ZoneBoundary) ImportedNodes() []int {
	var all []int
	for _, nodes := range b.Import {
		all = append(all, nodes...)
	}
	slices.Sort(all)
	return slices.Compact(all)
}

// PartitionZone computes the boundary tables of zone in a single pass over the graph.
func PartitionZone(g *Graph, zone int) (*ZoneBoundary, error) {
	if zone < 0 || zone >= g.NZone {
		return nil, fmt.Errorf("%w: zone %d out of range [0, %d)", ErrZoneMismatch, zone, g.NZone)
	}
	// Lists are sized to the spatial perimeter up front; append still grows them
	// for graphs that are not grid-like.
	perimeter := 4 * GridColumns(g.NNode)
	b := &ZoneBoundary{
		Zone:       zone,
		LocalNodes: make([]int, 0, g.NNode/g.NZone+1),
		Export:     make(map[int][]int),
		Import:     make(map[int][]int),
	}
	for n := 0; n < g.NNode; n++ {
		if g.ZoneID[n] != zone {
			continue
		}
		b.LocalNodes = append(b.LocalNodes, n)
		for _, nbr := range g.Neighbors(n) {
			nz := g.ZoneID[nbr]
			if nz == zone {
				continue
			}
			if b.Export[nz] == nil {
				b.Export[nz] = make([]int, 0, perimeter)
				b.Import[nz] = make([]int, 0, perimeter)
			}
			b.Export[nz] = append(b.Export[nz], n)
			b.Import[nz] = append(b.Import[nz], nbr)
		}
	}
	for z := range b.Export {
		b.Export[z] = fixupList(b.Export[z])
		b.Import[z] = fixupList(b.Import[z])
	}
	b.LocalNodes = slices.Clip(b.LocalNodes)
	return b, nil
}

// fixupList sorts, removes duplicates and drops spare capacity.
func fixupList(list []int) []int {
	slices.Sort(list)
	return slices.Clip(slices.Compact(list))
}
