package sim

import "math"

// Weight function constants.
const (
	weightCoeff = 0.5
	invLog2     = 1.0 / math.Ln2
)

// ComputeNodeWeight returns the attractiveness of a node holding count rats.
//
// With x = (count / loadFactor) / ilf, the node's occupancy relative to its
// ideal share, the weight is 1 / (1 + lg²) where lg = log2(1 + 0.5·x).
// It is 1 for an empty node, strictly decreasing in count, and never zero.
func ComputeNodeWeight(count int, loadFactor, ilf float64) float64 {
	if loadFactor <= 0 || ilf <= 0 {
		return 1.0
	}
	x := float64(count) / loadFactor / ilf
	lg := math.Log(1.0+weightCoeff*x) * invLog2
	return 1.0 / (1.0 + lg*lg)
}

// WeightModel holds node weights and, per node, the prefix sums of its
// neighbors' weights used for weighted sampling.
type WeightModel struct {
	graph           *Graph
	loadFactor      float64
	ilf             []float64
	binaryThreshold int

	nodeWeight []float64 // Length = NNode
	// Allocated on first refresh. sumWeight has length NNode,
	// accumWeight shares the indexing of Graph.Neighbor.
	sumWeight   []float64
	accumWeight []float64
}

// NewWeightModel creates a model for g at the given load factor.
func NewWeightModel(g *Graph, loadFactor float64, cfg Config) *WeightModel {
	cfg = cfg.withDefaults()
	ilf := make([]float64, g.NNode)
	for n := range ilf {
		if cfg.StaticILF && g.ILF[n] > 0 {
			ilf[n] = g.ILF[n]
		} else {
			ilf[n] = cfg.BaseILF
		}
	}
	return &WeightModel{
		graph:           g,
		loadFactor:      loadFactor,
		ilf:             ilf,
		binaryThreshold: cfg.BinaryThreshold,
		nodeWeight:      make([]float64, g.NNode),
	}
}

// NodeWeight returns the weight computed for n at the last refresh.
func (w *WeightModel) NodeWeight(n int) float64 { return w.nodeWeight[n] }

// SumWeight returns the sum of n's neighbor weights at the last refresh.
func (w *WeightModel) SumWeight(n int) float64 { return w.sumWeight[n] }

// ILF returns the ideal load factor used for node n.
func (w *WeightModel) ILF(n int) float64 { return w.ilf[n] }

func (w *WeightModel) initSumWeight() {
	if w.sumWeight == nil {
		w.sumWeight = make([]float64, w.graph.NNode)
		w.accumWeight = make([]float64, w.graph.NNode+w.graph.NEdge)
	}
}

// Refresh recomputes every node weight from counts, then every node's
// normalizing sum and prefix-sum table.
func (w *WeightModel) Refresh(counts []int) {
	w.initSumWeight()
	for n := 0; n < w.graph.NNode; n++ {
		w.nodeWeight[n] = ComputeNodeWeight(counts[n], w.loadFactor, w.ilf[n])
	}
	for n := 0; n < w.graph.NNode; n++ {
		w.buildTable(n)
	}
}

// RefreshNodes is the zone-local refresh: weights are recomputed for
// weightNodes (local plus imported nodes) and tables rebuilt for tableNodes,
// whose neighbors must all be in weightNodes.
func (w *WeightModel) RefreshNodes(counts []int, weightNodes, tableNodes []int) {
	w.initSumWeight()
	for _, n := range weightNodes {
		w.nodeWeight[n] = ComputeNodeWeight(counts[n], w.loadFactor, w.ilf[n])
	}
	for _, n := range tableNodes {
		w.buildTable(n)
	}
}

func (w *WeightModel) buildTable(n int) {
	g := w.graph
	sum := 0.0
	for eid := g.NeighborStart[n]; eid < g.NeighborStart[n+1]; eid++ {
		sum += w.nodeWeight[g.Neighbor[eid]]
		w.accumWeight[eid] = sum
	}
	w.sumWeight[n] = sum
}

// SelectNextNode draws from stream and returns the neighbor of n whose
// prefix-sum interval contains the draw. The self edge is a valid result.
func (w *WeightModel) SelectNextNode(n int, stream *RatStream) int {
	u := stream.Float64() * w.sumWeight[n]
	return w.locate(n, u)
}

// locate maps a value in [0, sumWeight[n]) to a neighbor of n.
func (w *WeightModel) locate(n int, u float64) int {
	start, end := w.graph.NeighborStart[n], w.graph.NeighborStart[n+1]
	var eid int
	if end-start <= w.binaryThreshold {
		eid = w.locateLinear(start, end, u)
	} else {
		eid = w.locateBinary(start, end, u)
	}
	return w.graph.Neighbor[eid]
}

// locateLinear returns the first edge in [start, end) with u < accum.
func (w *WeightModel) locateLinear(start, end int, u float64) int {
	for eid := start; eid < end-1; eid++ {
		if u < w.accumWeight[eid] {
			return eid
		}
	}
	return end - 1
}

// locateBinary returns the same edge as locateLinear in O(log degree).
func (w *WeightModel) locateBinary(start, end int, u float64) int {
	lo, hi := start, end-1
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if u < w.accumWeight[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
