// Package sim provides the core of the graphrat simulator: a population of
// rats performing a weighted random walk over a directed graph, biased toward
// nodes that hold fewer rats than their ideal share.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - graph.go: CSR adjacency with injected self edges and spatial zone assignment
//   - population.go / rng.go: rat positions, occupancy counters, per-rat streams
//   - weight.go: node weights and prefix-sum based next-node selection
//   - schedule.go / engine.go: the three update disciplines
//
// # Architecture
//
// The sim package has no knowledge of zones beyond the boundary tables in
// zone.go. Sub-packages build on it:
//   - sim/input/: graph and rat file loaders
//   - sim/exchange/: message transports between zone owners (in-process, websocket)
//   - sim/cluster/: zone-partitioned runs over an exchange
//   - sim/trace/: occupancy recording and the STEP/END/DONE display protocol
//
// # Determinism
//
// A rat's next node depends only on the current weight snapshot and the rat's
// own stream, which is derived from (SimulationKey, rat index). Moves within
// one segment of the Schedule therefore commute, which is what lets a
// zone-partitioned run reproduce the single-process result exactly.
package sim
