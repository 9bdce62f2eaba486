// Package exchange moves messages between the zones of a partitioned run.
//
// Each zone holds an Endpoint. Delivery is FIFO per ordered (sender, receiver)
// pair and every blocking call takes a context. Two transports are provided:
// a channel mesh for zones running as goroutines of one process, and a
// websocket star relayed through the coordinator (zone 0) for zones running as
// separate processes. The collectives in this package are built only on
// Send and Recv, so they behave identically on both.
package exchange

import (
	"github.com/graphrat-sim/graphrat-sim/sim"
)

// Kind tags the payload a Message carries.
type Kind string

const (
	KindHello     Kind = "hello"     // worker -> hub: announces the sender's zone
	KindWelcome   Kind = "welcome"   // hub -> worker: carries the zone count
	KindGraph     Kind = "graph"     // coordinator -> all: the graph
	KindSetup     Kind = "setup"     // coordinator -> all: run parameters and initial positions
	KindSubscribe Kind = "subscribe" // zone -> peer: the peer's nodes whose counts the sender needs
	KindCounts    Kind = "counts"    // zone -> subscriber: counts of subscribed nodes
	KindHandoff   Kind = "handoff"   // zone -> peer: rats moving onto the peer's nodes
	KindStep      Kind = "step"      // zone -> coordinator: occupancy at a step boundary
	KindResult    Kind = "result"    // zone -> coordinator: final rat positions
)

// Message is the single frame type exchanged between zones. Fields not used by
// a Kind are left empty.
type Message struct {
	Kind Kind `json:"kind"`
	From int  `json:"from"`
	To   int  `json:"to"`

	Step     int   `json:"step,omitempty"`
	Nodes    []int `json:"nodes,omitempty"`
	Values   []int `json:"values,omitempty"`
	Rats     []Rat `json:"rats,omitempty"`
	InFlight int64 `json:"in_flight,omitempty"` // rats sent by From that still have moves to make
	Total    int64 `json:"total,omitempty"`     // rats owned by From
	Zones    int   `json:"zones,omitempty"`

	Graph *GraphPayload `json:"graph,omitempty"`
	Setup *Setup        `json:"setup,omitempty"`
}

// Rat carries one rat across a zone boundary. Stream is the marshaled
// sim.RatStream; Pending is the number of moves the rat still has to make in
// the current segment.
type Rat struct {
	ID      int    `json:"id"`
	Node    int    `json:"node"`
	Stream  []byte `json:"stream,omitempty"`
	Pending int64  `json:"pending,omitempty"`
}

// GraphPayload is the wire form of a sim.Graph.
type GraphPayload struct {
	NNode         int       `json:"nnode"`
	NEdge         int       `json:"nedge"`
	NZone         int       `json:"nzone"`
	Neighbor      []int     `json:"neighbor"`
	NeighborStart []int     `json:"neighbor_start"`
	ZoneID        []int     `json:"zone_id"`
	ILF           []float64 `json:"ilf"`
}

// Setup is everything a zone needs besides the graph to start a run.
type Setup struct {
	RunID           string         `json:"run_id"`
	Seed            uint64         `json:"seed"`
	Steps           int            `json:"steps"`
	Mode            sim.UpdateMode `json:"mode"`
	DisplayInterval int            `json:"display_interval"`
	Display         bool           `json:"display"`
	Config          sim.Config     `json:"config"`
	Positions       []int          `json:"positions"`
}
