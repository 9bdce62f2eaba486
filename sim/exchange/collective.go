package exchange

import (
	"context"
	"fmt"

	"github.com/graphrat-sim/graphrat-sim/sim"
)

// Coordinator is the zone that loads input, gathers results and drives display.
const Coordinator = 0

// expect checks that msg carries the wanted kind.
func expect(msg Message, kind Kind) error {
	if msg.Kind != kind {
		return fmt.Errorf("%w: expected %s from zone %d, got %q", sim.ErrCommunication, kind, msg.From, msg.Kind)
	}
	return nil
}

// Broadcast sends msg from the coordinator to every other zone. On the
// coordinator it returns msg; elsewhere it returns the received message,
// which must be of msg.Kind.
func Broadcast(ctx context.Context, ep Endpoint, msg Message) (Message, error) {
	if ep.Zone() != Coordinator {
		in, err := ep.Recv(ctx, Coordinator)
		if err != nil {
			return Message{}, err
		}
		return in, expect(in, msg.Kind)
	}
	for z := 0; z < ep.Zones(); z++ {
		if z == Coordinator {
			continue
		}
		if err := ep.Send(ctx, z, msg); err != nil {
			return Message{}, err
		}
	}
	return msg, nil
}

// Gather collects one message from every zone at the coordinator. The
// coordinator gets a slice indexed by zone with its own msg at index 0; other
// zones get nil.
func Gather(ctx context.Context, ep Endpoint, msg Message) ([]Message, error) {
	if ep.Zone() != Coordinator {
		return nil, ep.Send(ctx, Coordinator, msg)
	}
	all := make([]Message, ep.Zones())
	msg.From = Coordinator
	all[Coordinator] = msg
	for z := 1; z < ep.Zones(); z++ {
		in, err := ep.Recv(ctx, z)
		if err != nil {
			return nil, err
		}
		if err := expect(in, msg.Kind); err != nil {
			return nil, err
		}
		all[z] = in
	}
	return all, nil
}

// ExchangeAll sends out[z] to every peer z, then receives one message from
// each peer. The result is indexed by sender; the entry for this zone is
// empty. Every message must be of the given kind.
func ExchangeAll(ctx context.Context, ep Endpoint, kind Kind, out []Message) ([]Message, error) {
	n := ep.Zones()
	if len(out) != n {
		return nil, fmt.Errorf("%w: exchange needs %d messages, got %d", sim.ErrCommunication, n, len(out))
	}
	for z := 0; z < n; z++ {
		if z == ep.Zone() {
			continue
		}
		msg := out[z]
		msg.Kind = kind
		if err := ep.Send(ctx, z, msg); err != nil {
			return nil, err
		}
	}
	in := make([]Message, n)
	for z := 0; z < n; z++ {
		if z == ep.Zone() {
			continue
		}
		msg, err := ep.Recv(ctx, z)
		if err != nil {
			return nil, err
		}
		if err := expect(msg, kind); err != nil {
			return nil, err
		}
		in[z] = msg
	}
	return in, nil
}

// BroadcastGraph sends g from the coordinator to every other zone.
func BroadcastGraph(ctx context.Context, ep Endpoint, g *sim.Graph) error {
	payload := &GraphPayload{
		NNode:         g.NNode,
		NEdge:         g.NEdge,
		NZone:         g.NZone,
		Neighbor:      g.Neighbor,
		NeighborStart: g.NeighborStart,
		ZoneID:        g.ZoneID,
		ILF:           g.ILF,
	}
	_, err := Broadcast(ctx, ep, Message{Kind: KindGraph, Graph: payload})
	return err
}

// ReceiveGraph is the non-coordinator side of BroadcastGraph.
func ReceiveGraph(ctx context.Context, ep Endpoint) (*sim.Graph, error) {
	msg, err := Broadcast(ctx, ep, Message{Kind: KindGraph})
	if err != nil {
		return nil, err
	}
	p := msg.Graph
	if p == nil {
		return nil, fmt.Errorf("%w: graph message without payload", sim.ErrCommunication)
	}
	if len(p.NeighborStart) != p.NNode+1 || len(p.Neighbor) != p.NNode+p.NEdge ||
		len(p.ZoneID) != p.NNode || len(p.ILF) != p.NNode {
		return nil, fmt.Errorf("%w: inconsistent graph payload for %d nodes", sim.ErrCommunication, p.NNode)
	}
	if p.NZone != ep.Zones() {
		return nil, fmt.Errorf("%w: graph partitioned for %d zones, run has %d", sim.ErrZoneMismatch, p.NZone, ep.Zones())
	}
	return &sim.Graph{
		NNode:         p.NNode,
		NEdge:         p.NEdge,
		NZone:         p.NZone,
		Neighbor:      p.Neighbor,
		NeighborStart: p.NeighborStart,
		ZoneID:        p.ZoneID,
		ILF:           p.ILF,
	}, nil
}

// BroadcastSetup sends the run setup from the coordinator to every other zone.
func BroadcastSetup(ctx context.Context, ep Endpoint, s *Setup) error {
	_, err := Broadcast(ctx, ep, Message{Kind: KindSetup, Setup: s})
	return err
}

// ReceiveSetup is the non-coordinator side of BroadcastSetup.
func ReceiveSetup(ctx context.Context, ep Endpoint) (*Setup, error) {
	msg, err := Broadcast(ctx, ep, Message{Kind: KindSetup})
	if err != nil {
		return nil, err
	}
	if msg.Setup == nil {
		return nil, fmt.Errorf("%w: setup message without payload", sim.ErrCommunication)
	}
	return msg.Setup, nil
}
