package exchange

import (
	"context"
	"fmt"

	"github.com/graphrat-sim/graphrat-sim/sim"
)

// Endpoint is one zone's view of the exchange.
type Endpoint interface {
	// Zone returns this endpoint's zone id.
	Zone() int
	// Zones returns the number of zones in the run.
	Zones() int
	// Send delivers msg to zone to. The caller must not modify msg's slices afterwards.
	Send(ctx context.Context, to int, msg Message) error
	// Recv returns the next message sent by zone from.
	Recv(ctx context.Context, from int) (Message, error)
	// Close releases the endpoint's resources.
	Close() error
}

// mailboxSize bounds the messages in flight per ordered pair. The collectives
// never let a sender run more than two messages ahead of its receiver.
const mailboxSize = 64

// NewLocalMesh returns n connected endpoints for zones running in one process.
func NewLocalMesh(n int) []Endpoint {
	boxes := make([][]chan Message, n)
	for from := range boxes {
		boxes[from] = make([]chan Message, n)
		for to := range boxes[from] {
			if from != to {
				boxes[from][to] = make(chan Message, mailboxSize)
			}
		}
	}
	eps := make([]Endpoint, n)
	for z := range eps {
		eps[z] = &localEndpoint{zone: z, boxes: boxes}
	}
	return eps
}

type localEndpoint struct {
	zone  int
	boxes [][]chan Message // boxes[from][to]
}

func (e *localEndpoint) Zone() int  { return e.zone }
func (e *localEndpoint) Zones() int { return len(e.boxes) }

func (e *localEndpoint) Send(ctx context.Context, to int, msg Message) error {
	if err := checkPeer(e, to); err != nil {
		return err
	}
	msg.From, msg.To = e.zone, to
	select {
	case e.boxes[e.zone][to] <- msg:
		return nil
	case <-ctx.Done():
		return commError(e.zone, to, "send", ctx.Err())
	}
}

func (e *localEndpoint) Recv(ctx context.Context, from int) (Message, error) {
	if err := checkPeer(e, from); err != nil {
		return Message{}, err
	}
	select {
	case msg := <-e.boxes[from][e.zone]:
		return msg, nil
	case <-ctx.Done():
		return Message{}, commError(e.zone, from, "recv", ctx.Err())
	}
}

func (e *localEndpoint) Close() error { return nil }

func checkPeer(ep Endpoint, peer int) error {
	if peer < 0 || peer >= ep.Zones() || peer == ep.Zone() {
		return fmt.Errorf("%w: zone %d has no peer %d", sim.ErrCommunication, ep.Zone(), peer)
	}
	return nil
}

func commError(zone, peer int, op string, err error) error {
	return fmt.Errorf("%w: zone %d %s peer %d: %w", sim.ErrCommunication, zone, op, peer, err)
}
