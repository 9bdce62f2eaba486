package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/graphrat-sim/graphrat-sim/sim"
)

// wsConn serializes writes on one websocket connection.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) write(ctx context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, _ := ctx.Deadline()
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteJSON(msg)
}

// inboxes demultiplexes frames read from a connection into per-sender queues.
type inboxes struct {
	box  []chan Message
	gone []chan struct{} // closed when a sender disconnects cleanly
	done chan struct{}
	once sync.Once
	err  error
}

func newInboxes(n int) *inboxes {
	ib := &inboxes{
		box:  make([]chan Message, n),
		gone: make([]chan struct{}, n),
		done: make(chan struct{}),
	}
	for i := range ib.box {
		ib.box[i] = make(chan Message, mailboxSize)
		ib.gone[i] = make(chan struct{})
	}
	return ib
}

// leave records that from closed its connection after its last frame.
func (ib *inboxes) leave(from int) {
	close(ib.gone[from])
}

func (ib *inboxes) fail(err error) {
	ib.once.Do(func() {
		ib.err = err
		close(ib.done)
	})
}

func (ib *inboxes) deliver(msg Message) bool {
	select {
	case ib.box[msg.From] <- msg:
		return true
	case <-ib.done:
		return false
	}
}

func (ib *inboxes) recv(ctx context.Context, zone, from int) (Message, error) {
	select {
	case msg := <-ib.box[from]:
		return msg, nil
	case <-ib.done:
		// frames read before the failure are still delivered
		select {
		case msg := <-ib.box[from]:
			return msg, nil
		default:
		}
		return Message{}, commError(zone, from, "recv", ib.err)
	case <-ib.gone[from]:
		select {
		case msg := <-ib.box[from]:
			return msg, nil
		default:
		}
		return Message{}, commError(zone, from, "recv", errDisconnected)
	case <-ctx.Done():
		return Message{}, commError(zone, from, "recv", ctx.Err())
	}
}

var (
	errClosed       = errors.New("endpoint closed")
	errDisconnected = errors.New("peer disconnected")
)

// Hub is the coordinator side of a multi-process run. Workers for zones
// 1..n-1 connect over websockets; frames between workers are relayed through
// the hub, and the hub itself is zone 0.
type Hub struct {
	nzone    int
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  []*wsConn
	joined int
	ready  chan struct{}

	in *inboxes
}

// NewHub returns a hub for a run of nzone zones. It is an http.Handler.
func NewHub(nzone int) *Hub {
	h := &Hub{
		nzone: nzone,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		conns: make([]*wsConn, nzone),
		ready: make(chan struct{}),
		in:    newInboxes(nzone),
	}
	if nzone <= 1 {
		close(h.ready)
	}
	return h
}

// ServeHTTP upgrades a worker connection and registers it under the zone its
// hello frame names.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("hub: websocket upgrade failed: %v", err)
		return
	}
	var hello Message
	if err := conn.ReadJSON(&hello); err != nil || hello.Kind != KindHello {
		logrus.Warnf("hub: bad hello from %s: %v", r.RemoteAddr, err)
		_ = conn.Close()
		return
	}
	zone := hello.From
	wc := &wsConn{conn: conn}

	h.mu.Lock()
	if zone <= 0 || zone >= h.nzone || h.conns[zone] != nil {
		h.mu.Unlock()
		logrus.Warnf("hub: rejecting worker for zone %d", zone)
		_ = conn.WriteJSON(Message{Kind: KindWelcome, Zones: 0})
		_ = conn.Close()
		return
	}
	if err := wc.write(context.Background(), Message{Kind: KindWelcome, To: zone, Zones: h.nzone}); err != nil {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.conns[zone] = wc
	h.joined++
	if h.joined == h.nzone-1 {
		close(h.ready)
	}
	h.mu.Unlock()

	logrus.Infof("hub: zone %d connected from %s", zone, r.RemoteAddr)
	go h.relay(zone, wc)
}

// relay reads frames from one worker and routes them to zone 0 or another worker.
func (h *Hub) relay(zone int, wc *wsConn) {
	for {
		var msg Message
		if err := wc.conn.ReadJSON(&msg); err != nil {
			// a worker that finished closes normally; frames it relayed
			// to other workers must still be delivered
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logrus.Debugf("hub: zone %d disconnected", zone)
				h.in.leave(zone)
				return
			}
			h.fail(fmt.Errorf("zone %d connection: %w", zone, err))
			return
		}
		msg.From = zone
		switch {
		case msg.To == 0:
			if !h.in.deliver(msg) {
				return
			}
		case msg.To > 0 && msg.To < h.nzone:
			h.mu.Lock()
			dst := h.conns[msg.To]
			h.mu.Unlock()
			if dst == nil {
				h.fail(fmt.Errorf("zone %d sent to unconnected zone %d", zone, msg.To))
				return
			}
			if err := dst.write(context.Background(), msg); err != nil {
				h.fail(fmt.Errorf("relay %d->%d: %w", zone, msg.To, err))
				return
			}
		default:
			h.fail(fmt.Errorf("zone %d sent to invalid zone %d", zone, msg.To))
			return
		}
	}
}

// fail aborts the run: every connection is closed so blocked peers return.
func (h *Hub) fail(err error) {
	h.in.fail(err)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		if c != nil {
			_ = c.conn.Close()
		}
	}
}

// Endpoint waits until every worker has joined and returns zone 0's endpoint.
func (h *Hub) Endpoint(ctx context.Context) (Endpoint, error) {
	select {
	case <-h.ready:
		return &hubEndpoint{hub: h}, nil
	case <-h.in.done:
		return nil, fmt.Errorf("%w: hub: %w", sim.ErrCommunication, h.in.err)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for workers: %w", sim.ErrCommunication, ctx.Err())
	}
}

type hubEndpoint struct {
	hub *Hub
}

func (e *hubEndpoint) Zone() int  { return 0 }
func (e *hubEndpoint) Zones() int { return e.hub.nzone }

func (e *hubEndpoint) Send(ctx context.Context, to int, msg Message) error {
	if err := checkPeer(e, to); err != nil {
		return err
	}
	msg.From, msg.To = 0, to
	if err := e.hub.conns[to].write(ctx, msg); err != nil {
		return commError(0, to, "send", err)
	}
	return nil
}

func (e *hubEndpoint) Recv(ctx context.Context, from int) (Message, error) {
	if err := checkPeer(e, from); err != nil {
		return Message{}, err
	}
	return e.hub.in.recv(ctx, 0, from)
}

func (e *hubEndpoint) Close() error {
	e.hub.fail(errClosed)
	return nil
}

// ListenHub serves a hub on addr and returns zone 0's endpoint once all
// nzone-1 workers have connected. The listener is shut down when the
// endpoint is closed or ctx ends before the workers join.
func ListenHub(ctx context.Context, addr string, nzone int) (Endpoint, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %w", sim.ErrCommunication, addr, err)
	}
	hub := NewHub(nzone)
	mux := http.NewServeMux()
	mux.Handle("/zone", hub)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hub.fail(err)
		}
	}()
	logrus.Infof("coordinator listening on ws://%s/zone for %d workers", ln.Addr(), nzone-1)

	ep, err := hub.Endpoint(ctx)
	if err != nil {
		_ = srv.Close()
		return nil, err
	}
	return &listenEndpoint{Endpoint: ep, srv: srv}, nil
}

type listenEndpoint struct {
	Endpoint
	srv *http.Server
}

func (e *listenEndpoint) Close() error {
	err := e.Endpoint.Close()
	_ = e.srv.Close()
	return err
}

// Dial connects a worker for zone to the hub at url ("ws://host:port/zone").
func Dial(ctx context.Context, url string, zone int) (Endpoint, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", sim.ErrCommunication, url, err)
	}
	wc := &wsConn{conn: conn}
	if err := wc.write(ctx, Message{Kind: KindHello, From: zone}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: hello: %w", sim.ErrCommunication, err)
	}
	var welcome Message
	if err := conn.ReadJSON(&welcome); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: welcome: %w", sim.ErrCommunication, err)
	}
	if welcome.Kind != KindWelcome || welcome.Zones <= zone {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: hub rejected zone %d", sim.ErrCommunication, zone)
	}
	e := &workerEndpoint{zone: zone, nzone: welcome.Zones, conn: wc, in: newInboxes(welcome.Zones)}
	go e.read()
	logrus.Infof("zone %d joined run of %d zones", zone, welcome.Zones)
	return e, nil
}

type workerEndpoint struct {
	zone  int
	nzone int
	conn  *wsConn
	in    *inboxes
}

func (e *workerEndpoint) Zone() int  { return e.zone }
func (e *workerEndpoint) Zones() int { return e.nzone }

func (e *workerEndpoint) read() {
	for {
		var msg Message
		if err := e.conn.conn.ReadJSON(&msg); err != nil {
			e.in.fail(err)
			return
		}
		if msg.From < 0 || msg.From >= e.nzone || msg.From == e.zone {
			e.in.fail(fmt.Errorf("frame from invalid zone %d", msg.From))
			return
		}
		if !e.in.deliver(msg) {
			return
		}
	}
}

func (e *workerEndpoint) Send(ctx context.Context, to int, msg Message) error {
	if err := checkPeer(e, to); err != nil {
		return err
	}
	msg.From, msg.To = e.zone, to
	if err := e.conn.write(ctx, msg); err != nil {
		return commError(e.zone, to, "send", err)
	}
	return nil
}

func (e *workerEndpoint) Recv(ctx context.Context, from int) (Message, error) {
	if err := checkPeer(e, from); err != nil {
		return Message{}, err
	}
	return e.in.recv(ctx, e.zone, from)
}

func (e *workerEndpoint) Close() error {
	e.in.fail(errClosed)
	_ = e.conn.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return e.conn.conn.Close()
}
