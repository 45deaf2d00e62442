/*
Package loopback implements the transport contract in memory, with no sockets.

Client-to-server packets are delivered synchronously on the sending goroutine,
so packets of one endpoint arrive sequentially while different endpoints run
concurrently, which matches the delivery model the chat core assumes.
Server-to-client sends only enqueue: each client drains its own buffered inbox
on a dedicated goroutine, mirroring the ws transport's write queue, so a send
issued inside a registry critical section can never run client code under that
lock. It backs the test suites and shared-mode embeddings that colocate client
and server in one process.
*/
package loopback

import (
	"errors"
	"sync"

	"reefchat/internal/pkg/randx"
	"reefchat/internal/protocol"
	"reefchat/internal/transport"
)

// ErrServerClosed is returned by Connect when the loopback server is not open.
var ErrServerClosed = errors.New("loopback: server not open")

// inboxSize is the capacity of a client's inbound packet queue.
const inboxSize = 256

// Server is the accepting side of the loopback transport.
type Server struct {
	mu            sync.RWMutex
	open          bool
	endpoints     map[string]*endpoint
	connListeners map[int]transport.ConnectionListener
	nextListener  int
}

// NewServer creates a loopback server. It accepts nothing until Open is called.
func NewServer() *Server {
	return &Server{
		endpoints:     make(map[string]*endpoint),
		connListeners: make(map[int]transport.ConnectionListener),
	}
}

// Open marks the server as accepting. The port is ignored; there is no socket.
func (s *Server) Open(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = true
	return nil
}

// Close stops accepting and disconnects every live endpoint.
func (s *Server) Close() error {
	s.mu.Lock()
	s.open = false
	live := make([]*endpoint, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		live = append(live, ep)
	}
	s.endpoints = make(map[string]*endpoint)
	s.mu.Unlock()

	for _, ep := range live {
		ep.client.markDisconnected()
		s.notifyDisconnected(ep, transport.ReasonServerShutdown, "server closed")
	}

	return nil
}

// IsOpen reports whether the server is accepting connections.
func (s *Server) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.open
}

// AddConnectionListener subscribes to connect/disconnect events.
func (s *Server) AddConnectionListener(l transport.ConnectionListener) (remove func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.connListeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.connListeners, id)
		s.mu.Unlock()
	}
}

func (s *Server) connectionListeners() []transport.ConnectionListener {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]transport.ConnectionListener, 0, len(s.connListeners))
	for _, l := range s.connListeners {
		out = append(out, l)
	}
	return out
}

func (s *Server) notifyDisconnected(ep *endpoint, reason int, reasonText string) {
	for _, l := range s.connectionListeners() {
		if l.Disconnected != nil {
			l.Disconnected(ep, reason, reasonText)
		}
	}
}

// attach registers a new endpoint and fires the connect listeners.
func (s *Server) attach(ep *endpoint) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.endpoints[ep.id] = ep
	s.mu.Unlock()

	for _, l := range s.connectionListeners() {
		if l.Connected != nil {
			l.Connected(ep)
		}
	}
	return nil
}

// detach removes an endpoint and fires the disconnect listeners once.
func (s *Server) detach(ep *endpoint, reason int, reasonText string) {
	s.mu.Lock()
	_, present := s.endpoints[ep.id]
	delete(s.endpoints, ep.id)
	s.mu.Unlock()

	if present {
		s.notifyDisconnected(ep, reason, reasonText)
	}
}

// endpoint is the server-side view of one loopback connection.
type endpoint struct {
	id        string
	srv       *Server
	client    *Client
	listeners *transport.ListenerSet

	mu     sync.Mutex
	closed bool
}

func (ep *endpoint) ID() string         { return ep.id }
func (ep *endpoint) RemoteAddr() string { return "loopback" }

// Send queues a packet for the client side's drain goroutine. It never runs
// listener code on the calling goroutine, so callers may hold their own locks.
func (ep *endpoint) Send(pkt protocol.Packet) error {
	ep.mu.Lock()
	closed := ep.closed
	ep.mu.Unlock()

	if closed {
		return transport.ErrConnectionClosed
	}

	return ep.client.enqueue(pkt)
}

func (ep *endpoint) AddPacketListener(fn transport.PacketListener) (remove func()) {
	return ep.listeners.Add(fn)
}

// Close tears down the connection from the server side.
func (ep *endpoint) Close() error {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return nil
	}
	ep.closed = true
	ep.mu.Unlock()

	ep.client.markDisconnected()
	ep.srv.detach(ep, transport.ReasonServerShutdown, "endpoint closed by server")
	return nil
}

// Client is the connecting side of the loopback transport.
type Client struct {
	srv       *Server
	listeners *transport.ListenerSet

	mu        sync.Mutex
	ep        *endpoint
	connected bool

	// inbox buffers server-to-client packets; drain empties it until done is
	// closed. Both are replaced on every Connect.
	inbox chan protocol.Packet
	done  chan struct{}
}

// NewClient creates a loopback client bound to srv. It delivers nothing until
// Connect succeeds.
func NewClient(srv *Server) *Client {
	return &Client{
		srv:       srv,
		listeners: transport.NewListenerSet(),
	}
}

// Connect attaches a fresh endpoint to the server. The address is ignored.
func (c *Client) Connect(addr string) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return errors.New("loopback: already connected")
	}
	ep := &endpoint{
		id:        randx.ConnectionID(),
		srv:       c.srv,
		client:    c,
		listeners: transport.NewListenerSet(),
	}
	c.ep = ep
	c.connected = true
	c.inbox = make(chan protocol.Packet, inboxSize)
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.drain(c.inbox, c.done)

	if err := c.srv.attach(ep); err != nil {
		c.markDisconnected()
		return err
	}
	return nil
}

// enqueue buffers one server-to-client packet without blocking, the loopback
// counterpart of the ws write queue.
func (c *Client) enqueue(pkt protocol.Packet) error {
	c.mu.Lock()
	inbox := c.inbox
	done := c.done
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return transport.ErrConnectionClosed
	}

	select {
	case <-done:
		return transport.ErrConnectionClosed
	default:
	}

	select {
	case inbox <- pkt:
		return nil
	default:
		return transport.ErrSendQueueFull
	}
}

// drain delivers queued packets to the client's listeners, one at a time, on
// the client's own goroutine.
func (c *Client) drain(inbox chan protocol.Packet, done chan struct{}) {
	for {
		select {
		case pkt := <-inbox:
			c.listeners.Deliver(pkt)
		case <-done:
			return
		}
	}
}

// Send delivers a packet to the server-side endpoint listeners on the calling
// goroutine.
func (c *Client) Send(pkt protocol.Packet) error {
	c.mu.Lock()
	ep := c.ep
	connected := c.connected
	c.mu.Unlock()

	if !connected || ep == nil {
		return transport.ErrConnectionClosed
	}

	ep.listeners.Deliver(pkt)
	return nil
}

// AddPacketListener subscribes to packets arriving from the server.
func (c *Client) AddPacketListener(fn transport.PacketListener) (remove func()) {
	return c.listeners.Add(fn)
}

// Close disconnects from the server. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	ep := c.ep
	wasConnected := c.connected
	done := c.done
	c.ep = nil
	c.connected = false
	c.mu.Unlock()

	if !wasConnected {
		return nil
	}

	if done != nil {
		close(done)
	}

	if ep != nil {
		ep.mu.Lock()
		ep.closed = true
		ep.mu.Unlock()
		c.srv.detach(ep, transport.ReasonClosedByPeer, "client closed")
	}
	return nil
}

// markDisconnected flips the client to the disconnected state and stops the
// drain goroutine without firing server-side events; used when the teardown
// originates on the server.
func (c *Client) markDisconnected() {
	c.mu.Lock()
	wasConnected := c.connected
	done := c.done
	c.ep = nil
	c.connected = false
	c.mu.Unlock()

	if wasConnected && done != nil {
		close(done)
	}
}
