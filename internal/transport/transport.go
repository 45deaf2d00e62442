/*
Package transport defines the contract between the chat core and the network
layer that carries its packets.

The core never opens sockets or frames bytes itself. It consumes a Server (or
Client) implementation through this package: typed packets in, typed packets
out, plus connect/disconnect notifications. Implementations must deliver the
packets of one endpoint sequentially; packets of different endpoints may be
delivered concurrently.
*/
package transport

import (
	"errors"

	"reefchat/internal/protocol"
)

// Disconnect reason codes passed to ConnectionListener.Disconnected.
const (
	// ReasonClosedByPeer indicates the remote side closed the connection.
	ReasonClosedByPeer = 1

	// ReasonNetworkError indicates the connection failed mid-operation.
	ReasonNetworkError = 2

	// ReasonServerShutdown indicates the local server closed the connection.
	ReasonServerShutdown = 3
)

// ErrConnectionClosed is returned by Send when the endpoint is no longer usable.
var ErrConnectionClosed = errors.New("transport: connection closed")

// ErrSendQueueFull is returned by Send when the endpoint's outbound queue is
// saturated. The packet is dropped; the connection stays up.
var ErrSendQueueFull = errors.New("transport: send queue full")

// PacketListener receives one decoded packet. Listeners run on the delivery
// goroutine of the endpoint and must not block.
type PacketListener func(pkt protocol.Packet)

// Endpoint is one remote peer as seen by a server.
type Endpoint interface {
	// ID returns an opaque identifier unique among the server's live endpoints.
	ID() string

	// RemoteAddr describes the peer for diagnostics.
	RemoteAddr() string

	// Send queues a packet for delivery to the peer. It never blocks on I/O.
	Send(pkt protocol.Packet) error

	// AddPacketListener subscribes to packets arriving from this peer and
	// returns a function that removes the subscription.
	AddPacketListener(fn PacketListener) (remove func())

	// Close tears down the connection. Idempotent.
	Close() error
}

// ConnectionListener observes endpoint lifecycle events on a server.
type ConnectionListener struct {
	// Connected fires after an endpoint is accepted, before any of its packets
	// are delivered.
	Connected func(ep Endpoint)

	// Disconnected fires exactly once when an endpoint goes away.
	Disconnected func(ep Endpoint, reason int, reasonText string)
}

// Server is the accepting side of a transport.
type Server interface {
	// Open starts accepting connections. Implementations define how port is
	// interpreted; port 0 means the listening socket is managed externally.
	Open(port int) error

	// Close stops accepting and tears down all live endpoints.
	Close() error

	// IsOpen reports whether the server is accepting connections.
	IsOpen() bool

	// AddConnectionListener subscribes to connect/disconnect events and
	// returns a function that removes the subscription.
	AddConnectionListener(l ConnectionListener) (remove func())
}

// Client is the connecting side of a transport.
type Client interface {
	// Connect dials the given address and starts delivering inbound packets
	// to registered listeners.
	Connect(addr string) error

	// Send queues a packet for delivery to the server.
	Send(pkt protocol.Packet) error

	// AddPacketListener subscribes to packets arriving from the server and
	// returns a function that removes the subscription.
	AddPacketListener(fn PacketListener) (remove func())

	// Close tears down the connection. Idempotent.
	Close() error
}
