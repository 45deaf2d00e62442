/*
Package ws implements the transport contract over WebSocket connections using
gorilla/websocket.

This file defines the connecting side: a Client that dials a chat server's
WebSocket endpoint and pumps packets in both directions.
*/
package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"reefchat/internal/protocol"
	"reefchat/internal/transport"
)

// Client dials a WebSocket chat endpoint and exposes it as a transport client.
type Client struct {
	dialer    *websocket.Dialer
	listeners *transport.ListenerSet
	logger    zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce *sync.Once
}

// NewClient creates a WebSocket transport client. It delivers nothing until
// Connect succeeds.
func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		dialer:    websocket.DefaultDialer,
		listeners: transport.NewListenerSet(),
		logger:    logger,
	}
}

// Connect dials addr (a ws:// or wss:// URL) and starts the packet pumps.
func (c *Client) Connect(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("ws: already connected")
	}

	conn, _, err := c.dialer.Dial(addr, nil)
	if err != nil {
		return fmt.Errorf("ws: dialing %s: %w", addr, err)
	}

	c.conn = conn
	c.send = make(chan []byte, sendQueueSize)
	c.done = make(chan struct{})
	c.closeOnce = &sync.Once{}

	go c.readLoop(conn, c.done, c.closeOnce)
	go c.writeLoop(conn, c.send, c.done)

	return nil
}

// Send encodes the packet and queues it for delivery to the server.
func (c *Client) Send(pkt protocol.Packet) error {
	c.mu.Lock()
	conn := c.conn
	send := c.send
	done := c.done
	c.mu.Unlock()

	if conn == nil {
		return transport.ErrConnectionClosed
	}

	data, err := protocol.Marshal(pkt)
	if err != nil {
		c.logger.Error().Err(err).Str("packet_kind", string(pkt.Kind())).Msg("Failed to encode outbound packet")
		return err
	}

	select {
	case <-done:
		return transport.ErrConnectionClosed
	case send <- data:
		return nil
	default:
		c.logger.Warn().Msg("Send queue full, dropping packet")
		return transport.ErrSendQueueFull
	}
}

// AddPacketListener subscribes to packets arriving from the server.
func (c *Client) AddPacketListener(fn transport.PacketListener) (remove func()) {
	return c.listeners.Add(fn)
}

// Close tears down the connection. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	once := c.closeOnce
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	once.Do(func() {
		close(done)
		conn.Close()
	})
	return nil
}

// readLoop reads frames, decodes them, and delivers packets to listeners.
// Pings from the server are answered by gorilla's default handler during reads.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}, once *sync.Once) {
	defer func() {
		once.Do(func() {
			close(done)
			conn.Close()
		})

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed while reading")
			}
			return
		}

		pkt, err := protocol.Unmarshal(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Server sent an undecodable frame")
			continue
		}

		c.listeners.Deliver(pkt)
	}
}

// writeLoop writes queued frames to the connection.
func (c *Client) writeLoop(conn *websocket.Conn, send chan []byte, done chan struct{}) {
	for {
		select {
		case data := <-send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error().Err(err).Msg("Error writing frame")
				return
			}

		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
