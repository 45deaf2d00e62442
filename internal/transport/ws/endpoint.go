/*
Package ws implements the transport contract over WebSocket connections using
gorilla/websocket.

This file defines the server-side endpoint: one accepted connection with its
read and write pumps, heartbeat handling, and outbound send queue.
*/
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"reefchat/internal/protocol"
	"reefchat/internal/transport"
)

const (
	// timeout for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time to wait for a Pong message from the peer.
	pongWait = 60 * time.Second

	// frequency at which Ping messages are sent.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of an inbound frame.
	maxMessageSize = 8192

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// endpoint represents one accepted WebSocket connection.
type endpoint struct {
	id         string
	remoteAddr string
	srv        *Server
	conn       *websocket.Conn
	listeners  *transport.ListenerSet

	// send queues encoded frames for the write pump.
	send chan []byte

	// done is closed exactly once when the endpoint shuts down.
	done      chan struct{}
	closeOnce sync.Once

	logger zerolog.Logger
}

func (ep *endpoint) ID() string         { return ep.id }
func (ep *endpoint) RemoteAddr() string { return ep.remoteAddr }

// Send encodes the packet and queues it for the write pump. It never blocks:
// a saturated queue drops the packet and reports ErrSendQueueFull.
func (ep *endpoint) Send(pkt protocol.Packet) error {
	data, err := protocol.Marshal(pkt)
	if err != nil {
		ep.logger.Error().Err(err).Str("packet_kind", string(pkt.Kind())).Msg("Failed to encode outbound packet")
		return err
	}

	select {
	case <-ep.done:
		return transport.ErrConnectionClosed
	default:
	}

	select {
	case ep.send <- data:
		return nil
	default:
		ep.logger.Warn().Int("queue_len", len(ep.send)).Msg("Send queue full, dropping packet")
		return transport.ErrSendQueueFull
	}
}

func (ep *endpoint) AddPacketListener(fn transport.PacketListener) (remove func()) {
	return ep.listeners.Add(fn)
}

// Close tears down the connection. Idempotent; the read pump's exit path
// performs the detach notification.
func (ep *endpoint) Close() error {
	ep.shutdown()
	return nil
}

func (ep *endpoint) shutdown() {
	ep.closeOnce.Do(func() {
		close(ep.done)

		if err := ep.conn.Close(); err != nil {
			ep.logger.Debug().Err(err).Msg("Connection close error")
		}
	})
}

// readPump reads frames from the connection, decodes them, and delivers the
// packets to the registered listeners. It owns the connection's read side and
// runs on the goroutine that accepted the connection.
func (ep *endpoint) readPump() {
	reason := transport.ReasonClosedByPeer
	reasonText := "connection closed by peer"

	defer func() {
		ep.shutdown()
		ep.srv.detach(ep, reason, reasonText)
	}()

	ep.conn.SetReadLimit(maxMessageSize)

	if err := ep.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		ep.logger.Error().Err(err).Msg("Failed to set read deadline")
		reason = transport.ReasonNetworkError
		reasonText = err.Error()
		return
	}

	ep.conn.SetPongHandler(func(string) error {
		return ep.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ep.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				reason = transport.ReasonNetworkError
				reasonText = err.Error()
				ep.logger.Info().Err(err).Msg("Error reading frame")
			}
			return
		}

		pkt, err := protocol.Unmarshal(data)
		if err != nil {
			ep.logger.Warn().Err(err).Msg("Peer sent an undecodable frame")
			continue
		}

		ep.listeners.Deliver(pkt)
	}
}

// writePump writes queued frames and periodic pings to the connection.
func (ep *endpoint) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		ep.shutdown()
	}()

	for {
		select {
		case data := <-ep.send:
			if err := ep.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				ep.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if err := ep.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				ep.logger.Error().Err(err).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			if err := ep.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				ep.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := ep.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ep.logger.Error().Err(err).Msg("Error writing ping")
				return
			}

		case <-ep.done:
			if err := ep.conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
				ep.conn.WriteMessage(websocket.CloseMessage, []byte{})
			}
			return
		}
	}
}
