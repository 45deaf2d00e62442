/*
Package chat contains the core protocol logic of the chat server.

This file defines the Server: the lifecycle coordinator that binds a transport
to the identity, room, and group registries. A server either owns its
transport's listener (standalone mode) or rides a transport another component
opened (shared mode); the packet-level behavior is identical in both.
*/
package chat

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"reefchat/internal/protocol"
	"reefchat/internal/transport"
)

var (
	// ErrAlreadyOpen is returned by Open on a server that is already running.
	ErrAlreadyOpen = errors.New("chat server is already open")

	// ErrNotOpen is returned by operations that require a running server.
	ErrNotOpen = errors.New("chat server is not open")
)

// Options configures a chat server.
type Options struct {
	// ServerPassword, when non-empty, must accompany every register request.
	ServerPassword string

	// EchoToSender controls whether a user-to-room message is delivered back
	// to its sender. Off by default.
	EchoToSender bool

	Logger zerolog.Logger
}

// Server binds a transport to the chat registries and manages one session per
// connection.
type Server struct {
	tr   transport.Server
	opts Options

	// port is the listen port in standalone mode. Negative marks shared mode,
	// where the transport's listener belongs to someone else.
	port int

	logger zerolog.Logger

	identity *IdentityRegistry
	rooms    *RoomRegistry
	groups   *GroupRegistry

	// mu guards open, sessions, and removeListener.
	mu       sync.Mutex
	open     bool
	sessions map[string]*Session

	// removeListener detaches the server's connection listener from the
	// transport.
	removeListener func()
}

// NewServer creates a chat server in shared mode: the transport's lifecycle is
// managed by the caller, and Open only attaches the server's listeners.
func NewServer(tr transport.Server, opts Options) *Server {
	return newServer(tr, -1, opts)
}

// NewStandaloneServer creates a chat server that owns its transport: Open
// starts the transport's listener on the given port and Close stops it.
func NewStandaloneServer(tr transport.Server, port int, opts Options) *Server {
	return newServer(tr, port, opts)
}

func newServer(tr transport.Server, port int, opts Options) *Server {
	logger := opts.Logger.With().Str("component", "chat_server").Logger()

	return &Server{
		tr:       tr,
		opts:     opts,
		port:     port,
		logger:   logger,
		identity: NewIdentityRegistry(opts.ServerPassword, logger),
		rooms:    NewRoomRegistry(logger),
		groups:   NewGroupRegistry(logger),
		sessions: make(map[string]*Session),
	}
}

// Identity returns the server's identity registry.
func (srv *Server) Identity() *IdentityRegistry {
	return srv.identity
}

// Rooms returns the server's room registry.
func (srv *Server) Rooms() *RoomRegistry {
	return srv.rooms
}

// Groups returns the server's group registry.
func (srv *Server) Groups() *GroupRegistry {
	return srv.groups
}

// IsOpen reports whether the server is accepting sessions.
func (srv *Server) IsOpen() bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	return srv.open
}

// SessionCount returns the number of live sessions, registered or not.
func (srv *Server) SessionCount() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	return len(srv.sessions)
}

// Open starts accepting sessions. In standalone mode it opens the transport's
// listener first; in shared mode it assumes the transport is (or will be)
// opened by its owner and only attaches the server's connection listener.
func (srv *Server) Open() error {
	srv.mu.Lock()
	if srv.open {
		srv.mu.Unlock()
		return ErrAlreadyOpen
	}
	srv.open = true
	srv.mu.Unlock()

	if srv.port >= 0 {
		if err := srv.tr.Open(srv.port); err != nil {
			srv.mu.Lock()
			srv.open = false
			srv.mu.Unlock()
			return err
		}
	} else if !srv.tr.IsOpen() {
		srv.logger.Warn().Msg("Opened in shared mode over a transport that is not open yet")
	}

	remove := srv.tr.AddConnectionListener(transport.ConnectionListener{
		Connected:    srv.handleConnected,
		Disconnected: srv.handleDisconnected,
	})

	srv.mu.Lock()
	srv.removeListener = remove
	srv.mu.Unlock()

	srv.logger.Info().Bool("standalone", srv.port >= 0).Msg("Chat server opened")
	return nil
}

// Close stops accepting sessions and cleans every live session up. In
// standalone mode it also closes the transport. Closing a closed server
// returns ErrNotOpen.
func (srv *Server) Close() error {
	srv.mu.Lock()
	if !srv.open {
		srv.mu.Unlock()
		return ErrNotOpen
	}
	srv.open = false

	remove := srv.removeListener
	srv.removeListener = nil

	sessions := make([]*Session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		sessions = append(sessions, s)
	}
	srv.sessions = make(map[string]*Session)
	srv.mu.Unlock()

	// Detach first so in-flight disconnects no longer reach the server.
	if remove != nil {
		remove()
	}

	for _, s := range sessions {
		s.cleanup()
	}

	if srv.port >= 0 {
		if err := srv.tr.Close(); err != nil {
			return err
		}
	}

	srv.logger.Info().Int("sessions_closed", len(sessions)).Msg("Chat server closed")
	return nil
}

// SendToUser delivers a server-originated message to one registered user.
// It reports whether the user was found.
func (srv *Server) SendToUser(senderRoom, userName, body string) bool {
	target := srv.identity.Lookup(userName)
	if target == nil {
		return false
	}

	target.deliver(protocol.MessagePacket{
		Type:         protocol.MessageRoomToUser,
		SenderName:   senderRoom,
		ReceiverName: userName,
		Body:         body,
	})
	return true
}

// SendToRoom broadcasts a server-originated message to every member of a room.
// It reports whether the room was found.
func (srv *Server) SendToRoom(senderRoom, roomName, body string) bool {
	room := srv.rooms.Lookup(roomName)
	if room == nil {
		return false
	}

	room.Broadcast(protocol.MessagePacket{
		Type:         protocol.MessageRoomToRoom,
		SenderName:   senderRoom,
		ReceiverName: roomName,
		Body:         body,
	}, nil)
	return true
}

// handleConnected creates a session for the new endpoint and opens the
// conversation with a handshake carrying the server's protocol version.
func (srv *Server) handleConnected(ep transport.Endpoint) {
	s := newSession(srv, ep)

	srv.mu.Lock()
	if !srv.open {
		srv.mu.Unlock()
		s.cleanup()
		return
	}
	srv.sessions[ep.ID()] = s
	srv.mu.Unlock()

	srv.logger.Info().Str("connection_id", ep.ID()).Str("remote_addr", ep.RemoteAddr()).Msg("Session connected")

	if err := ep.Send(protocol.Handshake{Version: protocol.Version}); err != nil {
		srv.logger.Warn().Err(err).Str("connection_id", ep.ID()).Msg("Failed to send handshake")
	}
}

// handleDisconnected tears the endpoint's session down. The name becomes
// available again and every joined room sees a UserLeft event.
func (srv *Server) handleDisconnected(ep transport.Endpoint, reason int, detail string) {
	srv.mu.Lock()
	s, ok := srv.sessions[ep.ID()]
	if ok {
		delete(srv.sessions, ep.ID())
	}
	srv.mu.Unlock()

	if !ok {
		return
	}

	srv.logger.Info().Str("connection_id", ep.ID()).Int("reason", reason).Str("detail", detail).
		Msg("Session disconnected")
	s.cleanup()
}
