/*
Package chat contains the core protocol logic of the chat server.

This file defines the Session: the per-connection state machine. A session owns
one transport endpoint, moves from unregistered to registered exactly once, and
interprets inbound packets into registry operations. The transport delivers a
session's packets sequentially; the disconnect-cleanup path may run on any
goroutine, so each packet handler and cleanup serialize on one per-session
handling lock. A handler therefore always completes its registry mutation and
the matching session-state update as one unit before cleanup can observe them.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"reefchat/internal/protocol"
	"reefchat/internal/transport"
)

// Session is the server-side state bound to one client connection, called
// "User" in the protocol's domain vocabulary.
type Session struct {
	server *Server
	ep     transport.Endpoint
	logger zerolog.Logger

	// handleMu serializes packet handling against disconnect cleanup. Every
	// handler runs under it end to end, so a registry claim and the session
	// state recording it are atomic with respect to cleanup; cleanup sets
	// closed under it, after which handlers drop their packets.
	handleMu sync.Mutex
	closed   bool

	// mu guards name and joinedRooms for cheap reads from other goroutines
	// (room fan-out calling Name, registry cascades).
	mu sync.Mutex

	// name is empty until registration succeeds and is set at most once.
	name string

	// joinedRooms tracks the rooms this session is a member of, by name.
	joinedRooms map[string]*Room

	// unsubscribe removes the packet listener from the endpoint.
	unsubscribe func()
}

func newSession(server *Server, ep transport.Endpoint) *Session {
	s := &Session{
		server:      server,
		ep:          ep,
		joinedRooms: make(map[string]*Room),
		logger:      server.logger.With().Str("connection_id", ep.ID()).Logger(),
	}

	s.unsubscribe = ep.AddPacketListener(s.handlePacket)
	return s
}

// Name returns the registered display name, or "" while unregistered.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.name
}

// Endpoint returns the transport endpoint this session owns a reference to.
func (s *Session) Endpoint() transport.Endpoint {
	return s.ep
}

// deliver sends a packet to the session's peer. Send failures mean the peer is
// gone or slow; the failure is contained to this session and never unwinds the
// registry mutation that triggered the send.
func (s *Session) deliver(pkt protocol.Packet) {
	if err := s.ep.Send(pkt); err != nil {
		s.logger.Warn().Err(err).Str("packet_kind", string(pkt.Kind())).Msg("Failed to deliver packet")
	}
}

// handlePacket dispatches one inbound packet. The switch covers every variant
// of the closed packet set. The handling lock is held for the whole dispatch:
// a cleanup triggered mid-handler waits until the handler has finished, and a
// packet delivered after cleanup is dropped.
func (s *Session) handlePacket(pkt protocol.Packet) {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	if s.closed {
		s.logger.Debug().Str("packet_kind", string(pkt.Kind())).Msg("Dropping packet for closed session")
		return
	}

	switch p := pkt.(type) {
	case protocol.RegisterRequest:
		s.handleRegister(p)

	case protocol.RoomJoinRequest:
		s.handleRoomJoin(p)

	case protocol.MessagePacket:
		s.handleMessage(p)

	case protocol.Handshake, protocol.RegisterResponse, protocol.RoomJoinResponse,
		protocol.UserJoined, protocol.UserLeft:
		// server-to-client packets echoed back by a confused peer
		s.logger.Warn().Str("packet_kind", string(pkt.Kind())).Msg("Dropping packet not addressed to the server")

	default:
		s.logger.Warn().Str("packet_kind", string(pkt.Kind())).Msg("Dropping packet of unknown kind")
	}
}

// handleRegister runs the identity registration protocol. A repeated request
// with the session's current name succeeds again, so a client retrying after a
// lost response converges; a request for a different name is rejected.
func (s *Session) handleRegister(req protocol.RegisterRequest) {
	s.mu.Lock()
	current := s.name
	s.mu.Unlock()

	if current != "" {
		if req.Name == current {
			s.deliver(protocol.RegisterResponse{Succeeded: true})
			return
		}

		s.logger.Warn().Str("current_name", current).Str("requested_name", req.Name).
			Msg("Rejected re-registration under a different name")
		s.deliver(protocol.RegisterResponse{Succeeded: false, Reason: protocol.RejectIllegalUserName})
		return
	}

	reason := s.server.identity.Register(s, req.Name, req.Password)
	if reason != protocol.RegisterRejectNone {
		s.deliver(protocol.RegisterResponse{Succeeded: false, Reason: reason})
		return
	}

	s.mu.Lock()
	s.name = req.Name
	s.mu.Unlock()

	s.deliver(protocol.RegisterResponse{Succeeded: true})
}

// handleRoomJoin runs the room join protocol for registered sessions.
// Rejoining a room the session is already in is a no-op success.
func (s *Session) handleRoomJoin(req protocol.RoomJoinRequest) {
	s.mu.Lock()
	name := s.name
	_, alreadyIn := s.joinedRooms[req.RoomName]
	s.mu.Unlock()

	if name == "" {
		s.logger.Warn().Str("room", req.RoomName).Msg("Rejected room join from unregistered session")
		s.deliver(protocol.RoomJoinResponse{Succeeded: false, Reason: protocol.JoinRejectNotRegistered})
		return
	}

	if alreadyIn {
		s.deliver(protocol.RoomJoinResponse{Succeeded: true})
		return
	}

	room := s.server.rooms.Lookup(req.RoomName)
	if room == nil {
		s.deliver(protocol.RoomJoinResponse{Succeeded: false, Reason: protocol.JoinRejectDoesNotExist})
		return
	}

	reason := room.JoinWithPassword(s, req.Password)
	if reason != protocol.JoinRejectNone {
		s.deliver(protocol.RoomJoinResponse{Succeeded: false, Reason: reason})
		return
	}

	s.mu.Lock()
	s.joinedRooms[req.RoomName] = room
	s.mu.Unlock()

	s.deliver(protocol.RoomJoinResponse{Succeeded: true})
}

// handleMessage routes a message packet by its addressing mode. Delivery is
// best effort: a missing receiver drops the message silently.
func (s *Session) handleMessage(msg protocol.MessagePacket) {
	senderName := s.Name()
	if senderName == "" {
		s.logger.Warn().Msg("Dropping message from unregistered session")
		return
	}

	switch msg.Type {
	case protocol.MessageUserToRoom:
		room := s.server.rooms.Lookup(msg.ReceiverName)
		if room == nil {
			s.logger.Debug().Str("room", msg.ReceiverName).Msg("Dropping message to unknown room")
			return
		}

		out := msg
		out.SenderName = senderName

		except := s
		if s.server.opts.EchoToSender {
			except = nil
		}
		room.Broadcast(out, except)

	case protocol.MessageUserToUser:
		target := s.server.identity.Lookup(msg.ReceiverName)
		if target == nil {
			s.logger.Debug().Str("user", msg.ReceiverName).Msg("Dropping message to unknown user")
			return
		}

		out := msg
		out.SenderName = senderName
		target.deliver(out)

	case protocol.MessageRoomToUser, protocol.MessageRoomToRoom:
		// server-originated types; accepting them from a client would let it
		// spoof SenderName past the stamping above
		s.logger.Warn().Int("message_type", int(msg.Type)).Str("user_name", senderName).
			Msg("Dropping server-originated message type sent by client")

	default:
		s.logger.Warn().Int("message_type", int(msg.Type)).Msg("Dropping message of unknown type")
	}
}

// inRoom reports whether the session considers itself a member of the room.
func (s *Session) inRoom(roomName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.joinedRooms[roomName]
	return ok
}

// forgetRoom drops the session's record of a room, as part of room removal.
func (s *Session) forgetRoom(roomName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.joinedRooms, roomName)
}

// renameRoom moves the session's record of a room to its new name.
func (s *Session) renameRoom(oldName, newName string, room *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.joinedRooms[oldName]; ok {
		delete(s.joinedRooms, oldName)
		s.joinedRooms[newName] = room
	}
}

// cleanup runs when the session's connection goes away: stop listening,
// release the name, vacate every joined room (notifying the remaining
// members), and leave every group. After cleanup the name is reusable.
// It takes the handling lock first, so an in-flight handler finishes both its
// registry mutation and its session-state update before cleanup unwinds them.
// Idempotent.
func (s *Session) cleanup() {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	s.server.identity.Unregister(s)

	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.joinedRooms))
	for _, room := range s.joinedRooms {
		rooms = append(rooms, room)
	}
	s.joinedRooms = make(map[string]*Room)
	s.mu.Unlock()

	for _, room := range rooms {
		room.Leave(s, true)
	}

	s.server.groups.RemoveFromAll(s)

	s.logger.Info().Str("user_name", s.Name()).Msg("Session cleaned up")
}
