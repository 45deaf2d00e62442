/*
Package chat contains the core protocol logic of the chat server.

This file defines the Room type: a named, optionally password-protected,
optionally capacity-limited set of sessions. The join protocol's
check-then-mutate-then-notify sequence runs as one critical section per room,
so concurrent joiners can neither jointly exceed the capacity nor observe a
torn membership set, and every join's notification is ordered after its own
membership mutation.
*/
package chat

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"reefchat/internal/protocol"
)

// Room is a named set of sessions that receive room-addressed traffic together.
type Room struct {
	// mu guards name, password, maxUsers, and members. Critical sections are
	// short and never perform blocking I/O; sends inside them only enqueue.
	mu sync.Mutex

	// name is the room's unique key in the registry.
	name string

	// password controls entry. Empty means the room is open.
	password string

	// maxUsers limits membership. 0 means unlimited.
	maxUsers int

	// members is the current membership set.
	members map[*Session]struct{}

	logger zerolog.Logger
}

func newRoom(name, password string, maxUsers int, logger zerolog.Logger) *Room {
	return &Room{
		name:     name,
		password: password,
		maxUsers: maxUsers,
		members:  make(map[*Session]struct{}),
		logger:   logger.With().Str("room", name).Logger(),
	}
}

// Name returns the room's current name.
func (r *Room) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.name
}

// Protected reports whether entry requires a password.
func (r *Room) Protected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.password != ""
}

// MaxUsers returns the capacity limit, 0 meaning unlimited.
func (r *Room) MaxUsers() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.maxUsers
}

// SetMaxUsers changes the capacity limit. It does not evict members of a room
// already above the new limit; the limit applies to subsequent joins.
func (r *Room) SetMaxUsers(maxUsers int) error {
	if maxUsers < 0 {
		return fmt.Errorf("max users must be >= 0, got %d", maxUsers)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.maxUsers = maxUsers
	return nil
}

// SetPassword changes the entry password. Empty removes the protection.
func (r *Room) SetPassword(password string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.password = password
}

// Size returns the current member count.
func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.members)
}

// Members returns a point-in-time copy of the membership set.
func (r *Room) Members() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.members))
	for member := range r.members {
		out = append(out, member)
	}
	return out
}

// Contains reports whether the session is currently a member.
func (r *Room) Contains(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.members[s]
	return ok
}

// Join runs the password and capacity checks and, when they pass, adds the
// session to the membership set and notifies every pre-existing member with a
// UserJoined event. The joining session is never notified about itself.
// Joining a room the session is already in succeeds without any side effect.
func (r *Room) Join(s *Session) protocol.JoinReject {
	return r.JoinWithPassword(s, "")
}

// JoinWithPassword is Join with the password supplied by the join request.
func (r *Room) JoinWithPassword(s *Session, password string) protocol.JoinReject {
	joinerName := s.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[s]; ok {
		return protocol.JoinRejectNone
	}

	if r.password != "" {
		if password == "" {
			return protocol.JoinRejectPasswordNeeded
		}
		if password != r.password {
			return protocol.JoinRejectWrongPassword
		}
	}

	if r.maxUsers != 0 && len(r.members) >= r.maxUsers {
		return protocol.JoinRejectRoomFull
	}

	r.members[s] = struct{}{}

	event := protocol.UserJoined{RoomName: r.name, UserName: joinerName}
	for member := range r.members {
		if member != s {
			member.deliver(event)
		}
	}

	r.logger.Info().Str("user_name", joinerName).Int("room_size", len(r.members)).Msg("User joined room")
	return protocol.JoinRejectNone
}

// Leave removes the session from the membership set, reporting whether it was
// a member. With notify set, the remaining members receive a UserLeft event
// inside the same critical section.
func (r *Room) Leave(s *Session, notify bool) bool {
	leaverName := s.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[s]; !ok {
		return false
	}

	delete(r.members, s)

	if notify {
		event := protocol.UserLeft{RoomName: r.name, UserName: leaverName}
		for member := range r.members {
			member.deliver(event)
		}
	}

	r.logger.Info().Str("user_name", leaverName).Int("room_size", len(r.members)).Msg("User left room")
	return true
}

// Broadcast delivers the packet to every member, skipping except when non-nil.
// Delivery runs inside the room's critical section so it cannot interleave
// with a concurrent join's or leave's own notification.
func (r *Room) Broadcast(pkt protocol.Packet, except *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for member := range r.members {
		if member != except {
			member.deliver(pkt)
		}
	}
}

// vacate clears the membership set and returns the sessions that were members.
// Used by the registry when a room is removed.
func (r *Room) vacate() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.members))
	for member := range r.members {
		out = append(out, member)
	}
	r.members = make(map[*Session]struct{})
	return out
}

// rename is called by the registry, which enforces uniqueness of the new name.
func (r *Room) rename(newName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.name = newName
}
