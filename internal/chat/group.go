/*
Package chat contains the core protocol logic of the chat server.

This file defines the Group type: a named set of sessions used purely as a
fan-out address list. Groups have no password and no capacity limit.
*/
package chat

import (
	"sync"

	"reefchat/internal/protocol"
)

// Group is a named fan-out set of sessions.
type Group struct {
	// name is the group ID.
	name string

	// mu guards members.
	mu sync.Mutex

	// members is the current membership set.
	members map[*Session]struct{}
}

// NewGroup creates an empty group with the given name.
func NewGroup(name string) *Group {
	return &Group{
		name:    name,
		members: make(map[*Session]struct{}),
	}
}

// Name returns the group's name.
func (g *Group) Name() string {
	return g.name
}

// AddMember adds a session to the group. It returns false when the session was
// already a member.
func (g *Group) AddMember(s *Session) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.members[s]; ok {
		return false
	}
	g.members[s] = struct{}{}
	return true
}

// RemoveMember removes a session from the group. It returns false when the
// session was not a member.
func (g *Group) RemoveMember(s *Session) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.members[s]; !ok {
		return false
	}
	delete(g.members, s)
	return true
}

// Size returns the member count.
func (g *Group) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.members)
}

// Members returns a point-in-time copy of the membership set, never a live
// view, so callers can iterate without racing concurrent add/remove.
func (g *Group) Members() []*Session {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]*Session, 0, len(g.members))
	for member := range g.members {
		out = append(out, member)
	}
	return out
}

// Broadcast delivers the packet to every member, skipping except when non-nil.
func (g *Group) Broadcast(pkt protocol.Packet, except *Session) {
	for _, member := range g.Members() {
		if member != except {
			member.deliver(pkt)
		}
	}
}
