/*
Package chat contains the core protocol logic of the chat server.

This file defines the GroupRegistry, which owns the map of all groups and
sweeps a session out of every group on disconnect.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"reefchat/internal/pkg/errs"
)

// GroupInfo is a point-in-time description of one group for the admin surface.
type GroupInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// GroupRegistry coordinates all groups of one running chat server.
type GroupRegistry struct {
	mu     sync.RWMutex
	groups map[string]*Group
	logger zerolog.Logger
}

// NewGroupRegistry creates an empty group registry.
func NewGroupRegistry(logger zerolog.Logger) *GroupRegistry {
	return &GroupRegistry{
		groups: make(map[string]*Group),
		logger: logger,
	}
}

// Create adds a new group with a unique, non-empty name.
func (gr *GroupRegistry) Create(name string) (*Group, *errs.CustomError) {
	if name == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	gr.mu.Lock()
	defer gr.mu.Unlock()

	if _, ok := gr.groups[name]; ok {
		return nil, errs.NewError(errs.ErrGroupNameExists)
	}

	group := NewGroup(name)
	gr.groups[name] = group

	gr.logger.Info().Str("group", name).Msg("Group created")
	return group, nil
}

// Lookup retrieves a group by name, or nil when absent.
func (gr *GroupRegistry) Lookup(name string) *Group {
	gr.mu.RLock()
	defer gr.mu.RUnlock()

	return gr.groups[name]
}

// Remove deletes the group. Membership needs no cascade; a group holds no
// back-references inside its sessions.
func (gr *GroupRegistry) Remove(name string) *errs.CustomError {
	gr.mu.Lock()
	defer gr.mu.Unlock()

	if _, ok := gr.groups[name]; !ok {
		return errs.NewError(errs.ErrGroupNotFound)
	}

	delete(gr.groups, name)
	gr.logger.Info().Str("group", name).Msg("Group removed")
	return nil
}

// RemoveFromAll removes the session from every group, as part of disconnect
// cleanup.
func (gr *GroupRegistry) RemoveFromAll(s *Session) {
	gr.mu.RLock()
	groups := make([]*Group, 0, len(gr.groups))
	for _, group := range gr.groups {
		groups = append(groups, group)
	}
	gr.mu.RUnlock()

	for _, group := range groups {
		group.RemoveMember(s)
	}
}

// List returns a snapshot description of every group.
func (gr *GroupRegistry) List() []GroupInfo {
	gr.mu.RLock()
	groups := make([]*Group, 0, len(gr.groups))
	for _, group := range gr.groups {
		groups = append(groups, group)
	}
	gr.mu.RUnlock()

	out := make([]GroupInfo, 0, len(groups))
	for _, group := range groups {
		out = append(out, GroupInfo{Name: group.Name(), Size: group.Size()})
	}
	return out
}
