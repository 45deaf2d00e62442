/*
Package chat contains the core protocol logic of the chat server.

This file defines the RoomRegistry, which owns the map of all rooms. Creation,
removal, and renaming are administrative operations; they are never triggered
by remote packets.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"reefchat/internal/pkg/errs"
)

// RoomInfo is a point-in-time description of one room for the admin surface.
type RoomInfo struct {
	Name      string `json:"name"`
	Size      int    `json:"size"`
	MaxUsers  int    `json:"maxUsers"`
	Protected bool   `json:"protected"`
}

// RoomRegistry coordinates all rooms of one running chat server.
type RoomRegistry struct {
	// mu protects concurrent access to the rooms map.
	mu sync.RWMutex

	// rooms maps room name to Room.
	rooms map[string]*Room

	logger zerolog.Logger
}

// NewRoomRegistry creates an empty room registry.
func NewRoomRegistry(logger zerolog.Logger) *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]*Room),
		logger: logger,
	}
}

// Create adds a new room. The name must be non-empty and unique; maxUsers 0
// means unlimited and password "" means open.
func (rr *RoomRegistry) Create(name, password string, maxUsers int) (*Room, *errs.CustomError) {
	if name == "" {
		return nil, errs.NewError(errs.ErrRoomNameInvalid)
	}
	if maxUsers < 0 {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()

	if _, ok := rr.rooms[name]; ok {
		rr.logger.Warn().Str("room", name).Msg("Attempted to create existing room.")
		return nil, errs.NewError(errs.ErrRoomNameExists)
	}

	room := newRoom(name, password, maxUsers, rr.logger)
	rr.rooms[name] = room

	rr.logger.Info().Str("room", name).Int("max_users", maxUsers).Bool("protected", password != "").Msg("Room created")
	return room, nil
}

// Lookup retrieves a room by name, or nil when absent.
func (rr *RoomRegistry) Lookup(name string) *Room {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return rr.rooms[name]
}

// Remove deletes the room, cascading the removal to its members: every member
// session forgets the room first.
func (rr *RoomRegistry) Remove(name string) *errs.CustomError {
	rr.mu.Lock()
	room, ok := rr.rooms[name]
	if ok {
		delete(rr.rooms, name)
	}
	rr.mu.Unlock()

	if !ok {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	for _, member := range room.vacate() {
		member.forgetRoom(name)
	}

	rr.logger.Info().Str("room", name).Msg("Room removed")
	return nil
}

// Rename changes a room's key. The new name must be non-empty and unique.
// Member sessions track the room by name, so their records move with it.
func (rr *RoomRegistry) Rename(oldName, newName string) *errs.CustomError {
	if newName == "" {
		return errs.NewError(errs.ErrRoomNameInvalid)
	}

	rr.mu.Lock()
	room, ok := rr.rooms[oldName]
	if !ok {
		rr.mu.Unlock()
		return errs.NewError(errs.ErrRoomNotFound)
	}
	if _, taken := rr.rooms[newName]; taken {
		rr.mu.Unlock()
		return errs.NewError(errs.ErrRoomNameExists)
	}

	delete(rr.rooms, oldName)
	rr.rooms[newName] = room
	room.rename(newName)
	rr.mu.Unlock()

	for _, member := range room.Members() {
		member.renameRoom(oldName, newName, room)
	}

	rr.logger.Info().Str("old_name", oldName).Str("new_name", newName).Msg("Room renamed")
	return nil
}

// List returns a snapshot description of every room.
func (rr *RoomRegistry) List() []RoomInfo {
	rr.mu.RLock()
	rooms := make([]*Room, 0, len(rr.rooms))
	for _, room := range rr.rooms {
		rooms = append(rooms, room)
	}
	rr.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, RoomInfo{
			Name:      room.Name(),
			Size:      room.Size(),
			MaxUsers:  room.MaxUsers(),
			Protected: room.Protected(),
		})
	}
	return out
}
