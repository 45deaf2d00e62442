/*
Package handler provides HTTP handler functions for administering rooms.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"reefchat/internal/pkg/req"
	"reefchat/internal/pkg/resp"
)

type CreateRoomInput struct {
	Name string `json:"name"`
	// Password protects entry when non-empty.
	Password string `json:"password,omitempty"`
	// MaxUsers limits membership; 0 means unlimited.
	MaxUsers int `json:"maxUsers,omitempty"`
}

// HandleCreateRoom creates an HTTP HandlerFunc to process room creation requests.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateRoomInput

		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		room, createErr := deps.ChatServer.Rooms().Create(input.Name, input.Password, input.MaxUsers)
		if createErr != nil {
			resp.RespondError(w, r, createErr)
			return
		}

		data := map[string]any{
			"name":      room.Name(),
			"maxUsers":  room.MaxUsers(),
			"protected": room.Protected(),
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleListRooms returns the current rooms with their occupancy.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"rooms": deps.ChatServer.Rooms().List(),
		})
	}
}

// HandleRemoveRoom deletes a room, vacating its members.
func HandleRemoveRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		if removeErr := deps.ChatServer.Rooms().Remove(name); removeErr != nil {
			resp.RespondError(w, r, removeErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"name": name})
	}
}

type RenameRoomInput struct {
	NewName string `json:"newName"`
}

// HandleRenameRoom changes a room's name, carrying its members along.
func HandleRenameRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		var input RenameRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if renameErr := deps.ChatServer.Rooms().Rename(name, input.NewName); renameErr != nil {
			resp.RespondError(w, r, renameErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"oldName": name,
			"newName": input.NewName,
		})
	}
}
