/*
Package handler provides HTTP handler functions for administering groups.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"reefchat/internal/pkg/req"
	"reefchat/internal/pkg/resp"
)

type CreateGroupInput struct {
	Name string `json:"name"`
}

// HandleCreateGroup creates an HTTP HandlerFunc to process group creation requests.
func HandleCreateGroup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateGroupInput

		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		group, createErr := deps.ChatServer.Groups().Create(input.Name)
		if createErr != nil {
			resp.RespondError(w, r, createErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"name": group.Name()})
	}
}

// HandleListGroups returns the current groups with their sizes.
func HandleListGroups(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"groups": deps.ChatServer.Groups().List(),
		})
	}
}

// HandleRemoveGroup deletes a group.
func HandleRemoveGroup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		if removeErr := deps.ChatServer.Groups().Remove(name); removeErr != nil {
			resp.RespondError(w, r, removeErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"name": name})
	}
}
