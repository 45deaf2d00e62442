/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (the admin
API and the WebSocket endpoint).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"reefchat/internal/pkg/limiter"
	"reefchat/internal/pkg/logx"
	"reefchat/internal/pkg/resp"
)

const (
	CreateRate  = 0.05
	CreateBurst = 2
	JoinRate    = 0.2
	JoinBurst   = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and
// per-route middleware. The WebSocket endpoint is served by the transport's own
// upgrade handler; everything under /api administers the chat registries.
func Router(deps *AppDeps) http.Handler {
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logx.Info("Health check endpoint hit")

		data := map[string]any{
			"status":   "ok",
			"service":  "Reef Chat Server",
			"sessions": deps.ChatServer.SessionCount(),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/rooms", func(rooms chi.Router) {
			rateLimitedCreate := createLimiter.Middleware(HandleCreateRoom(deps))
			rooms.Post("/", http.HandlerFunc(rateLimitedCreate.ServeHTTP))
			rooms.Get("/", HandleListRooms(deps))
			rooms.Delete("/{name}", HandleRemoveRoom(deps))
			rooms.Post("/{name}/rename", HandleRenameRoom(deps))
		})

		api.Route("/groups", func(groups chi.Router) {
			groups.Post("/", HandleCreateGroup(deps))
			groups.Get("/", HandleListGroups(deps))
			groups.Delete("/{name}", HandleRemoveGroup(deps))
		})
	})

	rateLimitedWS := joinLimiter.Middleware(deps.Transport.Handler())
	r.Get("/ws", http.HandlerFunc(rateLimitedWS.ServeHTTP))

	return r
}
