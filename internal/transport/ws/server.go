/*
Package ws implements the transport contract over WebSocket connections using
gorilla/websocket.

This file defines the Server: connection acceptance (either through its own
HTTP listener or through an externally managed router mounting Handler), the
endpoint registry, and connect/disconnect event fan-out.
*/
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"reefchat/internal/pkg/randx"
	"reefchat/internal/transport"
)

// shutdownTimeout bounds the graceful shutdown of the built-in HTTP listener.
const shutdownTimeout = 5 * time.Second

// Options configures a WebSocket transport server.
type Options struct {
	// AllowedOrigins lists the Origin header values accepted during upgrade.
	// Ignored in development mode, where every origin is accepted.
	AllowedOrigins []string

	// Development disables origin checking.
	Development bool

	// Logger is the diagnostics sink for the transport and its endpoints.
	Logger zerolog.Logger
}

// Server accepts WebSocket connections and exposes them as transport endpoints.
type Server struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu            sync.RWMutex
	open          bool
	endpoints     map[string]*endpoint
	connListeners map[int]transport.ConnectionListener
	nextListener  int

	// httpServer is set only when Open started its own listener.
	httpServer *http.Server
}

// NewServer creates a WebSocket transport server. It accepts nothing until
// Open is called.
func NewServer(opts Options) *Server {
	allowedOrigins := make(map[string]struct{})
	for _, origin := range opts.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	logger := opts.Logger

	s := &Server{
		logger:        logger,
		endpoints:     make(map[string]*endpoint),
		connListeners: make(map[int]transport.ConnectionListener),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if opts.Development {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logger.Warn().Str("origin", origin).Msg("WebSocket connection rejected: Origin not allowed.")
			return false
		},
	}

	return s
}

// Open starts accepting connections. With a positive port the server runs its
// own HTTP listener with Handler mounted at /ws. Port 0 means the HTTP side is
// managed externally and the caller mounts Handler on its own router.
func (s *Server) Open(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return fmt.Errorf("ws: server already open")
	}

	if port > 0 {
		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Get("/ws", s.Handler())

		s.httpServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			s.logger.Info().Int("port", port).Msg("WebSocket transport listening")
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error().Err(err).Msg("WebSocket transport listener failed")
			}
		}()
	}

	s.open = true
	return nil
}

// Close stops accepting and tears down all live endpoints.
func (s *Server) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return fmt.Errorf("ws: server not open")
	}
	s.open = false
	httpServer := s.httpServer
	s.httpServer = nil
	live := make([]*endpoint, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		live = append(live, ep)
	}
	s.mu.Unlock()

	for _, ep := range live {
		ep.shutdown()
	}

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("ws: shutting down listener: %w", err)
		}
	}

	return nil
}

// IsOpen reports whether the server is accepting connections.
func (s *Server) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.open
}

// AddConnectionListener subscribes to connect/disconnect events.
func (s *Server) AddConnectionListener(l transport.ConnectionListener) (remove func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.connListeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.connListeners, id)
		s.mu.Unlock()
	}
}

// Handler returns the HTTP handler that upgrades requests to WebSocket
// connections and runs each connection's pumps. The handler goroutine becomes
// the connection's read pump, so packets of one endpoint arrive sequentially.
func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.IsOpen() {
			http.Error(w, "server closed", http.StatusServiceUnavailable)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		id := randx.ConnectionID()

		ep := &endpoint{
			id:         id,
			remoteAddr: r.RemoteAddr,
			srv:        s,
			conn:       conn,
			listeners:  transport.NewListenerSet(),
			send:       make(chan []byte, sendQueueSize),
			done:       make(chan struct{}),
			logger:     s.logger.With().Str("connection_id", id).Str("remote_addr", r.RemoteAddr).Logger(),
		}

		s.mu.Lock()
		if !s.open {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.endpoints[id] = ep
		s.mu.Unlock()

		ep.logger.Info().Msg("WebSocket connection established")

		go ep.writePump()

		for _, l := range s.connectionListeners() {
			if l.Connected != nil {
				l.Connected(ep)
			}
		}

		ep.readPump()
	}
}

func (s *Server) connectionListeners() []transport.ConnectionListener {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]transport.ConnectionListener, 0, len(s.connListeners))
	for _, l := range s.connListeners {
		out = append(out, l)
	}
	return out
}

// detach removes an endpoint from the registry and fires the disconnect
// listeners, exactly once per endpoint.
func (s *Server) detach(ep *endpoint, reason int, reasonText string) {
	s.mu.Lock()
	_, present := s.endpoints[ep.id]
	delete(s.endpoints, ep.id)
	s.mu.Unlock()

	if !present {
		return
	}

	ep.logger.Info().Int("reason", reason).Str("reason_text", reasonText).Msg("WebSocket connection closed")

	for _, l := range s.connectionListeners() {
		if l.Disconnected != nil {
			l.Disconnected(ep, reason, reasonText)
		}
	}
}
