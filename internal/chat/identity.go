/*
Package chat contains the core protocol logic of the chat server: the identity,
room, and group registries, the per-connection session state machine, and the
server lifecycle that ties them to a transport.

This file defines the IdentityRegistry, the single source of truth mapping
registered display names to live sessions. All name mutation is serialized
through one mutex so two concurrent registrations can never both claim the same
name.
*/
package chat

import (
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"reefchat/internal/protocol"
)

// namePattern is the accepted-name grammar: letters, digits, underscore,
// hyphen, and dot; at least one character.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// IdentityRegistry tracks the display names of currently connected sessions and
// enforces their uniqueness and validity.
type IdentityRegistry struct {
	// serverPassword gates registration when non-empty. Checked before the
	// uniqueness check.
	serverPassword string

	// mu guards names. Every register/unregister/lookup runs under it.
	mu sync.Mutex

	// names maps a registered display name to its session.
	names map[string]*Session

	logger zerolog.Logger
}

// NewIdentityRegistry creates an empty identity registry. An empty
// serverPassword means registration is open.
func NewIdentityRegistry(serverPassword string, logger zerolog.Logger) *IdentityRegistry {
	return &IdentityRegistry{
		serverPassword: serverPassword,
		names:          make(map[string]*Session),
		logger:         logger,
	}
}

// Register attempts to associate name with the session. It returns
// RegisterRejectNone on success; any other value is the rejection reason for
// the response packet. The grammar check runs first, then the server password,
// then the uniqueness check-and-claim as one atomic step.
func (r *IdentityRegistry) Register(s *Session, name, password string) protocol.RegisterReject {
	if !namePattern.MatchString(name) {
		return protocol.RejectIllegalUserName
	}

	if r.serverPassword != "" && password != r.serverPassword {
		return protocol.RejectWrongPassword
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.names[name]; taken {
		return protocol.RejectUserNameAlreadyInUse
	}

	r.names[name] = s

	r.logger.Info().Str("user_name", name).Int("registered_users", len(r.names)).Msg("User registered")
	return protocol.RegisterRejectNone
}

// Unregister removes the session's name mapping if present. It is a no-op for
// unregistered sessions and idempotent, and must run before the session is
// discarded so the name becomes reusable immediately.
func (r *IdentityRegistry) Unregister(s *Session) {
	name := s.Name()
	if name == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.names[name]; ok && current == s {
		delete(r.names, name)
		r.logger.Info().Str("user_name", name).Int("registered_users", len(r.names)).Msg("User unregistered")
	}
}

// Lookup returns the session registered under name, or nil.
func (r *IdentityRegistry) Lookup(name string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.names[name]
}

// Count returns the number of registered sessions.
func (r *IdentityRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.names)
}
