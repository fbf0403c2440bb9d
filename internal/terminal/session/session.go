// Package session tracks the identity bound to each live connection.
package session

import (
	"fmt"
	"sync"

	"github.com/sablegrid/syndnet/internal/terminal/domain"
)

// State is the connection-scoped binding to an identity, or the guest
// default when unbound. A session's role always equals its bound
// identity's role.
type State struct {
	UID      string
	Callsign string
	Role     domain.Role
	Squad    domain.Squad
}

func guestState() State {
	return State{Role: domain.RoleGuest, Squad: domain.SquadNone}
}

// Anonymous reports whether the session is unbound.
func (s State) Anonymous() bool {
	return s.UID == ""
}

// Store owns one session entry per live connection.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]State
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]State)}
}

// Add registers a new connection with the guest default.
func (s *Store) Add(connID string) {
	s.mu.Lock()
	s.sessions[connID] = guestState()
	s.mu.Unlock()
}

// Bind associates a connection with an identity, overwriting any prior
// binding. Identities with an unknown or guest role are rejected and the
// connection keeps its current state.
func (s *Store) Bind(connID string, identity domain.Identity) error {
	switch identity.Role {
	case domain.RoleOperative, domain.RoleCommander, domain.RoleClient, domain.RoleSyndicate:
	default:
		return fmt.Errorf("cannot bind identity with role %q", identity.Role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[connID]; !ok {
		return fmt.Errorf("unknown connection %q", connID)
	}
	s.sessions[connID] = State{
		UID:      identity.UID,
		Callsign: identity.Callsign,
		Role:     identity.Role,
		Squad:    identity.Squad,
	}
	return nil
}

// Unbind resets a connection to the guest default.
func (s *Store) Unbind(connID string) {
	s.mu.Lock()
	if _, ok := s.sessions[connID]; ok {
		s.sessions[connID] = guestState()
	}
	s.mu.Unlock()
}

// Remove drops a connection's session entry entirely.
func (s *Store) Remove(connID string) {
	s.mu.Lock()
	delete(s.sessions, connID)
	s.mu.Unlock()
}

// Get returns the session for a connection.
func (s *Store) Get(connID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[connID]
	return state, ok
}

// ConnectionsByUID lists the connections currently bound to a uid, for
// private delivery and notifications. It reflects the most recent bind
// and unbind calls.
func (s *Store) ConnectionsByUID(uid string) []string {
	if uid == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conns []string
	for connID, state := range s.sessions {
		if state.UID == uid {
			conns = append(conns, connID)
		}
	}
	return conns
}
