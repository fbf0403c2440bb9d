// Package domain defines the identity, contract, request and message types
// shared by the terminal's cache, storage and command layers.
package domain

import (
	"strings"
	"time"
)

// Role classifies what a connected user may do. Guest is the unbound
// default for every new connection.
type Role string

const (
	RoleGuest     Role = "guest"
	RoleOperative Role = "operative"
	RoleCommander Role = "commander"
	RoleClient    Role = "client"
	RoleSyndicate Role = "syndicate"
)

// ParseRole maps a stored role string onto a known Role.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleGuest:
		return RoleGuest, true
	case RoleOperative:
		return RoleOperative, true
	case RoleCommander:
		return RoleCommander, true
	case RoleClient:
		return RoleClient, true
	case RoleSyndicate:
		return RoleSyndicate, true
	}
	return "", false
}

// Squad names the sub-group an operative or commander belongs to.
type Squad string

const (
	SquadAlpha Squad = "alpha"
	SquadBeta  Squad = "beta"
	SquadNone  Squad = "none"
)

// ParseSquad maps a stored squad string onto a known Squad. Empty input
// and any spelling of "none" both resolve to SquadNone.
func ParseSquad(value string) (Squad, bool) {
	switch Squad(strings.ToLower(strings.TrimSpace(value))) {
	case SquadAlpha:
		return SquadAlpha, true
	case SquadBeta:
		return SquadBeta, true
	case SquadNone, "":
		return SquadNone, true
	}
	return "", false
}

// ContractStatus tracks a contract through its lifecycle. Contracts are
// never deleted, only transitioned.
type ContractStatus string

const (
	ContractActive    ContractStatus = "active"
	ContractAssigned  ContractStatus = "assigned"
	ContractFailed    ContractStatus = "failed"
	ContractCompleted ContractStatus = "completed"
)

// Terminal reports whether the status ends the contract's working life.
func (s ContractStatus) Terminal() bool {
	return s == ContractFailed || s == ContractCompleted
}

// RequestStatus tracks a client request. Accepted and declined are
// terminal.
type RequestStatus string

const (
	RequestNew      RequestStatus = "new"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// Terminal reports whether the request has already been processed.
func (s RequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestDeclined
}

// NoAssignee marks a contract that has not been handed to anyone.
const NoAssignee = "none"

// Identity is a registered, credentialed user record, distinct from a
// live connection.
type Identity struct {
	UID       string
	AccessKey string
	Role      Role
	Callsign  string
	Squad     Squad
}

// Contract is a unit of work offered by the syndicate.
type Contract struct {
	ID          int
	Title       string
	Description string
	Reward      string
	Status      ContractStatus
	Assignee    string
}

// Unassigned reports whether the contract has no assignee.
func (c Contract) Unassigned() bool {
	assignee := strings.ToLower(strings.TrimSpace(c.Assignee))
	return assignee == "" || assignee == NoAssignee
}

// AssigneeSquads interprets the assignee field as a comma-separated squad
// list. It returns nil when the assignee is a callsign or empty.
func (c Contract) AssigneeSquads() []Squad {
	if c.Unassigned() {
		return nil
	}
	var squads []Squad
	for _, part := range strings.Split(c.Assignee, ",") {
		switch Squad(strings.ToLower(strings.TrimSpace(part))) {
		case SquadAlpha:
			squads = append(squads, SquadAlpha)
		case SquadBeta:
			squads = append(squads, SquadBeta)
		default:
			return nil
		}
	}
	return squads
}

// AssignedToSquad reports whether the contract is assigned squad-wide to
// the given squad.
func (c Contract) AssignedToSquad(squad Squad) bool {
	for _, s := range c.AssigneeSquads() {
		if s == squad {
			return true
		}
	}
	return false
}

// ClientRequest is a client's ask for a new contract.
type ClientRequest struct {
	ID             int
	ClientUID      string
	ClientCallsign string
	Text           string
	Status         RequestStatus
}

// Message recipient scopes.
const (
	RecipientPrivate = "private"
	RecipientSquad   = "squad"
	RecipientGlobal  = "global"
)

// Message is one delivered terminal message.
type Message struct {
	ID             string
	SentAt         time.Time
	SenderUID      string
	SenderCallsign string
	SenderSquad    Squad
	RecipientType  string
	RecipientID    string
	Body           string
}
