// Package storage defines the record store boundary the terminal core
// consumes. The store is a narrow row-level CRUD contract over named
// collections; callers treat read errors as empty results and write
// errors as generic failures, so an unreachable store degrades service
// instead of crashing it.
package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sablegrid/syndnet/internal/terminal/domain"
)

// Record is one row of a collection, keyed by column name.
type Record map[string]string

// RecordStore is the external record store adapter. Implementations are
// synchronous and report row-level success or failure only; there is no
// partial-field error reporting.
type RecordStore interface {
	GetAllRecords(ctx context.Context, collection string) ([]Record, error)
	AppendRow(ctx context.Context, collection string, values []string) error
	UpdateRowByKey(ctx context.Context, collection, keyColumn, keyValue string, updates map[string]string) error
	DeleteRowByKey(ctx context.Context, collection, keyColumn, keyValue string) error
}

// ErrUnknownCollection is returned for a collection name outside the
// fixed schema.
var ErrUnknownCollection = errors.New("unknown collection")

// Collection names.
const (
	CollectionUsers     = "users"
	CollectionContracts = "contracts"
	CollectionRequests  = "requests"
	CollectionMessages  = "messages"
	CollectionEvents    = "events"
)

// Key columns used by update and delete calls.
const (
	UserKeyColumn     = "uid"
	ContractKeyColumn = "id"
	RequestKeyColumn  = "id"
)

// Columns fixes the column order per collection. AppendRow values follow
// this order.
var Columns = map[string][]string{
	CollectionUsers:     {"uid", "access_key", "role", "callsign", "squad"},
	CollectionContracts: {"id", "title", "description", "reward", "status", "assignee"},
	CollectionRequests:  {"id", "client_uid", "client_callsign", "text", "status"},
	CollectionMessages:  {"id", "sent_at", "sender_uid", "sender_callsign", "sender_squad", "recipient_type", "recipient_id", "body"},
	CollectionEvents:    {"logged_at", "kind", "actor", "detail"},
}

// UserRow encodes an identity in the users column order.
func UserRow(id domain.Identity) []string {
	return []string{id.UID, id.AccessKey, string(id.Role), id.Callsign, string(id.Squad)}
}

// ParseUser decodes a users record. Records without a uid or with an
// unknown role are rejected so the cache can skip them.
func ParseUser(rec Record) (domain.Identity, error) {
	uid := strings.TrimSpace(rec["uid"])
	if uid == "" {
		return domain.Identity{}, errors.New("user record has no uid")
	}
	role, ok := domain.ParseRole(rec["role"])
	if !ok {
		return domain.Identity{}, errors.New("user record has an unknown role")
	}
	squad, ok := domain.ParseSquad(rec["squad"])
	if !ok {
		squad = domain.SquadNone
	}
	return domain.Identity{
		UID:       uid,
		AccessKey: rec["access_key"],
		Role:      role,
		Callsign:  rec["callsign"],
		Squad:     squad,
	}, nil
}

// ContractRow encodes a contract in the contracts column order.
func ContractRow(c domain.Contract) []string {
	assignee := c.Assignee
	if assignee == "" {
		assignee = domain.NoAssignee
	}
	return []string{
		strconv.Itoa(c.ID), c.Title, c.Description, c.Reward, string(c.Status), assignee,
	}
}

// ParseContract decodes a contracts record. Rows with a non-numeric id
// are rejected, mirroring how the cache skips malformed sheet rows.
func ParseContract(rec Record) (domain.Contract, error) {
	id, err := strconv.Atoi(strings.TrimSpace(rec["id"]))
	if err != nil {
		return domain.Contract{}, errors.New("contract record has a non-numeric id")
	}
	return domain.Contract{
		ID:          id,
		Title:       rec["title"],
		Description: rec["description"],
		Reward:      rec["reward"],
		Status:      domain.ContractStatus(strings.ToLower(strings.TrimSpace(rec["status"]))),
		Assignee:    rec["assignee"],
	}, nil
}

// RequestRow encodes a client request in the requests column order.
func RequestRow(r domain.ClientRequest) []string {
	return []string{
		strconv.Itoa(r.ID), r.ClientUID, r.ClientCallsign, r.Text, string(r.Status),
	}
}

// ParseRequest decodes a requests record.
func ParseRequest(rec Record) (domain.ClientRequest, error) {
	id, err := strconv.Atoi(strings.TrimSpace(rec["id"]))
	if err != nil {
		return domain.ClientRequest{}, errors.New("request record has a non-numeric id")
	}
	return domain.ClientRequest{
		ID:             id,
		ClientUID:      rec["client_uid"],
		ClientCallsign: rec["client_callsign"],
		Text:           rec["text"],
		Status:         domain.RequestStatus(strings.ToLower(strings.TrimSpace(rec["status"]))),
	}, nil
}

// MessageRow encodes a message in the messages column order.
func MessageRow(m domain.Message) []string {
	return []string{
		m.ID,
		m.SentAt.UTC().Format(time.RFC3339),
		m.SenderUID,
		m.SenderCallsign,
		string(m.SenderSquad),
		m.RecipientType,
		m.RecipientID,
		m.Body,
	}
}

// ParseMessage decodes a messages record. Rows with an unparseable
// timestamp are rejected.
func ParseMessage(rec Record) (domain.Message, error) {
	sentAt, err := time.Parse(time.RFC3339, strings.TrimSpace(rec["sent_at"]))
	if err != nil {
		return domain.Message{}, errors.New("message record has an invalid sent_at")
	}
	squad, ok := domain.ParseSquad(rec["sender_squad"])
	if !ok {
		squad = domain.SquadNone
	}
	return domain.Message{
		ID:             rec["id"],
		SentAt:         sentAt,
		SenderUID:      rec["sender_uid"],
		SenderCallsign: rec["sender_callsign"],
		SenderSquad:    squad,
		RecipientType:  rec["recipient_type"],
		RecipientID:    rec["recipient_id"],
		Body:           rec["body"],
	}, nil
}
