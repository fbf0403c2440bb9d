// Package eventlog records terminal events to the console and the record
// store. Logging is fire-and-forget: it never blocks a command and a
// failed store append is swallowed.
package eventlog

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/sablegrid/syndnet/internal/platform/timeouts"
	"github.com/sablegrid/syndnet/internal/terminal/storage"
)

// Event kinds written by the terminal.
const (
	KindConnection      = "connection"
	KindDisconnection   = "disconnection"
	KindLoginSuccess    = "login_success"
	KindLoginFailure    = "login_failure"
	KindLogout          = "logout"
	KindCommandInput    = "command_input"
	KindMessageSent     = "message_sent"
	KindAction          = "action"
	KindCommanderAction = "commander_action"
	KindClientAction    = "client_action"
	KindSyndicateAction = "syndicate_action"
)

// Sink receives terminal events.
type Sink interface {
	Log(kind, actor, detail string)
}

// StoreSink writes events to the console synchronously and appends them
// to the events collection in the background.
type StoreSink struct {
	store storage.RecordStore
}

// NewStoreSink wraps a record store. A nil store logs to the console only.
func NewStoreSink(store storage.RecordStore) *StoreSink {
	return &StoreSink{store: store}
}

// Log emits one event. The store append runs on its own goroutine with a
// bounded timeout; its error is dropped after a console note.
func (s *StoreSink) Log(kind, actor, detail string) {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	timestamp := time.Now().UTC().Format(time.DateTime)
	log.Printf("terminal: [%s] [%s] %s", kind, actor, detail)

	if s == nil || s.store == nil {
		return
	}
	row := []string{timestamp, kind, actor, detail}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.StoreWrite)
		defer cancel()
		if err := s.store.AppendRow(ctx, storage.CollectionEvents, row); err != nil {
			log.Printf("terminal: event append dropped: %v", err)
		}
	}()
}
