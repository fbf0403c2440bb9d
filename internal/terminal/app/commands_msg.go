package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sablegrid/syndnet/internal/platform/timeouts"
	"github.com/sablegrid/syndnet/internal/terminal/domain"
	"github.com/sablegrid/syndnet/internal/terminal/eventlog"
	"github.com/sablegrid/syndnet/internal/terminal/session"
	"github.com/sablegrid/syndnet/internal/terminal/storage"
)

const msgHistoryLimit = 20

func (t *terminal) cmdSendMsg(ctx context.Context, conn *termConn, state session.State, args string) string {
	if args == "" {
		return "usage: sendmsg <message> | sendmsg <UID> <message>\n"
	}

	snap := t.refresh(ctx)

	// A message is private when its first token is a registered UID and
	// text remains after it. Everything else is a channel broadcast.
	first, rest, _ := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)
	if target, ok := snap.Users[first]; ok && rest != "" {
		return t.sendPrivate(ctx, conn, state, target, rest)
	}

	switch {
	case state.Role == domain.RoleSyndicate:
		body := fmt.Sprintf("[SYNDICATE BROADCAST] %s: %s\n", state.Callsign, args)
		t.hub.broadcastAll(outputFrame(body))
		t.recordMessage(ctx, state, domain.RecipientGlobal, "", args)
		t.events.Log(eventlog.KindMessageSent, actorDescriptor(state), "global broadcast")
		return ""
	case state.Squad == domain.SquadNone:
		return "you are not assigned to a squad channel. Use 'sendmsg <UID> <message>' for direct messages.\n"
	default:
		body := fmt.Sprintf("[%s] %s: %s\n", strings.ToUpper(string(state.Squad)), state.Callsign, args)
		t.hub.broadcast(squadRoom(state.Squad), outputFrame(body), "")
		t.recordMessage(ctx, state, domain.RecipientSquad, string(state.Squad), args)
		t.events.Log(eventlog.KindMessageSent, actorDescriptor(state), "squad broadcast to "+string(state.Squad))
		return ""
	}
}

func (t *terminal) sendPrivate(ctx context.Context, conn *termConn, state session.State, target domain.Identity, text string) string {
	connIDs := t.sessions.ConnectionsByUID(target.UID)
	if len(connIDs) == 0 {
		return fmt.Sprintf("%s is offline. Message not delivered.\n", target.Callsign)
	}

	body := fmt.Sprintf("[PRIVATE] %s: %s\n", state.Callsign, text)
	for _, connID := range connIDs {
		if connID == conn.id {
			continue
		}
		t.hub.sendTo(connID, outputFrame(body))
	}
	t.recordMessage(ctx, state, domain.RecipientPrivate, target.UID, text)
	t.events.Log(eventlog.KindMessageSent, actorDescriptor(state), "private message to UID:"+target.UID)
	return fmt.Sprintf("message delivered to %s.\n", target.Callsign)
}

// recordMessage appends the delivered message to the store. Delivery has
// already happened over live connections; a failed append only loses
// history, so it is logged and swallowed.
func (t *terminal) recordMessage(ctx context.Context, state session.State, recipientType, recipientID, body string) {
	msg := domain.Message{
		ID:             uuid.NewString(),
		SentAt:         time.Now(),
		SenderUID:      state.UID,
		SenderCallsign: state.Callsign,
		SenderSquad:    state.Squad,
		RecipientType:  recipientType,
		RecipientID:    recipientID,
		Body:           body,
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.StoreWrite)
	defer cancel()
	if err := t.store.AppendRow(writeCtx, storage.CollectionMessages, storage.MessageRow(msg)); err != nil {
		log.Printf("terminal: record message: %v", err)
	}
}

func (t *terminal) cmdMsgHistory(ctx context.Context, conn *termConn, state session.State, args string) string {
	if state.Squad == domain.SquadNone {
		return "you are not assigned to a squad channel.\n"
	}

	records, err := t.store.GetAllRecords(ctx, storage.CollectionMessages)
	if err != nil {
		log.Printf("terminal: load message history: %v", err)
		return "message history is unavailable right now.\n"
	}

	var messages []domain.Message
	for _, rec := range records {
		msg, err := storage.ParseMessage(rec)
		if err != nil {
			continue
		}
		if msg.RecipientType == domain.RecipientSquad && msg.RecipientID == string(state.Squad) {
			messages = append(messages, msg)
		}
	}
	if len(messages) == 0 {
		return "no messages in your squad channel yet.\n"
	}

	sort.Slice(messages, func(i, j int) bool { return messages[i].SentAt.Before(messages[j].SentAt) })
	if len(messages) > msgHistoryLimit {
		messages = messages[len(messages)-msgHistoryLimit:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- LAST %d MESSAGES [%s] ---\n", len(messages), strings.ToUpper(string(state.Squad)))
	for _, msg := range messages {
		fmt.Fprintf(&b, "%s %s: %s\n", msg.SentAt.UTC().Format("2006-01-02 15:04"), msg.SenderCallsign, msg.Body)
	}
	b.WriteString("------------------------------\n")
	return b.String()
}
