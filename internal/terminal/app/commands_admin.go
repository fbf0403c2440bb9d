package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/sablegrid/syndnet/internal/terminal/cache"
	"github.com/sablegrid/syndnet/internal/terminal/domain"
	"github.com/sablegrid/syndnet/internal/terminal/eventlog"
	"github.com/sablegrid/syndnet/internal/terminal/session"
	"github.com/sablegrid/syndnet/internal/terminal/storage"
)

func (t *terminal) cmdRegisterUser(ctx context.Context, conn *termConn, state session.State, args string) string {
	fields := splitFields(args, 4)
	if len(fields) != 4 {
		return "usage: register_user <access key> <UID> <callsign> <squad|none>\n"
	}
	key, uid, callsign := fields[0], fields[1], fields[2]

	role, known := t.keys.RoleForKey(key)
	if !known {
		return "unknown access key. Use 'viewkeys' to list the issued key sets.\n"
	}
	squad, ok := domain.ParseSquad(fields[3])
	if !ok {
		return fmt.Sprintf("unknown squad %q. Use alpha, beta or none.\n", fields[3])
	}

	switch role {
	case domain.RoleOperative, domain.RoleCommander:
		if squad == domain.SquadNone {
			return fmt.Sprintf("%s registration requires a squad (alpha or beta).\n", role)
		}
	default:
		if squad != domain.SquadNone {
			return fmt.Sprintf("%s registration does not take a squad. Use none.\n", role)
		}
	}

	snap := t.refresh(ctx)
	if _, exists := snap.Users[uid]; exists {
		return fmt.Sprintf("UID %q is already registered.\n", uid)
	}
	if snap.KeyInUse(key) {
		return "that access key is already bound to a registered user.\n"
	}
	if _, exists := snap.UserByCallsign(callsign); exists {
		return fmt.Sprintf("callsign %q is already taken.\n", callsign)
	}
	if role == domain.RoleCommander && snap.CommanderCount(squad) > 0 {
		return fmt.Sprintf("squad %s already has a commander.\n", squad)
	}

	identity := domain.Identity{
		UID:       uid,
		AccessKey: key,
		Role:      role,
		Callsign:  callsign,
		Squad:     squad,
	}
	if err := t.store.AppendRow(ctx, storage.CollectionUsers, storage.UserRow(identity)); err != nil {
		log.Printf("terminal: register user %s: %v", uid, err)
		return storeWriteFailure
	}
	t.cache.Mutate(func(snap *cache.Snapshot) {
		snap.Users[uid] = identity
	})

	t.events.Log(eventlog.KindSyndicateAction, actorDescriptor(state),
		fmt.Sprintf("registered %s %q (UID:%s, squad %s)", role, callsign, uid, squad))
	return fmt.Sprintf("registered %s %q with UID %s.\n", role, callsign, uid)
}

func (t *terminal) cmdUnregisterUser(ctx context.Context, conn *termConn, state session.State, args string) string {
	uid := strings.TrimSpace(args)
	if uid == "" {
		return "usage: unregister_user <UID>\n"
	}
	if uid == state.UID {
		return "you cannot unregister yourself.\n"
	}

	snap := t.refresh(ctx)
	identity, ok := snap.Users[uid]
	if !ok {
		return fmt.Sprintf("no registered user with UID %q.\n", uid)
	}

	if err := t.store.DeleteRowByKey(ctx, storage.CollectionUsers, storage.UserKeyColumn, uid); err != nil {
		log.Printf("terminal: unregister user %s: %v", uid, err)
		return storeWriteFailure
	}
	t.cache.Mutate(func(snap *cache.Snapshot) {
		delete(snap.Users, uid)
	})

	// Force any live sessions of the removed identity back to guest.
	for _, connID := range t.sessions.ConnectionsByUID(uid) {
		t.hub.leaveAll(connID)
		t.sessions.Unbind(connID)
		t.hub.sendTo(connID, outputFrame("your credentials have been revoked. Session reset to guest.\n"))
		t.hub.sendTo(connID, uiStateFrame(uiStatePayload{Role: string(domain.RoleGuest), ShowUIPanel: false}))
	}

	t.events.Log(eventlog.KindSyndicateAction, actorDescriptor(state),
		fmt.Sprintf("unregistered %s (UID:%s)", identity.Callsign, uid))
	return fmt.Sprintf("unregistered %s (UID:%s).\n", identity.Callsign, uid)
}

func (t *terminal) cmdViewUsers(ctx context.Context, conn *termConn, state session.State, args string) string {
	snap := t.refresh(ctx)
	if len(snap.Users) == 0 {
		return "no registered users.\n"
	}

	var b strings.Builder
	b.WriteString("--- REGISTERED USERS ---\n")
	for _, uid := range sortedUIDs(snap) {
		u := snap.Users[uid]
		online := ""
		if len(t.sessions.ConnectionsByUID(uid)) > 0 {
			online = " [online]"
		}
		fmt.Fprintf(&b, "UID:%s %s (%s, squad %s)%s\n", u.UID, u.Callsign, u.Role, u.Squad, online)
	}
	b.WriteString("------------------------\n")
	return b.String()
}

func (t *terminal) cmdViewUsersSquad(ctx context.Context, conn *termConn, state session.State, args string) string {
	if state.Squad == domain.SquadNone {
		return "you are not assigned to a squad.\n"
	}

	snap := t.refresh(ctx)
	var b strings.Builder
	fmt.Fprintf(&b, "--- SQUAD %s ROSTER ---\n", strings.ToUpper(string(state.Squad)))
	listed := 0
	for _, uid := range sortedUIDs(snap) {
		u := snap.Users[uid]
		if u.Squad != state.Squad || u.Role != domain.RoleOperative {
			continue
		}
		listed++
		online := "offline"
		if len(t.sessions.ConnectionsByUID(uid)) > 0 {
			online = "online"
		}
		fmt.Fprintf(&b, "%s (UID:%s) [%s]\n", u.Callsign, u.UID, online)
	}
	if listed == 0 {
		return "no operatives registered in your squad.\n"
	}
	b.WriteString("-----------------------\n")
	return b.String()
}

func (t *terminal) cmdSetChannel(ctx context.Context, conn *termConn, state session.State, args string) string {
	frequency := strings.TrimSpace(args)
	if frequency == "" {
		return "usage: setchannel <frequency>\n"
	}
	if state.Squad == domain.SquadNone {
		return "you are not assigned to a squad.\n"
	}

	t.freqMu.Lock()
	t.frequencies[state.Squad] = frequency
	t.freqMu.Unlock()

	// Squad members and the admin room see the retune immediately; the
	// UI-state push refreshes each viewer's frequency panel.
	notice := outputFrame(fmt.Sprintf("squad channel retuned to %s by %s.\n", frequency, state.Callsign))
	t.hub.broadcast(squadRoom(state.Squad), notice, conn.id)
	t.pushUIState(squadRoom(state.Squad))
	t.pushUIState(adminRoom)

	t.events.Log(eventlog.KindCommanderAction, actorDescriptor(state),
		fmt.Sprintf("set squad %s frequency to %s", state.Squad, frequency))
	return fmt.Sprintf("squad channel set to %s.\n", frequency)
}

// pushUIState re-sends each room member its own UI state. The resume
// token field stays empty so clients keep the token they already hold.
func (t *terminal) pushUIState(roomID string) {
	for _, connID := range t.hub.members(roomID) {
		t.hub.sendTo(connID, uiStateFrame(t.uiStateFor(t.stateOf(connID), "")))
	}
}

func (t *terminal) cmdResetKeys(ctx context.Context, conn *termConn, state session.State, args string) string {
	role, ok := domain.ParseRole(strings.TrimSpace(args))
	if !ok {
		return "usage: resetkeys <operative|commander|client>\n"
	}

	newKeys, err := t.keys.Reset(role)
	if err != nil {
		return fmt.Sprintf("cannot reset %s keys: %v\n", role, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- NEW %s KEYS ---\n", strings.ToUpper(string(role)))
	for _, key := range newKeys {
		b.WriteString(key + "\n")
	}
	b.WriteString("-------------------\n")
	b.WriteString("existing logins under the old keys are revoked. Re-register affected users.\n")

	t.events.Log(eventlog.KindSyndicateAction, actorDescriptor(state),
		fmt.Sprintf("rotated %s access keys (%d issued)", role, len(newKeys)))
	return b.String()
}

func (t *terminal) cmdViewKeys(ctx context.Context, conn *termConn, state session.State, args string) string {
	var b strings.Builder
	b.WriteString("--- ISSUED ACCESS KEYS ---\n")
	for _, role := range []domain.Role{domain.RoleOperative, domain.RoleCommander, domain.RoleClient, domain.RoleSyndicate} {
		keys := t.keys.Keys(role)
		if len(keys) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", role)
		for _, key := range keys {
			b.WriteString("  " + key + "\n")
		}
	}
	b.WriteString("--------------------------\n")
	return b.String()
}

func sortedUIDs(snap *cache.Snapshot) []string {
	uids := make([]string, 0, len(snap.Users))
	for uid := range snap.Users {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}
