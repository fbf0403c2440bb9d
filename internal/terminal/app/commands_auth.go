package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sablegrid/syndnet/internal/terminal/access"
	"github.com/sablegrid/syndnet/internal/terminal/domain"
	"github.com/sablegrid/syndnet/internal/terminal/eventlog"
	"github.com/sablegrid/syndnet/internal/terminal/session"
)

// authFailureMessage merges "uid unknown" and "key mismatch" so a failed
// attempt reveals neither.
const authFailureMessage = "authentication failed: invalid UID or access key. Try again."

// login authenticates a connection. Callers hold the dispatch lock.
func (t *terminal) login(ctx context.Context, conn *termConn, uid, key string) {
	uid = strings.TrimSpace(uid)
	actor := fmt.Sprintf("UID:%s, SID:%s", uid, conn.id)

	if t.loginGate != nil && !t.loginGate(conn.remote) {
		t.events.Log(eventlog.KindLoginFailure, actor, "login attempt refused by gate")
		_ = conn.peer.writeFrame(loginFailureFrame(authFailureMessage))
		return
	}

	snap := t.refresh(ctx)
	identity, ok := snap.Users[uid]
	if ok && identity.AccessKey == key {
		// The key must still be live in the keyring: a rotated key set
		// revokes credentials issued under the old one.
		if role, live := t.keys.RoleForKey(key); live && role == identity.Role {
			t.bindIdentity(conn, identity, fmt.Sprintf("Welcome, %s! You are logged in as %s.\n", identity.Callsign, strings.ToUpper(string(identity.Role))))
			t.events.Log(eventlog.KindLoginSuccess, actor, fmt.Sprintf("user %q logged in as %s", identity.Callsign, identity.Role))
			return
		}
	}

	t.events.Log(eventlog.KindLoginFailure, actor, "login failed: invalid UID or access key")
	_ = conn.peer.writeFrame(loginFailureFrame(authFailureMessage))
}

// resume rebinds an identity from a signed resume token. Callers hold
// the dispatch lock.
func (t *terminal) resume(ctx context.Context, conn *termConn, tokenString string) {
	actor := "SID:" + conn.id
	if t.tokens == nil {
		t.events.Log(eventlog.KindLoginFailure, actor, "resume attempted without a token issuer")
		_ = conn.peer.writeFrame(loginFailureFrame(authFailureMessage))
		return
	}

	claims, err := t.tokens.Verify(tokenString)
	if err != nil {
		t.events.Log(eventlog.KindLoginFailure, actor, "resume failed: invalid token")
		_ = conn.peer.writeFrame(loginFailureFrame(authFailureMessage))
		return
	}

	// The token proves a past login; the identity must still exist with
	// the same role.
	snap := t.refresh(ctx)
	identity, ok := snap.Users[claims.UID]
	if !ok || identity.Role != claims.Role {
		t.events.Log(eventlog.KindLoginFailure, "UID:"+claims.UID, "resume failed: identity revoked or role changed")
		_ = conn.peer.writeFrame(loginFailureFrame(authFailureMessage))
		return
	}

	t.bindIdentity(conn, identity, fmt.Sprintf("Session restored. Welcome back, %s.\n", identity.Callsign))
	t.events.Log(eventlog.KindLoginSuccess, "UID:"+identity.UID, "session resumed")
}

// bindIdentity binds the session, joins the rooms implied by the role,
// and pushes the welcome text plus UI state.
func (t *terminal) bindIdentity(conn *termConn, identity domain.Identity, welcome string) {
	if err := t.sessions.Bind(conn.id, identity); err != nil {
		t.events.Log(eventlog.KindLoginFailure, "UID:"+identity.UID, "session bind rejected: "+err.Error())
		_ = conn.peer.writeFrame(loginFailureFrame(authFailureMessage))
		return
	}

	t.hub.leaveAll(conn.id)
	switch identity.Role {
	case domain.RoleOperative, domain.RoleCommander:
		if identity.Squad != domain.SquadNone {
			t.hub.join(conn.id, squadRoom(identity.Squad))
		}
	case domain.RoleSyndicate:
		t.hub.join(conn.id, adminRoom)
	}

	conn.sendOutput(welcome)

	state, _ := t.sessions.Get(conn.id)
	sessionToken := ""
	if t.tokens != nil {
		signed, err := t.tokens.Issue(identity)
		if err == nil {
			sessionToken = signed
		}
	}
	_ = conn.peer.writeFrame(uiStateFrame(t.uiStateFor(state, sessionToken)))
}

// uiStateFor projects a session onto the UI-state payload.
func (t *terminal) uiStateFor(state session.State, sessionToken string) uiStatePayload {
	payload := uiStatePayload{
		Role:         string(state.Role),
		Callsign:     state.Callsign,
		ShowUIPanel:  !state.Anonymous(),
		SessionToken: sessionToken,
	}
	if state.Squad != domain.SquadNone {
		payload.Squad = string(state.Squad)
	}

	t.freqMu.Lock()
	defer t.freqMu.Unlock()
	switch state.Role {
	case domain.RoleSyndicate:
		payload.ChannelFrequency = "N/A"
		payload.SquadFrequencies = make(map[string]string, len(t.frequencies))
		for squad, freq := range t.frequencies {
			payload.SquadFrequencies[string(squad)] = freq
		}
	case domain.RoleOperative, domain.RoleCommander:
		if freq, ok := t.frequencies[state.Squad]; ok {
			payload.ChannelFrequency = freq
		} else {
			payload.ChannelFrequency = "--:--"
		}
	}
	return payload
}

func (t *terminal) cmdExit(ctx context.Context, conn *termConn, state session.State, args string) string {
	if state.Role == domain.RoleGuest {
		return "you are already in guest mode. Use 'login' to authenticate.\n"
	}

	t.hub.leaveAll(conn.id)
	t.sessions.Unbind(conn.id)
	t.events.Log(eventlog.KindLogout, actorDescriptor(state), "logged out")
	_ = conn.peer.writeFrame(uiStateFrame(uiStatePayload{Role: string(domain.RoleGuest), ShowUIPanel: false}))
	return "logged out. Role reset to guest.\n"
}

func (t *terminal) cmdHelp(ctx context.Context, conn *termConn, state session.State, args string) string {
	var b strings.Builder
	b.WriteString("--- AVAILABLE COMMANDS ---\n")
	for _, name := range access.Commands(state.Role) {
		description := commandDescriptions[name]
		if description == "" {
			description = "No description."
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, description)
	}
	b.WriteString("--------------------------\n")
	return b.String()
}

func (t *terminal) cmdPing(ctx context.Context, conn *termConn, state session.State, args string) string {
	return "ping: 42ms (link stable)\n"
}

func (t *terminal) cmdClear(ctx context.Context, conn *termConn, state session.State, args string) string {
	return clearSentinel + "\n"
}
