package app

import (
	"strings"
	"testing"
)

func TestContractsMasksOtherSquadAssignee(t *testing.T) {
	conn := dialWS(t, newTestServer(t))
	loginAs(t, conn, "op1", "op-key-1")

	sendCommand(t, conn, "contracts")
	out := readOutput(t, conn)
	if !strings.Contains(out, "Dead Drop") {
		t.Fatalf("board = %q, expected the active contract", out)
	}
	if !strings.Contains(out, "Falcon") {
		t.Fatalf("board = %q, own assignment should be visible", out)
	}
	if strings.Contains(out, "Ghost") {
		t.Fatalf("board = %q, other-squad assignee leaked", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("board = %q, expected a redacted assignee", out)
	}
	if strings.Contains(out, "Cold Case") {
		t.Fatalf("board = %q, completed contracts should be hidden", out)
	}
}

func TestContractsUnmaskedForSyndicate(t *testing.T) {
	conn := dialWS(t, newTestServer(t))
	loginAs(t, conn, "synd1", "synd-key-1")

	sendCommand(t, conn, "contracts")
	out := readOutput(t, conn)
	if !strings.Contains(out, "Ghost") {
		t.Fatalf("board = %q, syndicate should see every assignee", out)
	}
	if strings.Contains(out, "[REDACTED]") {
		t.Fatalf("board = %q, nothing should be redacted for the syndicate", out)
	}
}

func TestViewContractRestrictedToAssignee(t *testing.T) {
	srv := newTestServer(t)

	assignee := dialWS(t, srv)
	loginAs(t, assignee, "op1", "op-key-1")
	sendCommand(t, assignee, "view_contract 2")
	if out := readOutput(t, assignee); !strings.Contains(out, "Guard the safehouse") {
		t.Fatalf("output = %q, assignee should see the details", out)
	}

	squadmate := dialWS(t, srv)
	loginAs(t, squadmate, "op2", "op-key-2")
	sendCommand(t, squadmate, "view_contract 2")
	if out := readOutput(t, squadmate); !strings.Contains(out, "not assigned to you") {
		t.Fatalf("output = %q, a personal assignment is not squad-visible", out)
	}
}

func TestViewOrdersListsOwnAssignments(t *testing.T) {
	conn := dialWS(t, newTestServer(t))
	loginAs(t, conn, "op1", "op-key-1")

	sendCommand(t, conn, "view_orders")
	out := readOutput(t, conn)
	if !strings.Contains(out, "Night Watch") {
		t.Fatalf("orders = %q, expected own contract", out)
	}
	if strings.Contains(out, "Dead Drop") {
		t.Fatalf("orders = %q, unassigned contracts are not orders", out)
	}
}

func TestAssignContractFlow(t *testing.T) {
	srv := newTestServer(t)

	commander := dialWS(t, srv)
	operative := dialWS(t, srv)
	loginAs(t, commander, "cmd1", "cmd-key-1")
	loginAs(t, operative, "op1", "op-key-1")

	sendCommand(t, commander, "assign_contract 1 op1")
	if out := readOutput(t, commander); !strings.Contains(out, "contract 1 assigned to Falcon") {
		t.Fatalf("output = %q, expected the assignment confirmation", out)
	}
	if out := readOutput(t, operative); !strings.Contains(out, "new orders: contract 1") {
		t.Fatalf("operative output = %q, expected the orders notice", out)
	}

	sendCommand(t, commander, "assign_contract 1 op2")
	if out := readOutput(t, commander); !strings.Contains(out, "already assigned") {
		t.Fatalf("output = %q, reassignment must be rejected", out)
	}
}

func TestAssignContractRejectsOtherSquadOperative(t *testing.T) {
	conn := dialWS(t, newTestServer(t))
	loginAs(t, conn, "cmd1", "cmd-key-1")

	sendCommand(t, conn, "assign_contract 1 op3")
	if out := readOutput(t, conn); !strings.Contains(out, "not an operative of your squad") {
		t.Fatalf("output = %q, cross-squad assignment must be rejected", out)
	}
}

func TestSyndicateAssignBroadcastsToSquad(t *testing.T) {
	srv := newTestServer(t)

	syndicate := dialWS(t, srv)
	operative := dialWS(t, srv)
	loginAs(t, syndicate, "synd1", "synd-key-1")
	loginAs(t, operative, "op3", "op-key-3")

	sendCommand(t, syndicate, "syndicate_assign 1 beta")
	if out := readOutput(t, syndicate); !strings.Contains(out, "contract 1 assigned to beta") {
		t.Fatalf("output = %q, expected the squad assignment confirmation", out)
	}
	if out := readOutput(t, operative); !strings.Contains(out, "new squad orders: contract 1") {
		t.Fatalf("operative output = %q, expected the squad notice", out)
	}

	sendCommand(t, operative, "view_contract 1")
	if out := readOutput(t, operative); !strings.Contains(out, "Dead Drop") {
		t.Fatalf("output = %q, squad assignment should open the contract", out)
	}
}

func TestRequestLifecycle(t *testing.T) {
	srv := newTestServer(t)

	client := dialWS(t, srv)
	syndicate := dialWS(t, srv)
	loginAs(t, client, "client1", "client-key-1")
	loginAs(t, syndicate, "synd1", "synd-key-1")

	sendCommand(t, client, "create_request extraction from the red zone")
	if out := readOutput(t, client); !strings.Contains(out, "request filed under id 2") {
		t.Fatalf("output = %q, expected the new request id", out)
	}
	if out := readOutput(t, syndicate); !strings.Contains(out, "new client request [2] from Patron") {
		t.Fatalf("syndicate output = %q, expected the admin notice", out)
	}

	sendCommand(t, syndicate, "viewrequests")
	out := readOutput(t, syndicate)
	if !strings.Contains(out, "[1]") || !strings.Contains(out, "[2]") {
		t.Fatalf("pending = %q, expected both new requests", out)
	}

	sendCommand(t, syndicate, `acceptrequest 1 "Escort Run" "Walk the client through sector 9" 4000`)
	if out := readOutput(t, syndicate); !strings.Contains(out, "request 1 accepted") {
		t.Fatalf("output = %q, expected the acceptance", out)
	}
	if out := readOutput(t, client); !strings.Contains(out, "request [1] was accepted") {
		t.Fatalf("client output = %q, expected the acceptance notice", out)
	}

	sendCommand(t, syndicate, "declinerequest 1")
	if out := readOutput(t, syndicate); !strings.Contains(out, "already accepted") {
		t.Fatalf("output = %q, terminal requests must stay terminal", out)
	}

	sendCommand(t, syndicate, "contracts")
	if out := readOutput(t, syndicate); !strings.Contains(out, "Escort Run") {
		t.Fatalf("board = %q, expected the minted contract", out)
	}

	sendCommand(t, client, "view_my_requests")
	out = readOutput(t, client)
	if !strings.Contains(out, "(accepted)") {
		t.Fatalf("requests = %q, expected the accepted status", out)
	}
}

func TestDeclineRequestNotifiesClient(t *testing.T) {
	srv := newTestServer(t)

	client := dialWS(t, srv)
	syndicate := dialWS(t, srv)
	loginAs(t, client, "client1", "client-key-1")
	loginAs(t, syndicate, "synd1", "synd-key-1")

	sendCommand(t, syndicate, "declinerequest 1")
	if out := readOutput(t, syndicate); !strings.Contains(out, "request 1 declined") {
		t.Fatalf("output = %q, expected the decline confirmation", out)
	}
	if out := readOutput(t, client); !strings.Contains(out, "request [1] was declined") {
		t.Fatalf("client output = %q, expected the decline notice", out)
	}
}

func TestRegisterUserThenLoginRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	syndicate := dialWS(t, srv)
	loginAs(t, syndicate, "synd1", "synd-key-1")

	sendCommand(t, syndicate, "register_user client-key-2 cl2 Broker none")
	if out := readOutput(t, syndicate); !strings.Contains(out, `registered client "Broker"`) {
		t.Fatalf("output = %q, expected the registration confirmation", out)
	}

	fresh := dialWS(t, srv)
	state := loginAs(t, fresh, "cl2", "client-key-2")
	if state.Role != "client" || state.Callsign != "Broker" {
		t.Fatalf("logged in as %s/%s, want Broker/client", state.Callsign, state.Role)
	}
}

func TestRegisterUserRejectsBoundKey(t *testing.T) {
	conn := dialWS(t, newTestServer(t))
	loginAs(t, conn, "synd1", "synd-key-1")

	sendCommand(t, conn, "register_user op-key-1 op9 Raven alpha")
	if out := readOutput(t, conn); !strings.Contains(out, "already bound") {
		t.Fatalf("output = %q, a bound key must be rejected", out)
	}
}

func TestRegisterUserRejectsSecondCommander(t *testing.T) {
	conn := dialWS(t, newTestServer(t))
	loginAs(t, conn, "synd1", "synd-key-1")

	// cmd-key-1 is bound, so rotate commander keys first to mint a free
	// one, then resolve it from the disclosure.
	sendCommand(t, conn, "resetkeys commander")
	out := readOutput(t, conn)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 3 {
		t.Fatalf("resetkeys output = %q, expected a key listing", out)
	}
	newKey := strings.TrimSpace(lines[1])

	sendCommand(t, conn, "register_user "+newKey+" cmd2 Marshal alpha")
	if o := readOutput(t, conn); !strings.Contains(o, "already has a commander") {
		t.Fatalf("output = %q, a second alpha commander must be rejected", o)
	}
}

func TestUnregisterUserKicksLiveSession(t *testing.T) {
	srv := newTestServer(t)

	syndicate := dialWS(t, srv)
	operative := dialWS(t, srv)
	loginAs(t, syndicate, "synd1", "synd-key-1")
	loginAs(t, operative, "op1", "op-key-1")

	sendCommand(t, syndicate, "unregister_user op1")
	if out := readOutput(t, syndicate); !strings.Contains(out, "unregistered Falcon") {
		t.Fatalf("output = %q, expected the removal confirmation", out)
	}
	if out := readOutput(t, operative); !strings.Contains(out, "revoked") {
		t.Fatalf("operative output = %q, expected the revocation notice", out)
	}

	sendCommand(t, operative, "contracts")
	if out := readOutput(t, operative); !strings.Contains(out, "not available for your role") {
		t.Fatalf("output = %q, the kicked session must be guest again", out)
	}
}

func TestResetKeysRevokesOldLogins(t *testing.T) {
	srv := newTestServer(t)

	syndicate := dialWS(t, srv)
	loginAs(t, syndicate, "synd1", "synd-key-1")

	sendCommand(t, syndicate, "resetkeys operative")
	out := readOutput(t, syndicate)
	if !strings.Contains(out, "NEW OPERATIVE KEYS") {
		t.Fatalf("output = %q, expected the key disclosure", out)
	}
	if strings.Count(out, "\n") < 4 {
		t.Fatalf("output = %q, expected three rotated keys", out)
	}

	fresh := dialWS(t, srv)
	writeTestFrame(t, fresh, map[string]any{
		"event":   "login",
		"payload": map[string]any{"uid": "op1", "key": "op-key-1"},
	})
	awaitEvent(t, fresh, eventLoginFailure)
}

func TestResetKeysRejectsSyndicate(t *testing.T) {
	conn := dialWS(t, newTestServer(t))
	loginAs(t, conn, "synd1", "synd-key-1")

	sendCommand(t, conn, "resetkeys syndicate")
	if out := readOutput(t, conn); !strings.Contains(out, "cannot reset syndicate keys") {
		t.Fatalf("output = %q, syndicate keys must not rotate", out)
	}
}

func TestViewKeysListsIssuedSets(t *testing.T) {
	conn := dialWS(t, newTestServer(t))
	loginAs(t, conn, "synd1", "synd-key-1")

	sendCommand(t, conn, "viewkeys")
	out := readOutput(t, conn)
	for _, want := range []string{"op-key-1", "cmd-key-1", "client-key-2", "synd-key-1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("viewkeys = %q, missing %q", out, want)
		}
	}
}

func TestViewUsersSquadListsOperativesOnly(t *testing.T) {
	conn := dialWS(t, newTestServer(t))
	loginAs(t, conn, "cmd1", "cmd-key-1")

	sendCommand(t, conn, "view_users_squad")
	out := readOutput(t, conn)
	if !strings.Contains(out, "Falcon") || !strings.Contains(out, "Viper") {
		t.Fatalf("roster = %q, expected both alpha operatives", out)
	}
	if strings.Contains(out, "Ghost") || strings.Contains(out, "Warden") {
		t.Fatalf("roster = %q, only own-squad operatives belong here", out)
	}
}

func TestSetChannelPushesFrequencyToSquad(t *testing.T) {
	srv := newTestServer(t)

	commander := dialWS(t, srv)
	operative := dialWS(t, srv)
	loginAs(t, commander, "cmd1", "cmd-key-1")
	loginAs(t, operative, "op1", "op-key-1")

	sendCommand(t, commander, "setchannel 150.0 MHz")

	if out := readOutput(t, operative); !strings.Contains(out, "retuned to 150.0 MHz") {
		t.Fatalf("operative output = %q, expected the retune notice", out)
	}
	state := awaitUIPanel(t, operative)
	if state.ChannelFrequency != "150.0 MHz" {
		t.Fatalf("channel frequency = %q, want 150.0 MHz", state.ChannelFrequency)
	}
}
