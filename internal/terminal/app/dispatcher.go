package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sablegrid/syndnet/internal/terminal/access"
	"github.com/sablegrid/syndnet/internal/terminal/eventlog"
	"github.com/sablegrid/syndnet/internal/terminal/session"
)

// commandHandler executes one authorized command and returns the text
// reply for the issuing connection. Handlers perform their own argument
// parsing and any room or store side effects.
type commandHandler func(ctx context.Context, conn *termConn, state session.State, args string) string

var commandDescriptions = map[string]string{
	"help":             "List the commands available to you.",
	"login":            "Authenticate. login <UID> <access key>",
	"clear":            "Clear the terminal window.",
	"ping":             "Check the link.",
	"exit":             "Log out of the session.",
	"sendmsg":          "Send a message. sendmsg <message> | sendmsg <UID> <message>",
	"msghistory":       "Show the last 20 messages in your squad channel.",
	"contracts":        "List active and assigned contracts.",
	"view_contract":    "Show contract details. view_contract <contract id>",
	"view_orders":      "Show your assigned contracts.",
	"assign_contract":  "Assign a contract to an operative (or yourself). assign_contract <contract id> <UID>",
	"view_users_squad": "List the operatives in your squad.",
	"setchannel":       "Set a new squad frequency. setchannel <frequency>",
	"create_request":   "File a request. create_request <request text>",
	"view_my_requests": "Show your requests.",
	"resetkeys":        "Rotate access keys. resetkeys <role>",
	"viewkeys":         "Show the current access keys.",
	"register_user":    "Register a user. register_user <key> <UID> <callsign> <squad|none>",
	"unregister_user":  "Deactivate a user. unregister_user <UID>",
	"view_users":       "List all registered users.",
	"viewrequests":     "List pending client requests.",
	"acceptrequest":    "Accept a request. acceptrequest <id> <title> <description> <reward>",
	"declinerequest":   "Decline a request. declinerequest <id>",
	"syndicate_assign": "Assign a contract to squads. syndicate_assign <id> <alpha|beta|alpha,beta>",
}

func (t *terminal) registerCommands() {
	t.commands = map[string]commandHandler{
		"help":             t.cmdHelp,
		"ping":             t.cmdPing,
		"clear":            t.cmdClear,
		"exit":             t.cmdExit,
		"sendmsg":          t.cmdSendMsg,
		"msghistory":       t.cmdMsgHistory,
		"contracts":        t.cmdContracts,
		"view_contract":    t.cmdViewContract,
		"view_orders":      t.cmdViewOrders,
		"assign_contract":  t.cmdAssignContract,
		"syndicate_assign": t.cmdSyndicateAssign,
		"view_users_squad": t.cmdViewUsersSquad,
		"setchannel":       t.cmdSetChannel,
		"create_request":   t.cmdCreateRequest,
		"view_my_requests": t.cmdViewMyRequests,
		"viewrequests":     t.cmdViewRequests,
		"acceptrequest":    t.cmdAcceptRequest,
		"declinerequest":   t.cmdDeclineRequest,
		"register_user":    t.cmdRegisterUser,
		"unregister_user":  t.cmdUnregisterUser,
		"view_users":       t.cmdViewUsers,
		"resetkeys":        t.cmdResetKeys,
		"viewkeys":         t.cmdViewKeys,
	}
}

// deniedMessage merges unknown commands and unauthorized commands into
// one reply so an unauthorized role cannot probe the command surface.
func deniedMessage(name string, state session.State) string {
	return fmt.Sprintf(
		"unknown command %q or not available for your role (%s).\nType 'help' for the list of commands.\n",
		name, state.Role,
	)
}

// dispatch runs one inbound command line to completion under the global
// dispatch lock.
func (t *terminal) dispatch(ctx context.Context, conn *termConn, line string) {
	t.dispatchMu.Lock()
	defer t.dispatchMu.Unlock()

	state := t.stateOf(conn.id)
	line = strings.TrimSpace(line)
	t.events.Log(eventlog.KindCommandInput, actorDescriptor(state), fmt.Sprintf("command: %q", line))

	name, args := splitCommand(line)

	// login is evaluated before the permission table: an unauthenticated
	// connection must be able to authenticate.
	if name == "login" {
		tokens := strings.Fields(args)
		if len(tokens) != 2 {
			conn.sendOutput("usage: login <UID> <access key>\n\n")
			return
		}
		t.login(ctx, conn, tokens[0], tokens[1])
		return
	}

	if name == "" || !access.Allowed(state.Role, name) {
		conn.sendOutput(deniedMessage(name, state) + "\n")
		return
	}

	handler, ok := t.commands[name]
	if !ok {
		conn.sendOutput(deniedMessage(name, state) + "\n")
		return
	}
	if output := handler(ctx, conn, state, args); output != "" {
		conn.sendOutput(output + "\n")
	}
}

// splitCommand separates the lowercase command name from its raw
// argument string. Argument grammar beyond this split belongs to each
// handler.
func splitCommand(line string) (string, string) {
	name, args, found := strings.Cut(line, " ")
	if !found {
		return strings.ToLower(line), ""
	}
	return strings.ToLower(name), strings.TrimSpace(args)
}

// splitFields splits an argument string on spaces, honoring double
// quotes so quoted values may contain spaces. With max > 0 the last
// field absorbs the remaining text.
func splitFields(s string, max int) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false
	flush := func() {
		if current.Len() > 0 {
			fields = append(fields, current.String())
			current.Reset()
		}
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			flush()
			if max > 0 && len(fields) == max-1 {
				rest := strings.TrimSpace(string(runes[i+1:]))
				rest = strings.Trim(rest, `"`)
				if rest != "" {
					fields = append(fields, rest)
				}
				return fields
			}
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return fields
}
