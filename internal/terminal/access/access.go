// Package access holds the static role-to-command permission table.
package access

import (
	"sort"

	"github.com/sablegrid/syndnet/internal/terminal/domain"
)

// permissions is the authoritative command surface per role. The guest
// set is exactly what an unauthenticated connection needs to bootstrap.
var permissions = map[domain.Role][]string{
	domain.RoleGuest: {"help", "login", "clear", "ping"},
	domain.RoleOperative: {
		"help", "ping", "sendmsg", "msghistory", "contracts", "view_orders",
		"view_contract", "exit", "clear",
	},
	domain.RoleCommander: {
		"help", "ping", "sendmsg", "msghistory", "contracts", "assign_contract",
		"view_users_squad", "setchannel", "view_contract", "exit", "clear",
	},
	domain.RoleClient: {
		"help", "ping", "create_request", "view_my_requests", "exit", "clear",
	},
	domain.RoleSyndicate: {
		"help", "ping", "sendmsg", "resetkeys", "viewkeys", "register_user",
		"unregister_user", "view_users", "viewrequests", "acceptrequest",
		"declinerequest", "contracts", "exit", "clear", "syndicate_assign",
	},
}

// Allowed reports whether role may run command. Unknown roles have an
// empty permission set, so every command is denied.
func Allowed(role domain.Role, command string) bool {
	for _, allowed := range permissions[role] {
		if allowed == command {
			return true
		}
	}
	return false
}

// Commands returns the sorted command list for a role, for help output.
func Commands(role domain.Role) []string {
	commands := make([]string, len(permissions[role]))
	copy(commands, permissions[role])
	sort.Strings(commands)
	return commands
}
