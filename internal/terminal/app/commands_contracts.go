package app

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/sablegrid/syndnet/internal/terminal/cache"
	"github.com/sablegrid/syndnet/internal/terminal/domain"
	"github.com/sablegrid/syndnet/internal/terminal/eventlog"
	"github.com/sablegrid/syndnet/internal/terminal/session"
	"github.com/sablegrid/syndnet/internal/terminal/storage"
)

const storeWriteFailure = "operation failed: the record store rejected the update. Try again later.\n"

func (t *terminal) cmdContracts(ctx context.Context, conn *termConn, state session.State, args string) string {
	snap := t.refresh(ctx)

	var b strings.Builder
	b.WriteString("--- CONTRACT BOARD ---\n")
	listed := 0
	for _, c := range snap.Contracts {
		if c.Status.Terminal() {
			continue
		}
		listed++
		fmt.Fprintf(&b, "[%d] %s (%s) reward: %s assignee: %s\n",
			c.ID, c.Title, c.Status, c.Reward, t.assigneeLabel(snap, state, c))
	}
	if listed == 0 {
		return "no active contracts on the board.\n"
	}
	b.WriteString("----------------------\n")
	return b.String()
}

// assigneeLabel masks assignees outside the viewer's squad. The
// syndicate sees everything.
func (t *terminal) assigneeLabel(snap *cache.Snapshot, state session.State, c domain.Contract) string {
	if c.Unassigned() {
		return domain.NoAssignee
	}
	if state.Role == domain.RoleSyndicate {
		return c.Assignee
	}
	if squads := c.AssigneeSquads(); squads != nil {
		if c.AssignedToSquad(state.Squad) {
			return c.Assignee
		}
		return "[REDACTED]"
	}
	if c.Assignee == state.Callsign {
		return c.Assignee
	}
	if holder, ok := snap.UserByCallsign(c.Assignee); ok && holder.Squad == state.Squad && state.Squad != domain.SquadNone {
		return c.Assignee
	}
	return "[REDACTED]"
}

// visibleContract reports whether the contract is assigned to the viewer
// or the viewer's squad.
func visibleContract(state session.State, c domain.Contract) bool {
	if c.Assignee == state.Callsign && state.Callsign != "" {
		return true
	}
	return state.Squad != domain.SquadNone && c.AssignedToSquad(state.Squad)
}

func (t *terminal) cmdViewContract(ctx context.Context, conn *termConn, state session.State, args string) string {
	id, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return "usage: view_contract <contract id>\n"
	}

	snap := t.refresh(ctx)
	c, ok := snap.ContractByID(id)
	if !ok {
		return fmt.Sprintf("contract %d not found.\n", id)
	}
	if !visibleContract(state, c) {
		return fmt.Sprintf("contract %d is not assigned to you or your squad.\n", id)
	}
	return formatContract(c)
}

func formatContract(c domain.Contract) string {
	assignee := c.Assignee
	if c.Unassigned() {
		assignee = domain.NoAssignee
	}
	return fmt.Sprintf(
		"--- CONTRACT %d ---\ntitle: %s\ndescription: %s\nreward: %s\nstatus: %s\nassignee: %s\n-------------------\n",
		c.ID, c.Title, c.Description, c.Reward, c.Status, assignee,
	)
}

func (t *terminal) cmdViewOrders(ctx context.Context, conn *termConn, state session.State, args string) string {
	snap := t.refresh(ctx)

	var b strings.Builder
	b.WriteString("--- YOUR ORDERS ---\n")
	listed := 0
	for _, c := range snap.Contracts {
		if c.Status.Terminal() || !visibleContract(state, c) {
			continue
		}
		listed++
		fmt.Fprintf(&b, "[%d] %s (%s) reward: %s\n", c.ID, c.Title, c.Status, c.Reward)
	}
	if listed == 0 {
		return "you have no assigned contracts.\n"
	}
	b.WriteString("-------------------\n")
	return b.String()
}

func (t *terminal) cmdAssignContract(ctx context.Context, conn *termConn, state session.State, args string) string {
	fields := splitFields(args, 2)
	if len(fields) != 2 {
		return "usage: assign_contract <contract id> <UID>\n"
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return "usage: assign_contract <contract id> <UID>\n"
	}
	targetUID := fields[1]

	snap := t.refresh(ctx)
	c, ok := snap.ContractByID(id)
	if !ok {
		return fmt.Sprintf("contract %d not found.\n", id)
	}
	if !c.Unassigned() {
		return fmt.Sprintf("contract %d is already assigned to %s.\n", id, c.Assignee)
	}
	target, ok := snap.Users[targetUID]
	if !ok {
		return fmt.Sprintf("no registered user with UID %q.\n", targetUID)
	}
	// Commanders may take a contract themselves; anyone else must be an
	// operative of their own squad.
	if target.UID != state.UID {
		if target.Role != domain.RoleOperative || target.Squad != state.Squad {
			return fmt.Sprintf("%s is not an operative of your squad.\n", target.Callsign)
		}
	}

	if err := t.writeAssignment(ctx, id, target.Callsign); err != nil {
		log.Printf("terminal: assign contract %d: %v", id, err)
		return storeWriteFailure
	}
	t.applyAssignment(id, target.Callsign)

	for _, connID := range t.sessions.ConnectionsByUID(target.UID) {
		if connID == conn.id {
			continue
		}
		t.hub.sendTo(connID, outputFrame(fmt.Sprintf("new orders: contract %d (%s) has been assigned to you.\n", id, c.Title)))
	}
	t.events.Log(eventlog.KindCommanderAction, actorDescriptor(state),
		fmt.Sprintf("assigned contract %d to %s", id, target.Callsign))
	return fmt.Sprintf("contract %d assigned to %s.\n", id, target.Callsign)
}

func (t *terminal) cmdSyndicateAssign(ctx context.Context, conn *termConn, state session.State, args string) string {
	fields := splitFields(args, 2)
	if len(fields) != 2 {
		return "usage: syndicate_assign <contract id> <alpha|beta|alpha,beta>\n"
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return "usage: syndicate_assign <contract id> <alpha|beta|alpha,beta>\n"
	}

	var squads []domain.Squad
	for _, part := range strings.Split(fields[1], ",") {
		squad, ok := domain.ParseSquad(part)
		if !ok || squad == domain.SquadNone {
			return fmt.Sprintf("unknown squad %q. Use alpha, beta or alpha,beta.\n", strings.TrimSpace(part))
		}
		squads = append(squads, squad)
	}

	snap := t.refresh(ctx)
	c, ok := snap.ContractByID(id)
	if !ok {
		return fmt.Sprintf("contract %d not found.\n", id)
	}
	if c.Status.Terminal() {
		return fmt.Sprintf("contract %d is already %s.\n", id, c.Status)
	}

	parts := make([]string, 0, len(squads))
	for _, squad := range squads {
		parts = append(parts, string(squad))
	}
	assignee := strings.Join(parts, ",")

	if err := t.writeAssignment(ctx, id, assignee); err != nil {
		log.Printf("terminal: syndicate assign contract %d: %v", id, err)
		return storeWriteFailure
	}
	t.applyAssignment(id, assignee)

	notice := outputFrame(fmt.Sprintf("new squad orders: contract %d (%s). Use 'view_contract %d' for details.\n", id, c.Title, id))
	for _, squad := range squads {
		t.hub.broadcast(squadRoom(squad), notice, "")
	}
	t.events.Log(eventlog.KindSyndicateAction, actorDescriptor(state),
		fmt.Sprintf("assigned contract %d to squads %s", id, assignee))
	return fmt.Sprintf("contract %d assigned to %s.\n", id, assignee)
}

func (t *terminal) writeAssignment(ctx context.Context, id int, assignee string) error {
	return t.store.UpdateRowByKey(ctx, storage.CollectionContracts,
		storage.ContractKeyColumn, strconv.Itoa(id), map[string]string{
			"assignee": assignee,
			"status":   string(domain.ContractAssigned),
		})
}

func (t *terminal) applyAssignment(id int, assignee string) {
	t.cache.Mutate(func(snap *cache.Snapshot) {
		for i := range snap.Contracts {
			if snap.Contracts[i].ID == id {
				snap.Contracts[i].Assignee = assignee
				snap.Contracts[i].Status = domain.ContractAssigned
				return
			}
		}
	})
}
