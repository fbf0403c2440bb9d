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

func (t *terminal) cmdCreateRequest(ctx context.Context, conn *termConn, state session.State, args string) string {
	text := strings.TrimSpace(args)
	if text == "" {
		return "usage: create_request <request text>\n"
	}

	snap := t.refresh(ctx)
	request := domain.ClientRequest{
		ID:             snap.NextRequestID(),
		ClientUID:      state.UID,
		ClientCallsign: state.Callsign,
		Text:           text,
		Status:         domain.RequestNew,
	}

	if err := t.store.AppendRow(ctx, storage.CollectionRequests, storage.RequestRow(request)); err != nil {
		log.Printf("terminal: create request: %v", err)
		return storeWriteFailure
	}
	t.cache.Mutate(func(snap *cache.Snapshot) {
		snap.Requests = append(snap.Requests, request)
	})

	t.hub.broadcast(adminRoom, outputFrame(
		fmt.Sprintf("new client request [%d] from %s: %s\n", request.ID, request.ClientCallsign, request.Text)), "")
	t.events.Log(eventlog.KindClientAction, actorDescriptor(state),
		fmt.Sprintf("filed request %d", request.ID))
	return fmt.Sprintf("request filed under id %d. The syndicate will review it.\n", request.ID)
}

func (t *terminal) cmdViewMyRequests(ctx context.Context, conn *termConn, state session.State, args string) string {
	snap := t.refresh(ctx)

	var b strings.Builder
	b.WriteString("--- YOUR REQUESTS ---\n")
	listed := 0
	for _, r := range snap.Requests {
		if r.ClientUID != state.UID {
			continue
		}
		listed++
		fmt.Fprintf(&b, "[%d] (%s) %s\n", r.ID, r.Status, r.Text)
	}
	if listed == 0 {
		return "you have not filed any requests.\n"
	}
	b.WriteString("---------------------\n")
	return b.String()
}

func (t *terminal) cmdViewRequests(ctx context.Context, conn *termConn, state session.State, args string) string {
	snap := t.refresh(ctx)

	var b strings.Builder
	b.WriteString("--- PENDING REQUESTS ---\n")
	listed := 0
	for _, r := range snap.Requests {
		if r.Status != domain.RequestNew {
			continue
		}
		listed++
		fmt.Fprintf(&b, "[%d] %s (UID:%s): %s\n", r.ID, r.ClientCallsign, r.ClientUID, r.Text)
	}
	if listed == 0 {
		return "no pending requests.\n"
	}
	b.WriteString("------------------------\n")
	return b.String()
}

func (t *terminal) cmdAcceptRequest(ctx context.Context, conn *termConn, state session.State, args string) string {
	fields := splitFields(args, 4)
	if len(fields) != 4 {
		return "usage: acceptrequest <request id> <title> <description> <reward>\n"
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return "usage: acceptrequest <request id> <title> <description> <reward>\n"
	}

	snap := t.refresh(ctx)
	request, ok := snap.RequestByID(id)
	if !ok {
		return fmt.Sprintf("request %d not found.\n", id)
	}
	if request.Status != domain.RequestNew {
		return fmt.Sprintf("request %d is already %s.\n", id, request.Status)
	}

	if err := t.writeRequestStatus(ctx, id, domain.RequestAccepted); err != nil {
		log.Printf("terminal: accept request %d: %v", id, err)
		return storeWriteFailure
	}

	contract := domain.Contract{
		ID:          snap.NextContractID(),
		Title:       fields[1],
		Description: fields[2],
		Reward:      fields[3],
		Status:      domain.ContractActive,
		Assignee:    domain.NoAssignee,
	}
	if err := t.store.AppendRow(ctx, storage.CollectionContracts, storage.ContractRow(contract)); err != nil {
		// The request already flipped to accepted; put it back so the
		// syndicate can retry the whole operation.
		log.Printf("terminal: mint contract for request %d: %v", id, err)
		if rollbackErr := t.writeRequestStatus(ctx, id, domain.RequestNew); rollbackErr != nil {
			log.Printf("terminal: roll back request %d: %v", id, rollbackErr)
		}
		return storeWriteFailure
	}

	t.cache.Mutate(func(snap *cache.Snapshot) {
		for i := range snap.Requests {
			if snap.Requests[i].ID == id {
				snap.Requests[i].Status = domain.RequestAccepted
				break
			}
		}
		snap.Contracts = append(snap.Contracts, contract)
	})

	t.notifyClient(request.ClientUID, fmt.Sprintf(
		"your request [%d] was accepted. Contract %d (%s) is now on the board.\n", id, contract.ID, contract.Title))
	t.events.Log(eventlog.KindSyndicateAction, actorDescriptor(state),
		fmt.Sprintf("accepted request %d as contract %d", id, contract.ID))
	return fmt.Sprintf("request %d accepted. Contract %d created.\n", id, contract.ID)
}

func (t *terminal) cmdDeclineRequest(ctx context.Context, conn *termConn, state session.State, args string) string {
	id, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return "usage: declinerequest <request id>\n"
	}

	snap := t.refresh(ctx)
	request, ok := snap.RequestByID(id)
	if !ok {
		return fmt.Sprintf("request %d not found.\n", id)
	}
	if request.Status != domain.RequestNew {
		return fmt.Sprintf("request %d is already %s.\n", id, request.Status)
	}

	if err := t.writeRequestStatus(ctx, id, domain.RequestDeclined); err != nil {
		log.Printf("terminal: decline request %d: %v", id, err)
		return storeWriteFailure
	}
	t.cache.Mutate(func(snap *cache.Snapshot) {
		for i := range snap.Requests {
			if snap.Requests[i].ID == id {
				snap.Requests[i].Status = domain.RequestDeclined
				break
			}
		}
	})

	t.notifyClient(request.ClientUID, fmt.Sprintf("your request [%d] was declined by the syndicate.\n", id))
	t.events.Log(eventlog.KindSyndicateAction, actorDescriptor(state),
		fmt.Sprintf("declined request %d", id))
	return fmt.Sprintf("request %d declined.\n", id)
}

func (t *terminal) writeRequestStatus(ctx context.Context, id int, status domain.RequestStatus) error {
	return t.store.UpdateRowByKey(ctx, storage.CollectionRequests,
		storage.RequestKeyColumn, strconv.Itoa(id), map[string]string{
			"status": string(status),
		})
}

// notifyClient pushes a line to every live connection of a client, if
// any. Offline clients simply miss the notice.
func (t *terminal) notifyClient(uid, text string) {
	for _, connID := range t.sessions.ConnectionsByUID(uid) {
		t.hub.sendTo(connID, outputFrame(text))
	}
}
