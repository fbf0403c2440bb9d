package app

import (
	"strings"
	"sync"

	"github.com/sablegrid/syndnet/internal/terminal/domain"
)

// adminRoom carries privileged broadcasts to every syndicate connection.
const adminRoom = "syndicate_room"

const squadRoomPrefix = "squad:"

func squadRoom(squad domain.Squad) string {
	return squadRoomPrefix + string(squad)
}

// roomHub tracks live peers and their room memberships and performs all
// fan-out. A connection belongs to at most one squad room at a time;
// joining another squad room leaves the previous one first.
type roomHub struct {
	mu    sync.Mutex
	peers map[string]*peer
	rooms map[string]map[string]struct{}
	joins map[string]map[string]struct{}
}

func newRoomHub() *roomHub {
	return &roomHub{
		peers: make(map[string]*peer),
		rooms: make(map[string]map[string]struct{}),
		joins: make(map[string]map[string]struct{}),
	}
}

func (h *roomHub) register(connID string, p *peer) {
	h.mu.Lock()
	h.peers[connID] = p
	h.joins[connID] = make(map[string]struct{})
	h.mu.Unlock()
}

// unregister drops the peer and releases every room membership without
// affecting other members.
func (h *roomHub) unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveAllLocked(connID)
	delete(h.peers, connID)
	delete(h.joins, connID)
}

func (h *roomHub) join(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[connID]; !ok {
		return
	}
	if strings.HasPrefix(roomID, squadRoomPrefix) {
		for joined := range h.joins[connID] {
			if strings.HasPrefix(joined, squadRoomPrefix) && joined != roomID {
				h.leaveLocked(connID, joined)
			}
		}
	}
	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[string]struct{})
		h.rooms[roomID] = room
	}
	room[connID] = struct{}{}
	h.joins[connID][roomID] = struct{}{}
}

func (h *roomHub) leave(connID, roomID string) {
	h.mu.Lock()
	h.leaveLocked(connID, roomID)
	h.mu.Unlock()
}

func (h *roomHub) leaveAll(connID string) {
	h.mu.Lock()
	h.leaveAllLocked(connID)
	h.mu.Unlock()
}

func (h *roomHub) leaveLocked(connID, roomID string) {
	if room, ok := h.rooms[roomID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if joined, ok := h.joins[connID]; ok {
		delete(joined, roomID)
	}
}

func (h *roomHub) leaveAllLocked(connID string) {
	for roomID := range h.joins[connID] {
		h.leaveLocked(connID, roomID)
	}
}

// sendTo delivers a frame to a single connection.
func (h *roomHub) sendTo(connID string, f frame) {
	h.mu.Lock()
	p := h.peers[connID]
	h.mu.Unlock()
	if p != nil {
		_ = p.writeFrame(f)
	}
}

// broadcast delivers a frame to every member of a room. exceptConnID may
// be empty.
func (h *roomHub) broadcast(roomID string, f frame, exceptConnID string) {
	for _, p := range h.roomPeers(roomID, exceptConnID) {
		_ = p.writeFrame(f)
	}
}

// broadcastAll delivers a frame to every live connection.
func (h *roomHub) broadcastAll(f frame) {
	h.mu.Lock()
	peers := make([]*peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()
	for _, p := range peers {
		_ = p.writeFrame(f)
	}
}

func (h *roomHub) roomPeers(roomID, exceptConnID string) []*peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	peers := make([]*peer, 0, len(room))
	for connID := range room {
		if connID == exceptConnID {
			continue
		}
		if p, ok := h.peers[connID]; ok {
			peers = append(peers, p)
		}
	}
	return peers
}

// members returns the connection ids currently in a room.
func (h *roomHub) members(roomID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	ids := make([]string, 0, len(room))
	for connID := range room {
		ids = append(ids, connID)
	}
	return ids
}

// inRoom reports a membership, for tests and join bookkeeping.
func (h *roomHub) inRoom(connID, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[roomID][connID]
	return ok
}
