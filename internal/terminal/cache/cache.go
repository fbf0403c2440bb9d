// Package cache mirrors the record store's users, contracts and requests
// collections in memory. Snapshots are rebuilt wholesale and swapped
// atomically, so a reader never observes a half-rebuilt collection.
package cache

import (
	"context"
	"sync"

	"github.com/sablegrid/syndnet/internal/terminal/domain"
	"github.com/sablegrid/syndnet/internal/terminal/storage"
)

// Snapshot is one immutable view of the cached collections. Callers must
// not mutate a snapshot; Cache.Mutate produces a fresh one instead.
type Snapshot struct {
	Users     map[string]domain.Identity
	Contracts []domain.Contract
	Requests  []domain.ClientRequest
}

func emptySnapshot() *Snapshot {
	return &Snapshot{Users: make(map[string]domain.Identity)}
}

// ContractByID finds a contract in the snapshot.
func (s *Snapshot) ContractByID(id int) (domain.Contract, bool) {
	for _, contract := range s.Contracts {
		if contract.ID == id {
			return contract, true
		}
	}
	return domain.Contract{}, false
}

// RequestByID finds a client request in the snapshot.
func (s *Snapshot) RequestByID(id int) (domain.ClientRequest, bool) {
	for _, request := range s.Requests {
		if request.ID == id {
			return request, true
		}
	}
	return domain.ClientRequest{}, false
}

// NextContractID computes max-plus-one over the cached contracts. Two
// processes creating at the same time can mint the same id before either
// write lands in the store; the in-process dispatch lock prevents that
// locally and the cross-process window is accepted legacy behavior.
func (s *Snapshot) NextContractID() int {
	next := 1
	for _, contract := range s.Contracts {
		if contract.ID >= next {
			next = contract.ID + 1
		}
	}
	return next
}

// NextRequestID computes max-plus-one over the cached requests, with the
// same race window as NextContractID.
func (s *Snapshot) NextRequestID() int {
	next := 1
	for _, request := range s.Requests {
		if request.ID >= next {
			next = request.ID + 1
		}
	}
	return next
}

// KeyInUse reports whether any registered identity holds the credential.
func (s *Snapshot) KeyInUse(key string) bool {
	for _, identity := range s.Users {
		if identity.AccessKey == key {
			return true
		}
	}
	return false
}

// CommanderCount counts commanders registered to a squad.
func (s *Snapshot) CommanderCount(squad domain.Squad) int {
	count := 0
	for _, identity := range s.Users {
		if identity.Role == domain.RoleCommander && identity.Squad == squad {
			count++
		}
	}
	return count
}

// UserByCallsign finds the identity holding a callsign.
func (s *Snapshot) UserByCallsign(callsign string) (domain.Identity, bool) {
	for _, identity := range s.Users {
		if identity.Callsign == callsign {
			return identity, true
		}
	}
	return domain.Identity{}, false
}

// Cache owns the snapshot lifecycle over a record store.
type Cache struct {
	store storage.RecordStore

	mu   sync.RWMutex
	snap *Snapshot
}

// New wraps a record store with an empty snapshot.
func New(store storage.RecordStore) *Cache {
	return &Cache{store: store, snap: emptySnapshot()}
}

// Current returns the last complete snapshot.
func (c *Cache) Current() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Refresh rebuilds the snapshot from the store and swaps it in. On a
// read failure the previous snapshot stays current and the error is
// returned for logging; callers degrade to stale data rather than fail
// the command.
func (c *Cache) Refresh(ctx context.Context) error {
	userRecords, err := c.store.GetAllRecords(ctx, storage.CollectionUsers)
	if err != nil {
		return err
	}
	contractRecords, err := c.store.GetAllRecords(ctx, storage.CollectionContracts)
	if err != nil {
		return err
	}
	requestRecords, err := c.store.GetAllRecords(ctx, storage.CollectionRequests)
	if err != nil {
		return err
	}

	next := emptySnapshot()
	for _, record := range userRecords {
		identity, err := storage.ParseUser(record)
		if err != nil {
			continue
		}
		next.Users[identity.UID] = identity
	}
	for _, record := range contractRecords {
		contract, err := storage.ParseContract(record)
		if err != nil {
			continue
		}
		next.Contracts = append(next.Contracts, contract)
	}
	for _, record := range requestRecords {
		request, err := storage.ParseRequest(record)
		if err != nil {
			continue
		}
		next.Requests = append(next.Requests, request)
	}

	c.mu.Lock()
	c.snap = next
	c.mu.Unlock()
	return nil
}

// Mutate clones the current snapshot, applies fn to the clone, and swaps
// it in. Handlers use it to reflect a store write immediately without a
// full refresh.
func (c *Cache) Mutate(fn func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := &Snapshot{
		Users:     make(map[string]domain.Identity, len(c.snap.Users)),
		Contracts: append([]domain.Contract(nil), c.snap.Contracts...),
		Requests:  append([]domain.ClientRequest(nil), c.snap.Requests...),
	}
	for uid, identity := range c.snap.Users {
		clone.Users[uid] = identity
	}
	fn(clone)
	c.snap = clone
}
