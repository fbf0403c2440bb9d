// Package keyring manages the per-role access key sets and the inverse
// key-to-role index used at registration and login.
package keyring

import (
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sablegrid/syndnet/internal/terminal/domain"
)

// tokenBytes sizes generated keys; eight hex characters per key.
const tokenBytes = 4

// resettable lists the roles whose key sets may be rotated at runtime.
var resettable = map[domain.Role]bool{
	domain.RoleOperative: true,
	domain.RoleCommander: true,
	domain.RoleClient:    true,
}

// Keyring holds the role keyed credential sets. A credential string maps
// to at most one role at any time; the inverse index is rebuilt on every
// rotation.
type Keyring struct {
	mu    sync.Mutex
	keys  map[domain.Role][]string
	byKey map[string]domain.Role
}

// Load parses the ACCESS_KEYS_JSON document (role name to key list).
// Unknown role names are rejected so a typo cannot silently create an
// unreachable credential pool.
func Load(keysJSON string) (*Keyring, error) {
	if keysJSON == "" {
		return nil, fmt.Errorf("access keys json is required")
	}

	var raw map[string][]string
	if err := json.Unmarshal([]byte(keysJSON), &raw); err != nil {
		return nil, fmt.Errorf("decode access keys json: %w", err)
	}

	keys := make(map[domain.Role][]string, len(raw))
	for name, list := range raw {
		role, ok := domain.ParseRole(name)
		if !ok {
			return nil, fmt.Errorf("access keys json names unknown role %q", name)
		}
		keys[role] = append([]string(nil), list...)
	}

	ring := &Keyring{keys: keys}
	if err := ring.rebuildIndex(); err != nil {
		return nil, err
	}
	return ring, nil
}

func (k *Keyring) rebuildIndex() error {
	byKey := make(map[string]domain.Role)
	for role, list := range k.keys {
		for _, key := range list {
			if key == "" {
				return fmt.Errorf("role %s has an empty access key", role)
			}
			if existing, dup := byKey[key]; dup && existing != role {
				return fmt.Errorf("access key assigned to both %s and %s", existing, role)
			}
			byKey[key] = role
		}
	}
	k.byKey = byKey
	return nil
}

// RoleForKey resolves a credential to its role.
func (k *Keyring) RoleForKey(key string) (domain.Role, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	role, ok := k.byKey[key]
	return role, ok
}

// Keys returns a copy of one role's credential set.
func (k *Keyring) Keys(role domain.Role) []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.keys[role]...)
}

// All returns a copy of every role's credential set.
func (k *Keyring) All() map[domain.Role][]string {
	k.mu.Lock()
	defer k.mu.Unlock()
	all := make(map[domain.Role][]string, len(k.keys))
	for role, list := range k.keys {
		all[role] = append([]string(nil), list...)
	}
	return all
}

// Reset regenerates the credential set for one role, preserving its
// cardinality, and rebuilds the inverse index. The new keys are returned
// for the caller's one-time disclosure; there is no other channel for
// distributing them.
func (k *Keyring) Reset(role domain.Role) ([]string, error) {
	if !resettable[role] {
		return nil, fmt.Errorf("role %s cannot have its keys reset", role)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	current, ok := k.keys[role]
	if !ok {
		return nil, fmt.Errorf("role %s is not present in the key set", role)
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("role %s has no keys to rotate", role)
	}

	fresh := make([]string, len(current))
	for i := range fresh {
		token, err := newToken()
		if err != nil {
			return nil, err
		}
		fresh[i] = token
	}

	previous := k.keys[role]
	k.keys[role] = fresh
	if err := k.rebuildIndex(); err != nil {
		k.keys[role] = previous
		_ = k.rebuildIndex()
		return nil, err
	}
	return append([]string(nil), fresh...), nil
}

func newToken() (string, error) {
	var b [tokenBytes]byte
	if _, err := crand.Read(b[:]); err != nil {
		return "", fmt.Errorf("read random token: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
