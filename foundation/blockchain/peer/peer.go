// Package peer tracks the participants in a network: every node, role,
// public key, and address a broadcast might need to reach.
package peer

import (
	"sync"

	"github.com/google/uuid"
)

// Role identifies what a peer does in the network. A peer can play more
// than one role in the demo topology (an adversary's cooperating SPV
// client is a distinct peer from its miner), so Role is attached
// per-entry rather than assumed singleton.
type Role string

// The roles the demo topology needs.
const (
	RoleMiner        Role = "miner"
	RoleVendor       Role = "vendor"
	RoleSPVClient    Role = "spv_client"
	RoleAdversary    Role = "adversary_miner"
	RoleAdversarySPV Role = "adversary_spv_client"
)

// Peer is one participant: its network address, role, and the public
// key it signs/receives transactions under.
type Peer struct {
	ID      string `json:"id"`
	Role    Role   `json:"role" validate:"required"`
	Address string `json:"address" validate:"required"`
	PubKey  string `json:"pub_key"`
}

// New constructs a Peer with a fresh identity.
func New(role Role, address, pubKey string) Peer {
	return Peer{
		ID:      uuid.NewString(),
		Role:    role,
		Address: address,
		PubKey:  pubKey,
	}
}

// Match reports whether two peers are the same entry.
func (p Peer) Match(other Peer) bool {
	return p.ID == other.ID
}

// Status is what a node reports about itself to the rest of the
// network: its resolved tip and the peers it currently knows about.
type Status struct {
	LatestBlockHash string `json:"latest_block_hash"`
	ChainLength     uint64 `json:"chain_length"`
	KnownPeers      []Peer `json:"known_peers"`
}

// Set is the registry of known peers, queryable by role or by public
// key, so a miner can find "the vendor" or "the bad SPV client" without
// hardcoding an address.
type Set struct {
	mu  sync.RWMutex
	set map[string]Peer
}

// NewSet constructs an empty peer registry.
func NewSet() *Set {
	return &Set{
		set: make(map[string]Peer),
	}
}

// Add registers a peer, replacing any existing entry with the same ID.
func (ps *Set) Add(p Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.set[p.ID] = p
}

// Remove drops a peer from the registry.
func (ps *Set) Remove(p Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, p.ID)
}

// Copy returns every known peer except self.
func (ps *Set) Copy(self Peer) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for _, p := range ps.set {
		if p.ID != self.ID {
			peers = append(peers, p)
		}
	}

	return peers
}

// ByRole returns every known peer playing the given role.
func (ps *Set) ByRole(role Role) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for _, p := range ps.set {
		if p.Role == role {
			peers = append(peers, p)
		}
	}

	return peers
}

// ByPubKey finds the peer registered under the given hex public key.
func (ps *Set) ByPubKey(pubKey string) (Peer, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, p := range ps.set {
		if p.PubKey == pubKey {
			return p, true
		}
	}

	return Peer{}, false
}
