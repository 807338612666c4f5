package peer_test

import (
	"testing"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/peer"
)

func TestByRole(t *testing.T) {
	ps := peer.NewSet()

	vendor := peer.New(peer.RoleVendor, "host-a:9080", "pk-vendor")
	spv := peer.New(peer.RoleAdversarySPV, "host-b:9080", "pk-spv")
	miner := peer.New(peer.RoleMiner, "host-c:9080", "pk-miner")

	ps.Add(vendor)
	ps.Add(spv)
	ps.Add(miner)

	vendors := ps.ByRole(peer.RoleVendor)
	if len(vendors) != 1 || !vendors[0].Match(vendor) {
		t.Fatalf("expected exactly the vendor entry, got %v", vendors)
	}

	if got := ps.ByRole(peer.RoleAdversary); len(got) != 0 {
		t.Fatalf("expected no adversary entries, got %v", got)
	}
}

func TestByPubKey(t *testing.T) {
	ps := peer.NewSet()

	spv := peer.New(peer.RoleAdversarySPV, "host-b:9080", "pk-spv")
	ps.Add(spv)

	found, ok := ps.ByPubKey("pk-spv")
	if !ok || !found.Match(spv) {
		t.Fatalf("expected to find the SPV entry by public key")
	}

	if _, ok := ps.ByPubKey("pk-unknown"); ok {
		t.Fatalf("expected an unknown public key to miss")
	}
}

func TestCopy_ExcludesSelf(t *testing.T) {
	ps := peer.NewSet()

	self := peer.New(peer.RoleMiner, "host-a:9080", "pk-self")
	other := peer.New(peer.RoleVendor, "host-b:9080", "pk-other")

	ps.Add(self)
	ps.Add(other)

	peers := ps.Copy(self)
	if len(peers) != 1 || !peers[0].Match(other) {
		t.Fatalf("expected Copy to return every peer but self, got %v", peers)
	}
}

func TestRemove(t *testing.T) {
	ps := peer.NewSet()

	p := peer.New(peer.RoleVendor, "host-b:9080", "pk")
	ps.Add(p)
	ps.Remove(p)

	if got := ps.ByRole(peer.RoleVendor); len(got) != 0 {
		t.Fatalf("expected the removed peer to be gone, got %v", got)
	}
}
