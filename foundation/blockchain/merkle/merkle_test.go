package merkle_test

import (
	"testing"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/merkle"
)

func TestNewTree_Empty(t *testing.T) {
	tree, err := merkle.NewTree(nil)
	if err != nil {
		t.Fatalf("NewTree(nil): %s", err)
	}

	if got := tree.Root(); got != merkle.EmptyRoot {
		t.Fatalf("got root %s, exp %s", got, merkle.EmptyRoot)
	}
}

func TestNewTree_SingleLeaf(t *testing.T) {
	tree, err := merkle.NewTree([]string{"tx1"})
	if err != nil {
		t.Fatalf("NewTree: %s", err)
	}

	if got := tree.Root(); got == merkle.EmptyRoot || got == "" {
		t.Fatalf("expected a non-empty root, got %s", got)
	}
}

func TestNewTree_Deterministic(t *testing.T) {
	hashes := []string{"tx1", "tx2", "tx3"}

	t1, err := merkle.NewTree(hashes)
	if err != nil {
		t.Fatalf("NewTree: %s", err)
	}
	t2, err := merkle.NewTree(hashes)
	if err != nil {
		t.Fatalf("NewTree: %s", err)
	}

	if t1.Root() != t2.Root() {
		t.Fatalf("expected identical roots for identical input, got %s and %s", t1.Root(), t2.Root())
	}
}

func TestNewTree_OddCountDuplicatesLast(t *testing.T) {
	even, err := merkle.NewTree([]string{"tx1", "tx2", "tx3", "tx3"})
	if err != nil {
		t.Fatalf("NewTree(even): %s", err)
	}

	odd, err := merkle.NewTree([]string{"tx1", "tx2", "tx3"})
	if err != nil {
		t.Fatalf("NewTree(odd): %s", err)
	}

	if even.Root() != odd.Root() {
		t.Fatalf("odd-count tree should duplicate its last leaf: got %s and %s", odd.Root(), even.Root())
	}
}

func TestBuildAndVerifyProof(t *testing.T) {
	hashes := []string{"tx1", "tx2", "tx3", "tx4", "tx5"}

	tree, err := merkle.NewTree(hashes)
	if err != nil {
		t.Fatalf("NewTree: %s", err)
	}

	for _, h := range hashes {
		proof, ok := tree.BuildProof(h)
		if !ok {
			t.Fatalf("BuildProof(%s): expected to find leaf", h)
		}

		if !merkle.VerifyProof(proof, tree.Root()) {
			t.Fatalf("VerifyProof(%s): expected proof to verify", h)
		}
	}
}

func TestVerifyProof_RejectsWrongRoot(t *testing.T) {
	hashes := []string{"tx1", "tx2", "tx3", "tx4"}

	tree, err := merkle.NewTree(hashes)
	if err != nil {
		t.Fatalf("NewTree: %s", err)
	}

	proof, ok := tree.BuildProof("tx2")
	if !ok {
		t.Fatalf("BuildProof: expected to find leaf")
	}

	otherTree, err := merkle.NewTree([]string{"txA", "txB", "txC", "txD"})
	if err != nil {
		t.Fatalf("NewTree: %s", err)
	}

	if merkle.VerifyProof(proof, otherTree.Root()) {
		t.Fatalf("expected proof to fail against an unrelated root")
	}
}

func TestBuildProof_MissingLeaf(t *testing.T) {
	tree, err := merkle.NewTree([]string{"tx1", "tx2"})
	if err != nil {
		t.Fatalf("NewTree: %s", err)
	}

	if _, ok := tree.BuildProof("does-not-exist"); ok {
		t.Fatalf("expected BuildProof to report the leaf as missing")
	}
}
