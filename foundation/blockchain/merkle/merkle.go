// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.

// Package merkle provides a commitment over an ordered sequence of
// transaction hashes, plus the sibling-path proof extraction an SPV
// client needs to check a transaction's inclusion without the full
// transaction list.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// EmptyRoot is the documented root value for a tree built from zero
// leaves: the hash of the empty byte string.
var EmptyRoot = func() string {
	h := sha256.Sum256(nil)
	return hex.EncodeToString(h[:])
}()

// Leaf is a single transaction's commitment identity.
type Leaf struct {
	TxHash string
}

func (l Leaf) hash() []byte {
	h := sha256.Sum256([]byte(l.TxHash))
	return h[:]
}

// Node is a node in the tree: a leaf, or an internal node with two
// children. Root has Parent == nil.
type Node struct {
	Parent *Node
	Left   *Node
	Right  *Node
	Hash   []byte
	Leaf   Leaf
	isLeaf bool
	isDup  bool
}

// Tree is the Merkle commitment over an ordered list of transaction
// hashes.
type Tree struct {
	root   *Node
	leaves []*Node
}

// NewTree builds a tree over the ordered list of transaction hashes.
// An empty list produces a tree whose Root() is EmptyRoot.
func NewTree(txHashes []string) (*Tree, error) {
	if len(txHashes) == 0 {
		return &Tree{}, nil
	}

	leaves := make([]*Node, 0, len(txHashes))
	for _, h := range txHashes {
		leaf := Leaf{TxHash: h}
		leaves = append(leaves, &Node{Leaf: leaf, Hash: leaf.hash(), isLeaf: true})
	}

	// Odd level: duplicate the last node.
	if len(leaves)%2 == 1 {
		last := leaves[len(leaves)-1]
		leaves = append(leaves, &Node{Leaf: last.Leaf, Hash: last.Hash, isLeaf: true, isDup: true})
	}

	root, err := buildIntermediate(leaves)
	if err != nil {
		return nil, err
	}

	return &Tree{root: root, leaves: leaves}, nil
}

// buildIntermediate pairs adjacent nodes left to right, duplicating the
// final node of an odd-length level, until a single root remains.
func buildIntermediate(level []*Node) (*Node, error) {
	if len(level) == 0 {
		return nil, errors.New("merkle: cannot build from an empty level")
	}
	if len(level) == 1 {
		return level[0], nil
	}

	if len(level)%2 == 1 {
		last := level[len(level)-1]
		level = append(level, &Node{Hash: last.Hash, isDup: true})
	}

	var next []*Node
	for i := 0; i < len(level); i += 2 {
		left, right := level[i], level[i+1]

		h := sha256.New()
		h.Write(left.Hash)
		h.Write(right.Hash)

		parent := &Node{Left: left, Right: right, Hash: h.Sum(nil)}
		left.Parent = parent
		right.Parent = parent

		next = append(next, parent)
	}

	return buildIntermediate(next)
}

// Root returns the lowercase-hex Merkle root, or EmptyRoot if the tree
// has no leaves.
func (t *Tree) Root() string {
	if t == nil || t.root == nil {
		return EmptyRoot
	}

	return hex.EncodeToString(t.root.Hash)
}

// Step is one level of a Merkle proof: the sibling hash, and whether
// that sibling sits to the left of the node being proved.
type Step struct {
	SiblingHash string
	SiblingLeft bool
}

// Proof is the ordered sibling path from a leaf to the root.
type Proof struct {
	TxHash string
	Steps  []Step
}

// BuildProof returns the sibling path for the first leaf matching
// txHash. The boolean result is false if txHash is not a leaf.
func (t *Tree) BuildProof(txHash string) (Proof, bool) {
	if t == nil {
		return Proof{}, false
	}

	for _, leaf := range t.leaves {
		if leaf.Leaf.TxHash != txHash || leaf.isDup {
			continue
		}

		proof := Proof{TxHash: txHash}
		node := leaf
		for node.Parent != nil {
			parent := node.Parent
			if parent.Left == node {
				proof.Steps = append(proof.Steps, Step{
					SiblingHash: hex.EncodeToString(parent.Right.Hash),
					SiblingLeft: false,
				})
			} else {
				proof.Steps = append(proof.Steps, Step{
					SiblingHash: hex.EncodeToString(parent.Left.Hash),
					SiblingLeft: true,
				})
			}
			node = parent
		}

		return proof, true
	}

	return Proof{}, false
}

// VerifyProof recomputes the root from a proof and checks it against
// the expected root.
func VerifyProof(proof Proof, expectedRoot string) bool {
	leaf := Leaf{TxHash: proof.TxHash}
	current := leaf.hash()

	for _, step := range proof.Steps {
		sib, err := hex.DecodeString(step.SiblingHash)
		if err != nil {
			return false
		}

		h := sha256.New()
		if step.SiblingLeft {
			h.Write(sib)
			h.Write(current)
		} else {
			h.Write(current)
			h.Write(sib)
		}
		current = h.Sum(nil)
	}

	return bytes.Equal(current, mustDecodeHex(expectedRoot))
}

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}
