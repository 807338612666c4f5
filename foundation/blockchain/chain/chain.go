// Package chain implements the fork-tolerant, multi-tip block store: a
// tree rooted at a fixed genesis block, every leaf ("tip") tracked with
// its length from genesis, resolved to a single canonical chain on
// demand by longest-chain-with-PoW-tie-break.
package chain

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/block"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/merkle"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
)

// GenesisTimestamp is the fixed timestamp baked into the sentinel
// genesis block so every node derives the same genesis hash.
const GenesisTimestamp = 1577836800.0 // 2020-01-01T00:00:00Z

// medianWindow is the number of ancestor timestamps consulted when
// validating a new block's timestamp.
const medianWindow = 11

// Errors returned by Add. The chain is left unmutated on any of these.
var (
	ErrUnknownParent    = errors.New("chain: previous block does not exist in the store")
	ErrHashAboveTarget  = errors.New("chain: header hash does not satisfy the proof-of-work target")
	ErrDuplicateTx      = errors.New("chain: transaction already appears in the chain being extended")
	ErrStaleTimestamp   = errors.New("chain: timestamp is not strictly greater than the ancestor median")
	ErrAlreadyHaveBlock = errors.New("chain: block already present in the store")
)

// EventHandler receives progress narration.
type EventHandler func(v string, args ...any)

func noopEvent(string, ...any) {}

// node is what the store keeps per known block: the block itself plus
// its hash, cached so ancestry walks don't re-hash repeatedly.
type node struct {
	hash  string
	block block.Block
}

// Chain is the multi-tip block store.
type Chain struct {
	mu sync.RWMutex

	blocks map[string]node   // hash -> node, the full tree.
	tips   map[string]uint64 // tip hash -> chain length from genesis.

	genesisHash string

	evHandler EventHandler
}

// genesisHeader returns the fixed, pre-agreed genesis header. Genesis is
// not mined: every node derives the same genesis hash from this fixed
// header rather than solving its proof-of-work (see DESIGN.md).
func genesisHeader() block.Header {
	return block.Header{
		PrevHash:  "",
		Root:      merkle.EmptyRoot,
		Timestamp: GenesisTimestamp,
		Nonce:     0,
	}
}

// New constructs a Chain containing only the fixed genesis block.
func New(ev EventHandler) (*Chain, error) {
	if ev == nil {
		ev = noopEvent
	}

	genesis := block.Block{Header: genesisHeader(), Transactions: []transaction.Transaction{}}

	hash, err := genesis.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash genesis block: %w", err)
	}

	c := Chain{
		blocks:      map[string]node{hash: {hash: hash, block: genesis}},
		tips:        map[string]uint64{hash: 0},
		genesisHash: hash,
		evHandler:   ev,
	}

	return &c, nil
}

// GenesisHash returns the hash of the fixed genesis block.
func (c *Chain) GenesisHash() string {
	return c.genesisHash
}

// Block returns the block stored under hash.
func (c *Chain) Block(hash string) (block.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.blocks[hash]
	if !ok {
		return block.Block{}, false
	}

	return n.block, true
}

// Tips returns a copy of the tip-hash -> length map.
func (c *Chain) Tips() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cpy := make(map[string]uint64, len(c.tips))
	for h, l := range c.tips {
		cpy[h] = l
	}

	return cpy
}

// CanonicalChain returns the blocks of the current single canonical tip,
// genesis first. It does not resolve forks; call Resolve first if more
// than one tip may exist.
func (c *Chain) CanonicalChain() []block.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var tipHash string
	for hash := range c.tips {
		tipHash = hash
		break
	}

	ancestry := c.ancestryLocked(c.blocks[tipHash])

	blocks := make([]block.Block, len(ancestry))
	for i, n := range ancestry {
		blocks[len(ancestry)-1-i] = n.block
	}

	return blocks
}

// Add validates b and, if valid, inserts it into the store. b always
// becomes a tip. The store is left unmutated if any check fails.
func (c *Chain) Add(b block.Block) error {
	if err := b.Validate(false); err != nil {
		return err
	}
	if err := b.Verify(); err != nil {
		return err
	}

	hash, err := b.Hash()
	if err != nil {
		return fmt.Errorf("hash block: %w", err)
	}

	if hash >= block.TARGET {
		return fmt.Errorf("%w: %s", ErrHashAboveTarget, hash)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.blocks[hash]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyHaveBlock, hash)
	}

	parent, ok := c.blocks[b.Header.PrevHash]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParent, b.Header.PrevHash)
	}

	ancestry := c.ancestryLocked(parent)

	if err := checkNoDuplicateTx(b, ancestry); err != nil {
		return err
	}
	if err := checkTimestamp(b, ancestry); err != nil {
		return err
	}

	c.evHandler("chain: Add: accepted block[%s] on parent[%s]", hash, b.Header.PrevHash)

	c.blocks[hash] = node{hash: hash, block: b}

	if length, wasTip := c.tips[b.Header.PrevHash]; wasTip {
		delete(c.tips, b.Header.PrevHash)
		c.tips[hash] = length + 1
	} else {
		// ancestry runs from the parent back to genesis inclusive, so
		// its size is exactly the new block's height.
		c.tips[hash] = uint64(len(ancestry))
	}

	return nil
}

// ancestryLocked returns the chain of blocks from n back to (and
// including) genesis, nearest ancestor first. Caller must hold c.mu.
func (c *Chain) ancestryLocked(n node) []node {
	var chain []node
	cur := n
	for {
		chain = append(chain, cur)
		if cur.hash == c.genesisHash {
			break
		}
		next, ok := c.blocks[cur.block.Header.PrevHash]
		if !ok {
			break
		}
		cur = next
	}

	return chain
}

func checkNoDuplicateTx(b block.Block, ancestry []node) error {
	seen := make(map[string]struct{})
	for _, n := range ancestry {
		for _, tx := range n.block.Transactions {
			h, err := tx.Hash()
			if err != nil {
				continue
			}
			seen[h] = struct{}{}
		}
	}

	for _, tx := range b.Transactions {
		h, err := tx.Hash()
		if err != nil {
			return fmt.Errorf("hash transaction: %w", err)
		}
		if _, dup := seen[h]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTx, h)
		}
	}

	return nil
}

func checkTimestamp(b block.Block, ancestry []node) error {
	window := ancestry
	if len(window) > medianWindow {
		window = window[:medianWindow]
	}

	timestamps := make([]float64, len(window))
	for i, n := range window {
		timestamps[i] = n.block.Header.Timestamp
	}

	median := medianOf(timestamps)

	if b.Header.Timestamp <= median {
		return fmt.Errorf("%w: got %f, median %f", ErrStaleTimestamp, b.Header.Timestamp, median)
	}

	return nil
}

func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}

	return (sorted[mid-1] + sorted[mid]) / 2
}

// Resolve picks the single canonical tip: the longest chain, with ties
// broken by total proof-of-work (the sum of nonces from genesis to tip),
// with any remaining tie broken by lexicographically greatest hash. As a
// side effect it prunes every block not on the canonical chain.
func (c *Chain) Resolve() (block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.tips) == 1 {
		for hash := range c.tips {
			return c.blocks[hash].block, nil
		}
	}

	var maxLen uint64
	for _, length := range c.tips {
		if length > maxLen {
			maxLen = length
		}
	}

	var candidates []string
	for hash, length := range c.tips {
		if length == maxLen {
			candidates = append(candidates, hash)
		}
	}

	winner := candidates[0]
	if len(candidates) > 1 {
		winner = c.breakTie(candidates)
	}

	winnerNode := c.blocks[winner]
	ancestry := c.ancestryLocked(winnerNode)

	newBlocks := make(map[string]node, len(ancestry))
	for _, n := range ancestry {
		newBlocks[n.hash] = n
	}

	c.evHandler("chain: Resolve: canonical tip[%s] length[%d] pruned[%d]", winner, maxLen, len(c.blocks)-len(newBlocks))

	c.blocks = newBlocks
	c.tips = map[string]uint64{winner: maxLen}

	return winnerNode.block, nil
}

// breakTie picks, among equal-length tips, the one whose chain has the
// greatest total nonce sum; any further tie is broken by the
// lexicographically greatest hash. Caller must hold c.mu.
func (c *Chain) breakTie(candidates []string) string {
	bestHash := ""
	var bestPOW uint64

	sort.Strings(candidates)

	for _, hash := range candidates {
		pow := c.chainPOWLocked(c.blocks[hash])
		if pow > bestPOW || (pow == bestPOW && hash > bestHash) {
			bestPOW = pow
			bestHash = hash
		}
	}

	return bestHash
}

// chainPOWLocked sums the nonce of every block from n back to genesis.
// Caller must hold c.mu.
func (c *Chain) chainPOWLocked(n node) uint64 {
	var sum uint64
	for _, a := range c.ancestryLocked(n) {
		sum += a.block.Header.Nonce
	}

	return sum
}
