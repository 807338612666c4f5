// Package miner implements the honest miner core: a tick-based
// pool→resolve→mine→broadcast loop. Everything an adversary needs to
// override is expressed through the Hooks capability interface rather
// than a subclass.
package miner

import (
	"context"
	"fmt"
	"time"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/block"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/chain"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/mempool"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
)

// EventHandler receives progress narration.
type EventHandler func(v string, args ...any)

func noopEvent(string, ...any) {}

// Hooks is the capability interface an adversary implementation
// provides to override the honest miner's default behavior at each of
// its six decision points.
type Hooks interface {
	// TxPoolFilter returns the subset of pending transactions eligible
	// for the next candidate block.
	TxPoolFilter(pending []transaction.Transaction) []transaction.Transaction

	// ChooseParent returns the hash the next block should be mined on
	// top of. resolvedTip is the chain's current canonical tip.
	ChooseParent(c *chain.Chain, resolvedTip block.Block) (string, error)

	// BroadcastPolicy reports whether a freshly mined block should be
	// broadcast immediately.
	BroadcastPolicy(b block.Block) bool

	// Drain returns any previously withheld blocks that should now be
	// broadcast, in release order. Called once per tick after mining.
	Drain() []block.Block

	// OnInboundBlock is called after a valid block is added to the
	// local chain.
	OnInboundBlock(b block.Block)

	// OnInboundTx is called before a transaction would be added to the
	// pool. If handled is true, the default pool insertion is skipped.
	OnInboundTx(tx transaction.Transaction) (handled bool)
}

// honestHooks is the default, no-op Hooks implementation: an honest
// miner follows the default tick loop with none of an adversary's
// overrides.
type honestHooks struct{}

func (honestHooks) TxPoolFilter(pending []transaction.Transaction) []transaction.Transaction {
	return pending
}

func (honestHooks) ChooseParent(_ *chain.Chain, resolvedTip block.Block) (string, error) {
	return resolvedTip.Hash()
}

func (honestHooks) BroadcastPolicy(block.Block) bool { return true }

func (honestHooks) Drain() []block.Block { return nil }

func (honestHooks) OnInboundBlock(block.Block) {}

func (honestHooks) OnInboundTx(transaction.Transaction) bool { return false }

// BroadcastFunc sends a mined block to the rest of the network. The
// transport it rides on (socket, WebSocket, in-process channel) is
// outside the miner core's concern.
type BroadcastFunc func(b block.Block) error

// Config wires a Miner to its chain store, pool, hooks, and transport.
type Config struct {
	Chain          *chain.Chain
	Pool           *mempool.Mempool
	Hooks          Hooks
	BroadcastBlock BroadcastFunc
	EvHandler      EventHandler
}

// Miner runs the tick loop: resolve, snapshot pool, build, mine, add,
// broadcast.
type Miner struct {
	chain          *chain.Chain
	pool           *mempool.Mempool
	hooks          Hooks
	broadcastBlock BroadcastFunc
	ev             EventHandler
}

// New constructs a Miner. A nil Hooks defaults to honest behavior, and a
// nil BroadcastBlock is a valid no-op transport (useful in tests).
func New(cfg Config) *Miner {
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = honestHooks{}
	}

	ev := cfg.EvHandler
	if ev == nil {
		ev = noopEvent
	}

	broadcast := cfg.BroadcastBlock
	if broadcast == nil {
		broadcast = func(block.Block) error { return nil }
	}

	return &Miner{
		chain:          cfg.Chain,
		pool:           cfg.Pool,
		hooks:          hooks,
		broadcastBlock: broadcast,
		ev:             ev,
	}
}

// Tick performs one iteration of the mining loop: resolve the chain,
// snapshot the pool (filtered by the hooks), build and mine a
// candidate block on the chosen parent, add it locally, and broadcast
// it (or withhold it) per the hooks' decision. It also drains and
// broadcasts any blocks the hooks now consider releasable.
func (m *Miner) Tick() error {
	tip, err := m.chain.Resolve()
	if err != nil {
		return fmt.Errorf("resolve chain: %w", err)
	}

	prevHash, err := m.hooks.ChooseParent(m.chain, tip)
	if err != nil {
		return fmt.Errorf("choose parent: %w", err)
	}

	pending := m.pool.Copy(nil)
	txs := m.hooks.TxPoolFilter(pending)

	blk, err := block.Mine(prevHash, txs, m.blockEvent)
	if err != nil {
		return fmt.Errorf("mine block: %w", err)
	}

	if err := m.chain.Add(blk); err != nil {
		return fmt.Errorf("add mined block: %w", err)
	}

	for _, tx := range txs {
		_ = m.pool.Delete(tx)
	}

	if m.hooks.BroadcastPolicy(blk) {
		if err := m.broadcastBlock(blk); err != nil {
			m.ev("miner: Tick: broadcast failed: %s", err)
		}
	}

	for _, withheld := range m.hooks.Drain() {
		if err := m.broadcastBlock(withheld); err != nil {
			m.ev("miner: Tick: broadcast of withheld block failed: %s", err)
		}
	}

	return nil
}

func (m *Miner) blockEvent(v string, args ...any) {
	m.ev(v, args...)
}

// HandleInboundTransaction verifies and pools a transaction received
// over the wire, consulting the hooks before the default insertion.
func (m *Miner) HandleInboundTransaction(tx transaction.Transaction) error {
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("verify inbound transaction: %w", err)
	}

	if handled := m.hooks.OnInboundTx(tx); handled {
		return nil
	}

	if err := m.pool.Upsert(tx); err != nil {
		return fmt.Errorf("pool inbound transaction: %w", err)
	}

	return nil
}

// HandleInboundBlock validates and adds a block received over the
// wire, clears its transactions from the pool, and notifies the hooks.
// If Add fails because the previous block is unknown, the caller is
// expected to request the missing ancestor over whatever transport it
// uses; this just surfaces that error.
func (m *Miner) HandleInboundBlock(b block.Block) error {
	if err := m.chain.Add(b); err != nil {
		return fmt.Errorf("add inbound block: %w", err)
	}

	for _, tx := range b.Transactions {
		_ = m.pool.Delete(tx)
	}

	m.hooks.OnInboundBlock(b)

	return nil
}

// Run calls Tick in a loop until ctx is done, sleeping interval between
// attempts. Errors are logged via the EventHandler and do not stop the
// loop.
func (m *Miner) Run(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.Tick(); err != nil {
			m.ev("miner: Run: tick failed: %s", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
