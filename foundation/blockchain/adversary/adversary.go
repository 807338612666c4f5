// Package adversary implements the double-spend attacker: a
// miner.Hooks implementation carrying the INIT/FORK/FIRE state machine.
// It starts withholding a private chain once its own payment to the
// cooperating bad-SPV peer appears in a public block, switches to FIRE
// on the bad-SPV's return payment, and releases the private chain once
// it outgrows the public blocks seen since the fork, reorging them
// away. Any code updating both the withheld queue
// and the public-chain counter acquires the queue's lock first.
package adversary

import (
	"sync"
	"time"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/block"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/chain"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/miner"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
)

// Adversary implements miner.Hooks.
var _ miner.Hooks = (*Adversary)(nil)

// Mode is the adversary's current phase in one attack cycle. Mode is
// monotonic within a cycle: Init -> Fork -> Fire -> Init. Re-entry to
// Fork requires a fresh trigger transaction.
type Mode int

const (
	ModeInit Mode = iota
	ModeFork
	ModeFire
)

func (m Mode) String() string {
	switch m {
	case ModeInit:
		return "INIT"
	case ModeFork:
		return "FORK"
	case ModeFire:
		return "FIRE"
	default:
		return "UNKNOWN"
	}
}

// ancestorPollInterval is how often ChooseParent re-checks the chain
// store for its private tip's previous hash while busy-waiting. A
// condition variable would avoid the poll but isn't necessary at this
// scale.
const ancestorPollInterval = 100 * time.Millisecond

// EventHandler receives progress narration.
type EventHandler func(v string, args ...any)

func noopEvent(string, ...any) {}

// Adversary is the double-spend attacker's state. Mode and the fork
// point share one lock; the withheld queue and public-chain counter
// each have their own, always acquired withheld-then-counter.
type Adversary struct {
	mu        sync.Mutex
	mode      Mode
	forkBlock block.Block

	withheldMu sync.Mutex
	withheld   []block.Block

	pubCountMu sync.Mutex
	pubCount   uint64

	exclMu   sync.Mutex
	excluded map[string]struct{}

	releasedMu sync.Mutex
	released   []block.Block

	// selfPubKey is this miner's own public key (hex); badSPVPubKey and
	// vendorPubKey identify the cooperating bad-SPV peer and the vendor
	// the double-spend targets, given at construction or set later by
	// SetTargets; they are guarded by mu.
	selfPubKey   string
	badSPVPubKey string
	vendorPubKey string

	ev EventHandler
}

// New constructs an Adversary starting in ModeInit.
func New(selfPubKey, badSPVPubKey, vendorPubKey string, ev EventHandler) *Adversary {
	if ev == nil {
		ev = noopEvent
	}

	return &Adversary{
		mode:         ModeInit,
		excluded:     make(map[string]struct{}),
		selfPubKey:   selfPubKey,
		badSPVPubKey: badSPVPubKey,
		vendorPubKey: vendorPubKey,
		ev:           ev,
	}
}

// SetTargets records the cooperating bad-SPV and targeted vendor public
// keys once the peer directory has them. Until both are set no
// transaction can match a trigger, so the adversary behaves honestly.
func (a *Adversary) SetTargets(badSPVPubKey, vendorPubKey string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.badSPVPubKey = badSPVPubKey
	a.vendorPubKey = vendorPubKey
}

// Mode reports the adversary's current phase.
func (a *Adversary) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.mode
}

// PubChainCount reports the number of public blocks observed since
// fork activation.
func (a *Adversary) PubChainCount() uint64 {
	a.pubCountMu.Lock()
	defer a.pubCountMu.Unlock()

	return a.pubCount
}

// WithheldLen reports the number of blocks currently sitting in the
// private queue.
func (a *Adversary) WithheldLen() int {
	a.withheldMu.Lock()
	defer a.withheldMu.Unlock()

	return len(a.withheld)
}

// TxPoolFilter drops every transaction whose hash is in the exclusion
// set built by OnInboundTx. This exclusion holds in every mode,
// including after a return to ModeInit.
func (a *Adversary) TxPoolFilter(pending []transaction.Transaction) []transaction.Transaction {
	a.exclMu.Lock()
	defer a.exclMu.Unlock()

	if len(a.excluded) == 0 {
		return pending
	}

	out := make([]transaction.Transaction, 0, len(pending))
	for _, tx := range pending {
		hash, err := tx.Hash()
		if err != nil {
			continue
		}
		if _, excluded := a.excluded[hash]; excluded {
			continue
		}
		out = append(out, tx)
	}

	return out
}

// ChooseParent returns the resolved public tip in ModeInit. Otherwise
// it mines on its own private tip: the most recently withheld block,
// or the fork point if nothing has been withheld yet, busy-waiting
// until that block is present in the chain store.
func (a *Adversary) ChooseParent(c *chain.Chain, resolvedTip block.Block) (string, error) {
	a.mu.Lock()
	mode := a.mode
	fork := a.forkBlock
	a.mu.Unlock()

	if mode == ModeInit {
		return resolvedTip.Hash()
	}

	a.withheldMu.Lock()
	privateTip := fork
	if n := len(a.withheld); n > 0 {
		privateTip = a.withheld[n-1]
	}
	a.withheldMu.Unlock()

	prevHash, err := privateTip.Hash()
	if err != nil {
		return "", err
	}

	for {
		if _, ok := c.Block(prevHash); ok {
			return prevHash, nil
		}
		time.Sleep(ancestorPollInterval)
	}
}

// BroadcastPolicy withholds every block mined outside ModeInit. In
// ModeFire it also checks the release condition: once the private
// queue outgrows the observed public chain, every withheld block is
// queued for release (picked up by Drain) and the adversary returns to
// ModeInit.
func (a *Adversary) BroadcastPolicy(b block.Block) bool {
	a.mu.Lock()
	mode := a.mode
	a.mu.Unlock()

	switch mode {
	case ModeInit:
		return true

	case ModeFork:
		a.withheldMu.Lock()
		a.withheld = append(a.withheld, b)
		a.withheldMu.Unlock()
		return false

	case ModeFire:
		a.withheldMu.Lock()
		a.pubCountMu.Lock()
		a.withheld = append(a.withheld, b)

		var toRelease []block.Block
		if uint64(len(a.withheld)) > a.pubCount {
			toRelease = a.withheld
			a.withheld = nil
		}
		a.pubCountMu.Unlock()
		a.withheldMu.Unlock()

		if toRelease != nil {
			a.mu.Lock()
			a.mode = ModeInit
			a.mu.Unlock()

			a.releasedMu.Lock()
			a.released = append(a.released, toRelease...)
			a.releasedMu.Unlock()

			a.ev("adversary: FIRE: releasing %d withheld blocks, returning to INIT", len(toRelease))
		}

		return false

	default:
		return false
	}
}

// Drain returns and clears any blocks a release decision has queued.
func (a *Adversary) Drain() []block.Block {
	a.releasedMu.Lock()
	defer a.releasedMu.Unlock()

	if len(a.released) == 0 {
		return nil
	}

	out := a.released
	a.released = nil

	return out
}

// OnInboundBlock watches public blocks for the trigger that activates
// ModeFork: a transaction from this miner to the cooperating bad-SPV
// peer. Once forked, every subsequent public block simply advances the
// public-chain counter.
func (a *Adversary) OnInboundBlock(b block.Block) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != ModeInit {
		a.pubCountMu.Lock()
		a.pubCount++
		a.pubCountMu.Unlock()
		return
	}

	for _, tx := range b.Transactions {
		if tx.SenderPublicKey() == a.selfPubKey && tx.ReceiverPublicKey() == a.badSPVPubKey {
			a.mode = ModeFork
			a.forkBlock = b

			// The counter measures public progress since this fork
			// activated, so a fresh cycle starts it from zero.
			a.pubCountMu.Lock()
			a.pubCount = 0
			a.pubCountMu.Unlock()
			a.ev("adversary: FORK activated")
			return
		}
	}
}

// OnInboundTx activates ModeFire when it observes the bad-SPV's return
// payment to this miner, and unconditionally excludes any bad-SPV ->
// vendor payment from future blocks: the transaction the vendor is
// about to be cheated with must never be mined.
func (a *Adversary) OnInboundTx(tx transaction.Transaction) bool {
	a.mu.Lock()
	badSPV, vendor := a.badSPVPubKey, a.vendorPubKey
	if a.mode == ModeFork && tx.SenderPublicKey() == badSPV && tx.ReceiverPublicKey() == a.selfPubKey {
		a.mode = ModeFire
		a.ev("adversary: FIRE activated")
	}
	a.mu.Unlock()

	if badSPV != "" && tx.SenderPublicKey() == badSPV && tx.ReceiverPublicKey() == vendor {
		if hash, err := tx.Hash(); err == nil {
			a.exclMu.Lock()
			a.excluded[hash] = struct{}{}
			a.exclMu.Unlock()
		}
		return true
	}

	return false
}
