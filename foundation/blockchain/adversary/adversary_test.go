package adversary_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/adversary"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/block"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/chain"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
)

type keypair struct {
	sk  *ecdsa.PrivateKey
	pub string
}

func newKeypair(t *testing.T) keypair {
	t.Helper()

	sk, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}

	return keypair{sk: sk, pub: signature.PublicKeyToHex(sk.PublicKey)}
}

func mineBlock(t *testing.T, prevHash string, txs []transaction.Transaction) block.Block {
	t.Helper()

	blk, err := block.Mine(prevHash, txs, nil)
	if err != nil {
		t.Fatalf("Mine: %s", err)
	}

	return blk
}

func pubKeyOf(t *testing.T, kp keypair) ecdsa.PublicKey {
	t.Helper()
	pk, err := signature.HexToPublicKey(kp.pub)
	if err != nil {
		t.Fatalf("HexToPublicKey: %s", err)
	}
	return pk
}

func TestModeTransitions_InitForkFireInit(t *testing.T) {
	miner := newKeypair(t)
	badSPV := newKeypair(t)
	vendor := newKeypair(t)

	a := adversary.New(miner.pub, badSPV.pub, vendor.pub, nil)

	if a.Mode() != adversary.ModeInit {
		t.Fatalf("expected initial mode INIT, got %s", a.Mode())
	}

	// A public block paying the bad-SPV from the miner triggers FORK.
	payToBadSPV, err := transaction.Create(pubKeyOf(t, miner), pubKeyOf(t, badSPV), 50, 1, miner.sk, "")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}
	forkBlock := mineBlock(t, "", []transaction.Transaction{payToBadSPV})

	a.OnInboundBlock(forkBlock)
	if a.Mode() != adversary.ModeFork {
		t.Fatalf("expected FORK after observing miner->badSPV payment, got %s", a.Mode())
	}

	// A further public block just advances the counter.
	unrelated := mineBlock(t, "", nil)
	a.OnInboundBlock(unrelated)
	if got := a.PubChainCount(); got != 1 {
		t.Fatalf("expected public chain count 1, got %d", got)
	}

	// The bad-SPV's return payment to the miner triggers FIRE.
	returnPayment, err := transaction.Create(pubKeyOf(t, badSPV), pubKeyOf(t, miner), 50, 1, badSPV.sk, "DoubleSpend")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}
	if handled := a.OnInboundTx(returnPayment); handled {
		t.Fatalf("did not expect the return payment itself to be excluded")
	}
	if a.Mode() != adversary.ModeFire {
		t.Fatalf("expected FIRE after observing badSPV->miner return payment, got %s", a.Mode())
	}
}

func TestOnInboundTx_ExcludesBadSPVToVendorPayment(t *testing.T) {
	miner := newKeypair(t)
	badSPV := newKeypair(t)
	vendor := newKeypair(t)

	a := adversary.New(miner.pub, badSPV.pub, vendor.pub, nil)

	cheatTx, err := transaction.Create(pubKeyOf(t, badSPV), pubKeyOf(t, vendor), 50, 1, badSPV.sk, "")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}

	if handled := a.OnInboundTx(cheatTx); !handled {
		t.Fatalf("expected the bad-SPV->vendor payment to be marked handled (excluded)")
	}

	filtered := a.TxPoolFilter([]transaction.Transaction{cheatTx})
	if len(filtered) != 0 {
		t.Fatalf("expected TxPoolFilter to drop the excluded transaction")
	}
}

func TestBroadcastPolicy_WithholdsDuringForkAndReleasesOnFire(t *testing.T) {
	miner := newKeypair(t)
	badSPV := newKeypair(t)
	vendor := newKeypair(t)

	a := adversary.New(miner.pub, badSPV.pub, vendor.pub, nil)

	// Drive into FORK mode.
	payToBadSPV, err := transaction.Create(pubKeyOf(t, miner), pubKeyOf(t, badSPV), 50, 1, miner.sk, "")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}
	a.OnInboundBlock(mineBlock(t, "", []transaction.Transaction{payToBadSPV}))
	if a.Mode() != adversary.ModeFork {
		t.Fatalf("expected FORK mode")
	}

	forkedBlock := mineBlock(t, "", nil)
	if broadcast := a.BroadcastPolicy(forkedBlock); broadcast {
		t.Fatalf("expected a FORK-mode block to be withheld, not broadcast")
	}
	if got := a.WithheldLen(); got != 1 {
		t.Fatalf("expected 1 withheld block, got %d", got)
	}

	// Trigger FIRE via the return payment.
	returnPayment, err := transaction.Create(pubKeyOf(t, badSPV), pubKeyOf(t, miner), 50, 1, badSPV.sk, "DoubleSpend")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}
	a.OnInboundTx(returnPayment)
	if a.Mode() != adversary.ModeFire {
		t.Fatalf("expected FIRE mode")
	}

	// Public chain count is still 0: the very next FIRE-mode block makes
	// the queue outgrow it (2 > 0) and triggers release.
	fireBlock := mineBlock(t, "", nil)
	if broadcast := a.BroadcastPolicy(fireBlock); broadcast {
		t.Fatalf("BroadcastPolicy itself never returns true in FIRE mode; release happens via Drain")
	}

	released := a.Drain()
	if len(released) != 2 {
		t.Fatalf("expected both withheld blocks to be released, got %d", len(released))
	}
	if a.Mode() != adversary.ModeInit {
		t.Fatalf("expected a return to INIT after release, got %s", a.Mode())
	}
	if got := a.WithheldLen(); got != 0 {
		t.Fatalf("expected the withheld queue to be empty after release, got %d", got)
	}
}

func TestChooseParent_HonestModeFollowsResolvedTip(t *testing.T) {
	c, err := chain.New(nil)
	if err != nil {
		t.Fatalf("chain.New: %s", err)
	}

	miner := newKeypair(t)
	badSPV := newKeypair(t)
	vendor := newKeypair(t)
	a := adversary.New(miner.pub, badSPV.pub, vendor.pub, nil)

	tip, err := c.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}

	prevHash, err := a.ChooseParent(c, tip)
	if err != nil {
		t.Fatalf("ChooseParent: %s", err)
	}

	tipHash, _ := tip.Hash()
	if prevHash != tipHash {
		t.Fatalf("expected ChooseParent to follow the resolved tip in INIT mode")
	}
}
