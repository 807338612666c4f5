package miner_test

import (
	"testing"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/block"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/chain"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/mempool"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/miner"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
)

func newSignedTx(t *testing.T, nonce uint64) transaction.Transaction {
	t.Helper()

	senderSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}
	receiverSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}

	tx, err := transaction.Create(senderSK.PublicKey, receiverSK.PublicKey, 10, nonce, senderSK, "")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}

	return tx
}

func TestTick_MinesPendingTransactionsAndAdvancesChain(t *testing.T) {
	c, err := chain.New(nil)
	if err != nil {
		t.Fatalf("chain.New: %s", err)
	}
	pool := mempool.New()

	tx := newSignedTx(t, 1)
	if err := pool.Upsert(tx); err != nil {
		t.Fatalf("Upsert: %s", err)
	}

	var broadcasted int
	m := miner.New(miner.Config{
		Chain: c,
		Pool:  pool,
		BroadcastBlock: func(b block.Block) error {
			broadcasted++
			return nil
		},
	})

	if err := m.Tick(); err != nil {
		t.Fatalf("Tick: %s", err)
	}

	if pool.Count() != 0 {
		t.Fatalf("expected the mined transaction to leave the pool")
	}
	if broadcasted != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", broadcasted)
	}

	tips := c.Tips()
	if len(tips) != 1 {
		t.Fatalf("expected a single tip after mining, got %d", len(tips))
	}
	for _, length := range tips {
		if length != 1 {
			t.Fatalf("expected chain length 1, got %d", length)
		}
	}
}

func TestHandleInboundTransaction_PoolsVerifiedTx(t *testing.T) {
	c, err := chain.New(nil)
	if err != nil {
		t.Fatalf("chain.New: %s", err)
	}
	pool := mempool.New()

	m := miner.New(miner.Config{Chain: c, Pool: pool})

	tx := newSignedTx(t, 1)
	if err := m.HandleInboundTransaction(tx); err != nil {
		t.Fatalf("HandleInboundTransaction: %s", err)
	}

	if pool.Count() != 1 {
		t.Fatalf("expected the transaction to be pooled")
	}
}

func TestHandleInboundBlock_RemovesMinedTxFromPool(t *testing.T) {
	c, err := chain.New(nil)
	if err != nil {
		t.Fatalf("chain.New: %s", err)
	}
	pool := mempool.New()

	tx := newSignedTx(t, 1)
	if err := pool.Upsert(tx); err != nil {
		t.Fatalf("Upsert: %s", err)
	}

	genesisHash := c.GenesisHash()
	blk, err := block.Mine(genesisHash, []transaction.Transaction{tx}, nil)
	if err != nil {
		t.Fatalf("Mine: %s", err)
	}

	m := miner.New(miner.Config{Chain: c, Pool: pool})

	if err := m.HandleInboundBlock(blk); err != nil {
		t.Fatalf("HandleInboundBlock: %s", err)
	}

	if pool.Count() != 0 {
		t.Fatalf("expected the now-mined transaction to be cleared from the pool")
	}

	tip, err := c.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %s", err)
	}
	tipHash, _ := tip.Hash()
	blkHash, _ := blk.Hash()
	if tipHash != blkHash {
		t.Fatalf("expected the inbound block to become the resolved tip")
	}
}
