package mempool_test

import (
	"testing"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/mempool"
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

func TestUpsertAndCount(t *testing.T) {
	mp := mempool.New()

	tx1 := newSignedTx(t, 1)
	tx2 := newSignedTx(t, 2)

	if err := mp.Upsert(tx1); err != nil {
		t.Fatalf("Upsert: %s", err)
	}
	if err := mp.Upsert(tx2); err != nil {
		t.Fatalf("Upsert: %s", err)
	}

	if got := mp.Count(); got != 2 {
		t.Fatalf("got count %d, want 2", got)
	}
}

func TestDelete(t *testing.T) {
	mp := mempool.New()

	tx := newSignedTx(t, 1)
	if err := mp.Upsert(tx); err != nil {
		t.Fatalf("Upsert: %s", err)
	}

	if err := mp.Delete(tx); err != nil {
		t.Fatalf("Delete: %s", err)
	}

	if got := mp.Count(); got != 0 {
		t.Fatalf("got count %d, want 0", got)
	}
}

func TestCopy_ExcludesGivenHashes(t *testing.T) {
	mp := mempool.New()

	tx1 := newSignedTx(t, 1)
	tx2 := newSignedTx(t, 2)

	if err := mp.Upsert(tx1); err != nil {
		t.Fatalf("Upsert: %s", err)
	}
	if err := mp.Upsert(tx2); err != nil {
		t.Fatalf("Upsert: %s", err)
	}

	tx1Hash, err := tx1.Hash()
	if err != nil {
		t.Fatalf("Hash: %s", err)
	}

	excluded := map[string]struct{}{tx1Hash: {}}

	got := mp.Copy(excluded)
	if len(got) != 1 {
		t.Fatalf("got %d transactions, want 1", len(got))
	}

	gotHash, err := got[0].Hash()
	if err != nil {
		t.Fatalf("Hash: %s", err)
	}
	if gotHash == tx1Hash {
		t.Fatalf("excluded transaction was returned by Copy")
	}
}

func TestHas(t *testing.T) {
	mp := mempool.New()

	tx := newSignedTx(t, 1)
	hash, err := tx.Hash()
	if err != nil {
		t.Fatalf("Hash: %s", err)
	}

	if mp.Has(hash) {
		t.Fatalf("expected Has to report false before Upsert")
	}

	if err := mp.Upsert(tx); err != nil {
		t.Fatalf("Upsert: %s", err)
	}

	if !mp.Has(hash) {
		t.Fatalf("expected Has to report true after Upsert")
	}
}
