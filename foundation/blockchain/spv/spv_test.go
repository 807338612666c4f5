package spv_test

import (
	"testing"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/merkle"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/spv"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/wire"
)

func newSignedTx(t *testing.T) transaction.Transaction {
	t.Helper()

	senderSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}
	receiverSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}

	tx, err := transaction.Create(senderSK.PublicKey, receiverSK.PublicKey, 50, 1, senderSK, "")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}

	return tx
}

func TestVerifyInclusion(t *testing.T) {
	c := spv.NewClient()

	tx := newSignedTx(t)
	hash, err := c.RecordTransaction(tx)
	if err != nil {
		t.Fatalf("RecordTransaction: %s", err)
	}

	other1 := newSignedTx(t)
	other2 := newSignedTx(t)
	otherHash1, _ := other1.Hash()
	otherHash2, _ := other2.Hash()

	tree, err := merkle.NewTree([]string{hash, otherHash1, otherHash2})
	if err != nil {
		t.Fatalf("NewTree: %s", err)
	}

	proof, ok := tree.BuildProof(hash)
	if !ok {
		t.Fatalf("BuildProof: expected to find the recorded transaction")
	}

	ok, err = c.VerifyInclusion(proof, tree.Root())
	if err != nil {
		t.Fatalf("VerifyInclusion: %s", err)
	}
	if !ok {
		t.Fatalf("expected the proof to verify")
	}
}

func TestVerifyInclusion_UnknownTransaction(t *testing.T) {
	c := spv.NewClient()

	if _, err := c.VerifyInclusion(merkle.Proof{TxHash: "nope"}, merkle.EmptyRoot); err == nil {
		t.Fatalf("expected an error verifying an unrecorded transaction")
	}
}

func TestVendor_SendProduct(t *testing.T) {
	v := spv.NewVendor()

	tx := newSignedTx(t)
	hash, err := v.RecordTransaction(tx)
	if err != nil {
		t.Fatalf("RecordTransaction: %s", err)
	}

	frame, err := v.SendProduct(hash)
	if err != nil {
		t.Fatalf("SendProduct: %s", err)
	}

	tag, body, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	if tag != wire.TagProduct {
		t.Fatalf("got tag %q, want %q", tag, wire.TagProduct)
	}

	if string(body) != hash {
		t.Fatalf("got %q, want %q", body, hash)
	}
}

func TestVendor_SendProduct_UnknownTransaction(t *testing.T) {
	v := spv.NewVendor()

	if _, err := v.SendProduct("does-not-exist"); err == nil {
		t.Fatalf("expected an error sending product for an unrecorded transaction")
	}
}
