package transaction_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
)

func TestCreateAndVerify(t *testing.T) {
	senderSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}
	receiverSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}

	tx, err := transaction.Create(senderSK.PublicKey, receiverSK.PublicKey, 100, 1, senderSK, "groceries")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}

	if err := tx.Verify(); err != nil {
		t.Fatalf("Verify: %s", err)
	}

	if tx.AmountValue() != 100 {
		t.Fatalf("expected amount 100, got %d", tx.AmountValue())
	}
	if tx.CommentValue() != "groceries" {
		t.Fatalf("expected the comment to survive signing")
	}
}

func TestVerify_RejectsTamperedAmount(t *testing.T) {
	senderSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}
	receiverSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}

	tx, err := transaction.Create(senderSK.PublicKey, receiverSK.PublicKey, 100, 1, senderSK, "")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}

	js, err := tx.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %s", err)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(js), &raw); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}
	raw["amount"] = 9999
	tampered, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal tampered: %s", err)
	}

	forged, err := transaction.FromJSON(string(tampered))
	if err != nil {
		t.Fatalf("FromJSON: %s", err)
	}

	if err := forged.Verify(); !errors.Is(err, transaction.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for a tampered amount, got %v", err)
	}
}

func TestJSONRoundTrip_FixedPoint(t *testing.T) {
	senderSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}
	receiverSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}

	tx, err := transaction.Create(senderSK.PublicKey, receiverSK.PublicKey, 7, 42, senderSK, "round trip")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}

	js, err := tx.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %s", err)
	}

	decoded, err := transaction.FromJSON(js)
	if err != nil {
		t.Fatalf("FromJSON: %s", err)
	}

	js2, err := decoded.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON after round trip: %s", err)
	}
	if js != js2 {
		t.Fatalf("serialize -> deserialize -> serialize is not a fixed point")
	}

	if !transaction.Equal(tx, decoded) {
		t.Fatalf("round trip changed the transaction")
	}
}

func TestFromJSON_MissingField(t *testing.T) {
	missing := `{"sender":"a","receiver":"b","amount":1,"nonce":1,"comment":""}`
	if _, err := transaction.FromJSON(missing); !errors.Is(err, transaction.ErrMissingField) {
		t.Fatalf("expected ErrMissingField for a missing signature, got %v", err)
	}

	if _, err := transaction.FromJSON(`not json`); err == nil {
		t.Fatalf("expected malformed json to be rejected")
	}
}

func TestHash_DistinguishedByNonce(t *testing.T) {
	senderSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}
	receiverSK, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}

	a, err := transaction.Create(senderSK.PublicKey, receiverSK.PublicKey, 5, 1, senderSK, "")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}
	b, err := transaction.Create(senderSK.PublicKey, receiverSK.PublicKey, 5, 2, senderSK, "")
	if err != nil {
		t.Fatalf("Create: %s", err)
	}

	aHash, err := a.Hash()
	if err != nil {
		t.Fatalf("Hash: %s", err)
	}
	bHash, err := b.Hash()
	if err != nil {
		t.Fatalf("Hash: %s", err)
	}

	if aHash == bHash {
		t.Fatalf("expected otherwise-identical transfers with different nonces to hash differently")
	}
}
