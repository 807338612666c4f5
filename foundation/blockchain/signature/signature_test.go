package signature_test

import (
	"testing"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
)

func TestCanonical_OrdersKeysLexicographically(t *testing.T) {
	// Struct field order deliberately disagrees with tag order; the
	// canonical form must sort by key regardless.
	v := struct {
		Zebra int    `json:"zebra"`
		Alpha string `json:"alpha"`
		Mid   bool   `json:"mid"`
	}{Zebra: 1, Alpha: "x", Mid: true}

	got, err := signature.Canonical(v)
	if err != nil {
		t.Fatalf("Canonical: %s", err)
	}

	want := `{"alpha":"x","mid":true,"zebra":1}`
	if string(got) != want {
		t.Fatalf("canonical form: got %s, want %s", got, want)
	}
}

func TestCanonical_Deterministic(t *testing.T) {
	type nested struct {
		B []int          `json:"b"`
		A map[string]int `json:"a"`
	}

	v1 := nested{B: []int{3, 1, 2}, A: map[string]int{"x": 1, "y": 2, "z": 3}}
	v2 := nested{B: []int{3, 1, 2}, A: map[string]int{"z": 3, "y": 2, "x": 1}}

	c1, err := signature.Canonical(v1)
	if err != nil {
		t.Fatalf("Canonical v1: %s", err)
	}
	c2, err := signature.Canonical(v2)
	if err != nil {
		t.Fatalf("Canonical v2: %s", err)
	}

	if string(c1) != string(c2) {
		t.Fatalf("semantically equal values produced different canonical bytes:\n%s\n%s", c1, c2)
	}
}

func TestHashBytes_KnownVector(t *testing.T) {
	// SHA256(SHA256("")) is a well-known constant.
	const want = "5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456"

	if got := signature.HashBytes(nil); got != want {
		t.Fatalf("double-SHA256 of empty input: got %s, want %s", got, want)
	}
}

func TestHash_EqualValuesEqualHashes(t *testing.T) {
	type header struct {
		PrevHash  string  `json:"prev_hash"`
		Root      string  `json:"root"`
		Timestamp float64 `json:"timestamp"`
		Nonce     uint64  `json:"nonce"`
	}

	a := header{PrevHash: "aa", Root: "bb", Timestamp: 1700000000.5, Nonce: 7}
	b := header{PrevHash: "aa", Root: "bb", Timestamp: 1700000000.5, Nonce: 7}

	ha, err := signature.Hash(a)
	if err != nil {
		t.Fatalf("Hash a: %s", err)
	}
	hb, err := signature.Hash(b)
	if err != nil {
		t.Fatalf("Hash b: %s", err)
	}

	if ha != hb {
		t.Fatalf("equal values hashed differently")
	}
	if len(ha) != signature.HashLen {
		t.Fatalf("expected a %d-char hex digest, got %d", signature.HashLen, len(ha))
	}

	b.Nonce = 8
	hc, err := signature.Hash(b)
	if err != nil {
		t.Fatalf("Hash c: %s", err)
	}
	if hc == ha {
		t.Fatalf("unequal values hashed identically")
	}
}

func TestSignVerify(t *testing.T) {
	sk, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}

	msg := map[string]any{"amount": 10, "to": "somebody"}

	sig, err := signature.Sign(msg, sk)
	if err != nil {
		t.Fatalf("Sign: %s", err)
	}

	if err := signature.Verify(msg, sig, sk.PublicKey); err != nil {
		t.Fatalf("Verify: %s", err)
	}

	other, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}
	if err := signature.Verify(msg, sig, other.PublicKey); err == nil {
		t.Fatalf("expected verification under the wrong key to fail")
	}

	tampered := map[string]any{"amount": 11, "to": "somebody"}
	if err := signature.Verify(tampered, sig, sk.PublicKey); err == nil {
		t.Fatalf("expected verification of a tampered message to fail")
	}
}

func TestPublicKeyHexRoundTrip(t *testing.T) {
	sk, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}

	hexPK := signature.PublicKeyToHex(sk.PublicKey)

	pk, err := signature.HexToPublicKey(hexPK)
	if err != nil {
		t.Fatalf("HexToPublicKey: %s", err)
	}

	if signature.PublicKeyToHex(pk) != hexPK {
		t.Fatalf("public key hex round trip is not stable")
	}

	if _, err := signature.HexToPublicKey("zz not hex"); err == nil {
		t.Fatalf("expected non-hex input to be rejected")
	}
}
