package wire_test

import (
	"encoding/json"
	"testing"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/wire"
)

func TestEncodeDecode_Block(t *testing.T) {
	frame, err := wire.EncodeBlock(`{"header":{}}`)
	if err != nil {
		t.Fatalf("EncodeBlock: %s", err)
	}

	tag, body, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	if tag != wire.TagBlock {
		t.Fatalf("got tag %q, want %q", tag, wire.TagBlock)
	}

	var bf wire.BlockFrame
	if err := json.Unmarshal(body, &bf); err != nil {
		t.Fatalf("unmarshal body: %s", err)
	}
	if bf.BlkJSON != `{"header":{}}` {
		t.Fatalf("got %q, want the original block json", bf.BlkJSON)
	}
}

func TestEncodeDecode_Transaction(t *testing.T) {
	frame, err := wire.EncodeTransaction(`{"sender":"a"}`)
	if err != nil {
		t.Fatalf("EncodeTransaction: %s", err)
	}

	tag, body, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	if tag != wire.TagTransaction {
		t.Fatalf("got tag %q, want %q", tag, wire.TagTransaction)
	}

	var tf wire.TransactionFrame
	if err := json.Unmarshal(body, &tf); err != nil {
		t.Fatalf("unmarshal body: %s", err)
	}
	if tf.TxJSON != `{"sender":"a"}` {
		t.Fatalf("got %q, want the original transaction json", tf.TxJSON)
	}
}

func TestEncodeDecode_Product(t *testing.T) {
	frame, err := wire.EncodeProduct("deadbeef")
	if err != nil {
		t.Fatalf("EncodeProduct: %s", err)
	}

	tag, body, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %s", err)
	}
	if tag != wire.TagProduct {
		t.Fatalf("got tag %q, want %q", tag, wire.TagProduct)
	}

	// A product frame's payload is the bare transaction hash, no JSON.
	if string(body) != "deadbeef" {
		t.Fatalf("got %q, want deadbeef", body)
	}
}

func TestDecode_EmptyFrame(t *testing.T) {
	if _, _, err := wire.Decode(nil); err == nil {
		t.Fatalf("expected an error decoding an empty frame")
	}
}

func TestDecode_UnknownTag(t *testing.T) {
	if _, _, err := wire.Decode([]byte("z{}")); err == nil {
		t.Fatalf("expected an error decoding an unknown tag")
	}
}
