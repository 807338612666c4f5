// Package wire defines the broadcast frame contract between peers: a
// single-character tag identifying the payload kind, followed by its
// body. The transport that carries a frame (socket, WebSocket,
// in-process channel) is out of scope; this package only defines what
// goes on the wire.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Tag identifies what follows it in a frame.
type Tag byte

// The three frame kinds the demo topology exchanges.
const (
	TagBlock       Tag = 'b' // a mined block, broadcast to the network.
	TagTransaction Tag = 't' // a signed transaction, broadcast to the network.
	TagProduct     Tag = 'p' // a vendor's delivery, keyed by the paying transaction's hash.
)

// ErrEmptyFrame is returned when a frame has no tag byte to read.
var ErrEmptyFrame = errors.New("wire: empty frame")

// ErrUnknownTag is returned when a frame's tag byte matches none of the
// known kinds.
var ErrUnknownTag = errors.New("wire: unknown frame tag")

// BlockFrame envelopes a mined block's canonical JSON for broadcast.
type BlockFrame struct {
	BlkJSON string `json:"blk_json"`
}

// TransactionFrame envelopes a signed transaction's canonical JSON for
// broadcast.
type TransactionFrame struct {
	TxJSON string `json:"tx_json"`
}

// EncodeBlock builds a tagged block frame.
func EncodeBlock(blockJSON string) ([]byte, error) {
	return encode(TagBlock, BlockFrame{BlkJSON: blockJSON})
}

// EncodeTransaction builds a tagged transaction frame.
func EncodeTransaction(txJSON string) ([]byte, error) {
	return encode(TagTransaction, TransactionFrame{TxJSON: txJSON})
}

// EncodeProduct builds a tagged product-delivery frame. Unlike block
// and transaction frames there is no JSON envelope: the payload is
// nothing more than the hex hash of the transaction the product was
// exchanged for.
func EncodeProduct(txHash string) ([]byte, error) {
	frame := make([]byte, 0, len(txHash)+1)
	frame = append(frame, byte(TagProduct))
	frame = append(frame, txHash...)

	return frame, nil
}

func encode(tag Tag, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal frame body: %w", err)
	}

	frame := make([]byte, 0, len(body)+1)
	frame = append(frame, byte(tag))
	frame = append(frame, body...)

	return frame, nil
}

// Decode splits a raw frame into its tag and the remaining bytes: a
// JSON envelope for block and transaction frames, the bare hex
// transaction hash for product frames.
func Decode(frame []byte) (Tag, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, ErrEmptyFrame
	}

	tag := Tag(frame[0])
	switch tag {
	case TagBlock, TagTransaction, TagProduct:
		return tag, frame[1:], nil
	default:
		return 0, nil, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
}
