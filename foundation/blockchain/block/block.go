// Package block implements the proof-of-work block: a header committing
// to an ordered transaction list via a Merkle root, mined until its
// double-SHA256 hash falls under the fixed TARGET.
package block

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/merkle"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
)

// TARGET is the fixed 64-hex-digit upper bound a valid header hash must
// be strictly less than. There is no difficulty adjustment: this value
// never changes.
const TARGET = "000029ffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"

// Errors returned by Validate/Verify/FromJSON.
var (
	ErrMalformedHeader      = errors.New("block: malformed header")
	ErrInvalidRoot          = errors.New("block: merkle root does not match transactions")
	ErrBadTransaction       = errors.New("block: a transaction failed verification")
	ErrDuplicateTransaction = errors.New("block: duplicate transaction in block")
	ErrMissingField         = errors.New("block: json is missing a required field")
)

// Header holds the four fields that are hashed to identify a Block. The
// hashed form (signature.Canonical) orders keys lexicographically, so it
// does not depend on the struct's field order. Every field, the
// timestamp included, is stored exactly as mined and never recomputed,
// so re-hashing a header reproduces the mined hash.
type Header struct {
	PrevHash  string  `json:"prev_hash"`
	Root      string  `json:"root"`
	Timestamp float64 `json:"timestamp"`
	Nonce     uint64  `json:"nonce"`
}

// Block is a header plus its ordered transaction list. Immutable once
// mined.
type Block struct {
	Header       Header                    `json:"header"`
	Transactions []transaction.Transaction `json:"transactions"`
}

// EventHandler receives progress narration during mining.
type EventHandler func(v string, args ...any)

func noopEvent(string, ...any) {}

// Mine builds a candidate block on top of prevHash and increments the
// nonce, starting from zero, until the header hash satisfies TARGET. The
// timestamp is fixed once at the start of the loop and is never
// refreshed.
func Mine(prevHash string, txs []transaction.Transaction, ev EventHandler) (Block, error) {
	if ev == nil {
		ev = noopEvent
	}

	if txs == nil {
		txs = []transaction.Transaction{}
	}

	txHashes := make([]string, len(txs))
	for i, tx := range txs {
		h, err := tx.Hash()
		if err != nil {
			return Block{}, fmt.Errorf("hash transaction %d: %w", i, err)
		}
		txHashes[i] = h
	}

	tree, err := merkle.NewTree(txHashes)
	if err != nil {
		return Block{}, fmt.Errorf("build merkle tree: %w", err)
	}

	header := Header{
		PrevHash:  prevHash,
		Root:      tree.Root(),
		Timestamp: float64(time.Now().UTC().UnixNano()) / 1e9,
		Nonce:     0,
	}

	ev("block: Mine: started: prevHash[%s]", prevHash)
	defer ev("block: Mine: completed")

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("block: Mine: attempts[%d]", attempts)
		}

		hash, err := signature.Hash(header)
		if err != nil {
			return Block{}, fmt.Errorf("hash header: %w", err)
		}

		if hash < TARGET {
			ev("block: Mine: SOLVED: hash[%s] attempts[%d]", hash, attempts)
			return Block{Header: header, Transactions: txs}, nil
		}

		header.Nonce++
	}
}

// Hash returns the block's identity: the double-SHA256 of its
// canonically serialized header.
func (b Block) Hash() (string, error) {
	return signature.Hash(b.Header)
}

// Validate performs a structural, context-free check: every field is
// present with the expected semantic type.
func (b Block) Validate(isGenesis bool) error {
	if !isGenesis {
		if len(b.Header.PrevHash) != 0 && len(b.Header.PrevHash) != signature.HashLen {
			return fmt.Errorf("%w: previous hash has invalid length", ErrMalformedHeader)
		}
	}

	if b.Header.Timestamp <= 0 {
		return fmt.Errorf("%w: non-positive timestamp", ErrMalformedHeader)
	}

	if b.Transactions == nil {
		return fmt.Errorf("%w: transactions field missing", ErrMalformedHeader)
	}

	return nil
}

// Verify checks (a) the recomputed Merkle root matches the header, (b)
// every transaction verifies, and (c) there are no duplicate
// transactions within the block.
func (b Block) Verify() error {
	txHashes := make([]string, len(b.Transactions))
	seen := make(map[string]struct{}, len(b.Transactions))

	for i, tx := range b.Transactions {
		if err := tx.Verify(); err != nil {
			return fmt.Errorf("%w: transaction %d: %s", ErrBadTransaction, i, err)
		}

		h, err := tx.Hash()
		if err != nil {
			return fmt.Errorf("%w: transaction %d: %s", ErrBadTransaction, i, err)
		}

		if _, dup := seen[h]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, h)
		}
		seen[h] = struct{}{}

		txHashes[i] = h
	}

	tree, err := merkle.NewTree(txHashes)
	if err != nil {
		return fmt.Errorf("build merkle tree: %w", err)
	}

	if tree.Root() != b.Header.Root {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidRoot, tree.Root(), b.Header.Root)
	}

	return nil
}

// ToJSON serializes the block to its canonical JSON text.
func (b Block) ToJSON() (string, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal block: %w", err)
	}

	return string(raw), nil
}

// FromJSON deserializes a block, checking every required field is
// present as a key before decoding it.
func FromJSON(s string) (Block, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Block{}, fmt.Errorf("unmarshal block json: %w", err)
	}

	for _, field := range []string{"header", "transactions"} {
		if _, ok := raw[field]; !ok {
			return Block{}, fmt.Errorf("%w: %s", ErrMissingField, field)
		}
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw["header"], &header); err != nil {
		return Block{}, fmt.Errorf("unmarshal block header: %w", err)
	}
	for _, field := range []string{"prev_hash", "root", "timestamp", "nonce"} {
		if _, ok := header[field]; !ok {
			return Block{}, fmt.Errorf("%w: header.%s", ErrMissingField, field)
		}
	}

	var b Block
	if err := json.Unmarshal([]byte(s), &b); err != nil {
		return Block{}, fmt.Errorf("unmarshal block: %w", err)
	}

	return b, nil
}
