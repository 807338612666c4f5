// Package spv implements a Simplified Payment Verification client: a
// peer that holds no chain of its own, only the transactions it has
// received and the Merkle inclusion proofs a full node sends it. The
// Vendor role layers the "sells a product for coins" behavior the
// double-spend demo pays off against on top of the client.
package spv

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/merkle"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/wire"
)

// ErrUnknownTransaction is returned when a proof or hash refers to a
// transaction this client has never recorded.
var ErrUnknownTransaction = errors.New("spv: unknown transaction")

// Client tracks the transactions this peer has sent or received,
// verifying inclusion against headers it learns about over the wire.
// It never materializes a chain: balance and proof state are entirely
// local bookkeeping.
type Client struct {
	mu  sync.RWMutex
	txs map[string]transaction.Transaction // hash -> transaction
}

// NewClient constructs an empty SPV client.
func NewClient() *Client {
	return &Client{
		txs: make(map[string]transaction.Transaction),
	}
}

// RecordTransaction remembers a transaction this client sent or
// received, so a later proof can be matched against it.
func (c *Client) RecordTransaction(tx transaction.Transaction) (string, error) {
	hash, err := tx.Hash()
	if err != nil {
		return "", fmt.Errorf("hash transaction: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.txs[hash] = tx

	return hash, nil
}

// Transaction returns a previously recorded transaction by hash.
func (c *Client) Transaction(hash string) (transaction.Transaction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tx, ok := c.txs[hash]
	return tx, ok
}

// VerifyInclusion checks a Merkle inclusion proof for a recorded
// transaction against a header root a full node reported, without ever
// holding the block's full transaction list.
func (c *Client) VerifyInclusion(proof merkle.Proof, headerRoot string) (bool, error) {
	c.mu.RLock()
	_, ok := c.txs[proof.TxHash]
	c.mu.RUnlock()

	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownTransaction, proof.TxHash)
	}

	return merkle.VerifyProof(proof, headerRoot), nil
}

// RequestBalance is a stub hook: balance bookkeeping belongs to
// whichever full node answers the request, which is out of scope for
// this package (persistence/accounting is a non-goal). The contract is
// defined here so callers have a stable shape to wire a transport to.
func (c *Client) RequestBalance(pubKeyHex string) (uint64, error) {
	return 0, errors.New("spv: balance lookup requires a full-node transport, not implemented here")
}

// Vendor is an SPV client playing the "sells a product for coins" role
// in the double-spend demo: once paid, it delivers the product by
// broadcasting the paying transaction's hash tagged as a
// product-delivered frame.
type Vendor struct {
	*Client
}

// ProductPrice is the fixed price of the product the vendor sells.
const ProductPrice = 50

// NewVendor constructs a Vendor with its own transaction ledger.
func NewVendor() *Vendor {
	return &Vendor{Client: NewClient()}
}

// SendProduct builds the product-delivery frame for a paying
// transaction's hash. The caller is responsible for addressing it to
// the buyer (resolved from the transaction's sender via the peer
// directory) and putting it on the wire.
func (v *Vendor) SendProduct(txHash string) ([]byte, error) {
	if _, ok := v.Transaction(txHash); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, txHash)
	}

	return wire.EncodeProduct(txHash)
}
