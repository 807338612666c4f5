// Package transaction implements the signed transfer record that moves
// value between accounts on the chain.
package transaction

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
)

// Errors returned by Verify and FromJSON.
var (
	ErrMissingField     = errors.New("transaction json is missing a required field")
	ErrInvalidSignature = errors.New("transaction signature does not verify")
)

// body is the part of a Transaction that gets signed: every field
// except the signature itself, in a fixed field order.
type body struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   uint64 `json:"amount"`
	Nonce    uint64 `json:"nonce"`
	Comment  string `json:"comment"`
}

// Transaction is a signed transfer record. Immutable after Create.
type Transaction struct {
	body
	Signature string `json:"signature"`
}

// Create signs the canonical serialization of every field but the
// signature and returns the resulting Transaction.
func Create(senderPK, receiverPK ecdsa.PublicKey, amount, nonce uint64, senderSK *ecdsa.PrivateKey, comment string) (Transaction, error) {
	b := body{
		Sender:   signature.PublicKeyToHex(senderPK),
		Receiver: signature.PublicKeyToHex(receiverPK),
		Amount:   amount,
		Nonce:    nonce,
		Comment:  comment,
	}

	sig, err := signature.Sign(b, senderSK)
	if err != nil {
		return Transaction{}, fmt.Errorf("signing transaction: %w", err)
	}

	return Transaction{body: b, Signature: sig}, nil
}

// Verify recomputes the signed message and validates the signature
// against the sender's public key.
func (tx Transaction) Verify() error {
	senderPK, err := signature.HexToPublicKey(tx.Sender)
	if err != nil {
		return fmt.Errorf("decode sender public key: %w", err)
	}

	if err := signature.Verify(tx.body, tx.Signature, senderPK); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	return nil
}

// Hash returns the transaction's identity: the double-SHA256 of its
// canonical serialization, including the signature.
func (tx Transaction) Hash() (string, error) {
	return signature.Hash(tx)
}

// SenderPublicKey returns the hex-encoded sender public key.
func (tx Transaction) SenderPublicKey() string { return tx.Sender }

// ReceiverPublicKey returns the hex-encoded receiver public key.
func (tx Transaction) ReceiverPublicKey() string { return tx.Receiver }

// AmountValue returns the transferred amount.
func (tx Transaction) AmountValue() uint64 { return tx.Amount }

// NonceValue returns the sender-chosen nonce distinguishing otherwise
// identical transfers.
func (tx Transaction) NonceValue() uint64 { return tx.Nonce }

// CommentValue returns the transaction's optional comment.
func (tx Transaction) CommentValue() string { return tx.Comment }

// ToJSON serializes the transaction to its canonical JSON text.
func (tx Transaction) ToJSON() (string, error) {
	b, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}

	return string(b), nil
}

// FromJSON deserializes a transaction, validating that every required
// field is present as a key in the decoded object before decoding it.
func FromJSON(s string) (Transaction, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Transaction{}, fmt.Errorf("unmarshal transaction json: %w", err)
	}

	required := []string{"sender", "receiver", "amount", "nonce", "comment", "signature"}
	for _, field := range required {
		if _, ok := raw[field]; !ok {
			return Transaction{}, fmt.Errorf("%w: %s", ErrMissingField, field)
		}
	}

	var tx Transaction
	if err := json.Unmarshal([]byte(s), &tx); err != nil {
		return Transaction{}, fmt.Errorf("unmarshal transaction: %w", err)
	}

	return tx, nil
}

// Equal reports whether two transactions serialize identically.
func Equal(a, b Transaction) bool {
	aj, err1 := a.ToJSON()
	bj, err2 := b.ToJSON()

	return err1 == nil && err2 == nil && aj == bj
}
