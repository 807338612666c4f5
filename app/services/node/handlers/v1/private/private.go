// Package private maintains the group of handlers for node-to-node
// traffic: block and transaction gossip, status exchange, and peer
// registration, all framed per the wire contract.
package private

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/block"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/chain"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/miner"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/peer"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/wire"
	"github.com/ridgelinelabs/forkchain/foundation/web"
)

// decodeTransactionFrame reads a raw, tag-prefixed body and unwraps its
// transaction envelope per the wire contract.
func decodeTransactionFrame(r *http.Request) (wire.TransactionFrame, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return wire.TransactionFrame{}, fmt.Errorf("reading body: %w", err)
	}

	tag, payload, err := wire.Decode(raw)
	if err != nil {
		return wire.TransactionFrame{}, err
	}
	if tag != wire.TagTransaction {
		return wire.TransactionFrame{}, fmt.Errorf("%w: expected transaction tag", wire.ErrUnknownTag)
	}

	var frame wire.TransactionFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return wire.TransactionFrame{}, fmt.Errorf("unmarshal transaction frame: %w", err)
	}

	return frame, nil
}

// decodeBlockFrame reads a raw, tag-prefixed body and unwraps its block
// envelope per the wire contract.
func decodeBlockFrame(r *http.Request) (wire.BlockFrame, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return wire.BlockFrame{}, fmt.Errorf("reading body: %w", err)
	}

	tag, payload, err := wire.Decode(raw)
	if err != nil {
		return wire.BlockFrame{}, err
	}
	if tag != wire.TagBlock {
		return wire.BlockFrame{}, fmt.Errorf("%w: expected block tag", wire.ErrUnknownTag)
	}

	var frame wire.BlockFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return wire.BlockFrame{}, fmt.Errorf("unmarshal block frame: %w", err)
	}

	return frame, nil
}

// Handlers manages the set of node-to-node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Chain *chain.Chain
	Miner *miner.Miner
	Peers *peer.Set
	Self  peer.Peer
}

// SubmitTransaction accepts a "t"-tagged transaction frame from a peer.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return err
	}

	frame, err := decodeTransactionFrame(r)
	if err != nil {
		return web.NewRequestError(err, http.StatusBadRequest)
	}

	tx, err := transaction.FromJSON(frame.TxJSON)
	if err != nil {
		return web.NewRequestError(fmt.Errorf("decoding transaction frame: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("inbound tx", "traceid", v.TraceID, "sender", tx.SenderPublicKey(), "receiver", tx.ReceiverPublicKey())

	if err := h.Miner.HandleInboundTransaction(tx); err != nil {
		return web.NewRequestError(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
	}{Status: "accepted"}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBlock accepts a "b"-tagged block frame, validates it, and
// attempts to add it to the local chain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return err
	}

	frame, err := decodeBlockFrame(r)
	if err != nil {
		return web.NewRequestError(err, http.StatusBadRequest)
	}

	blk, err := block.FromJSON(frame.BlkJSON)
	if err != nil {
		return web.NewRequestError(fmt.Errorf("decoding block frame: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("inbound block", "traceid", v.TraceID, "prevhash", blk.Header.PrevHash)

	if err := h.Miner.HandleInboundBlock(blk); err != nil {
		if errors.Is(err, chain.ErrUnknownParent) {
			// The caller is expected to request or wait for the missing
			// ancestor over whatever transport it uses; this only
			// surfaces the rejection.
			return web.NewRequestError(err, http.StatusConflict)
		}

		return web.NewRequestError(errors.New("block not accepted"), http.StatusNotAcceptable)
	}

	resp := struct {
		Status string `json:"status"`
	}{Status: "accepted"}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Block returns a previously accepted block by hash, so a peer missing
// an ancestor can fetch it directly.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	blk, ok := h.Chain.Block(hash)
	if !ok {
		return web.Respond(ctx, w, nil, http.StatusNotFound)
	}

	return web.Respond(ctx, w, blk, http.StatusOK)
}

// DeliverProduct accepts a "p"-tagged product-delivery frame from a
// vendor: the payload is nothing more than the hash of the transaction
// that was considered paid. Acting on this notification (crediting a
// balance, updating an SPV client's local ledger) is left to whatever
// UI consumes it; this endpoint only gives the frame somewhere
// coherent to land and narrates it.
func (h Handlers) DeliverProduct(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return err
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return web.NewRequestError(fmt.Errorf("reading body: %w", err), http.StatusBadRequest)
	}

	tag, payload, err := wire.Decode(raw)
	if err != nil {
		return web.NewRequestError(err, http.StatusBadRequest)
	}
	if tag != wire.TagProduct {
		return web.NewRequestError(fmt.Errorf("%w: expected product tag", wire.ErrUnknownTag), http.StatusBadRequest)
	}

	txHash := string(payload)
	if len(txHash) != signature.HashLen {
		return web.NewRequestError(errors.New("product frame payload is not a transaction hash"), http.StatusBadRequest)
	}

	h.Log.Infow("product delivered", "traceid", v.TraceID, "tx_hash", txHash)

	resp := struct {
		Status string `json:"status"`
	}{Status: "acknowledged"}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// RegisterPeer adds the calling peer to this node's registry, as used
// by the wallet CLI's peer-seeding command.
func (h Handlers) RegisterPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var p peer.Peer
	if err := web.Decode(r, &p); err != nil {
		return err
	}

	h.Peers.Add(p)

	resp := struct {
		Status string `json:"status"`
	}{Status: "registered"}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status reports this node's resolved tip and known peers.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tip, err := h.Chain.Resolve()
	if err != nil {
		return err
	}

	hash, err := tip.Hash()
	if err != nil {
		return err
	}

	tips := h.Chain.Tips()

	status := peer.Status{
		LatestBlockHash: hash,
		ChainLength:     tips[hash],
		KnownPeers:      h.Peers.Copy(h.Self),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
