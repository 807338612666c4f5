// Package public maintains the group of handlers reachable by wallets
// and other outside clients: submitting transactions, and read-only
// views of the mempool, genesis block, and known peers.
package public

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/chain"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/mempool"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/miner"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/peer"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
	"github.com/ridgelinelabs/forkchain/foundation/nameservice"
	"github.com/ridgelinelabs/forkchain/foundation/web"
)

// BroadcastTx gossips a client-submitted transaction on to known peers.
// The transport itself (an HTTP POST against a peer's private mux, in
// this demo) is supplied by main.go.
type BroadcastTx func(tx transaction.Transaction)

// Handlers manages the set of publicly reachable endpoints.
type Handlers struct {
	Log         *zap.SugaredLogger
	Chain       *chain.Chain
	Pool        *mempool.Mempool
	Miner       *miner.Miner
	PeerSet     *peer.Set
	NS          *nameservice.NameService
	BroadcastTx BroadcastTx
}

// SubmitTransaction decodes a signed transaction from the wallet CLI,
// verifies and pools it through the miner's inbound-transaction path,
// then gossips it on to the rest of the network.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return web.NewRequestError(fmt.Errorf("reading body: %w", err), http.StatusBadRequest)
	}

	tx, err := transaction.FromJSON(string(body))
	if err != nil {
		return web.NewRequestError(fmt.Errorf("decoding transaction: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("submit tx", "traceid", v.TraceID, "sender", h.NS.Lookup(tx.SenderPublicKey()),
		"receiver", h.NS.Lookup(tx.ReceiverPublicKey()), "amount", tx.AmountValue())

	if err := h.Miner.HandleInboundTransaction(tx); err != nil {
		return web.NewRequestError(err, http.StatusBadRequest)
	}

	if h.BroadcastTx != nil {
		h.BroadcastTx(tx)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction accepted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions, names resolved.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.renderTxs(h.Pool.Copy(nil)), http.StatusOK)
}

// Genesis returns the fixed genesis block's identity.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := genesisView{
		Hash:      h.Chain.GenesisHash(),
		Timestamp: chain.GenesisTimestamp,
	}

	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Peers returns every peer this node currently knows about.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	peers := h.PeerSet.Copy(peer.Peer{})

	views := make([]peerView, len(peers))
	for i, p := range peers {
		views[i] = peerView{
			ID:      p.ID,
			Role:    string(p.Role),
			Name:    h.NS.Lookup(p.PubKey),
			Address: p.Address,
			PubKey:  p.PubKey,
		}
	}

	return web.Respond(ctx, w, views, http.StatusOK)
}

func (h Handlers) renderTxs(txs []transaction.Transaction) []txView {
	views := make([]txView, len(txs))
	for i, tx := range txs {
		hash, _ := tx.Hash()
		views[i] = txView{
			Hash:         hash,
			Sender:       tx.SenderPublicKey(),
			SenderName:   h.NS.Lookup(tx.SenderPublicKey()),
			Receiver:     tx.ReceiverPublicKey(),
			ReceiverName: h.NS.Lookup(tx.ReceiverPublicKey()),
			Amount:       tx.AmountValue(),
			Nonce:        tx.NonceValue(),
			Comment:      tx.CommentValue(),
		}
	}

	return views
}
