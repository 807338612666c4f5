// Package v1 contains the full set of handler functions and
// routes supported by the v1 web api.
package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ridgelinelabs/forkchain/app/services/node/handlers/v1/private"
	"github.com/ridgelinelabs/forkchain/app/services/node/handlers/v1/public"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/chain"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/mempool"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/miner"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/peer"
	"github.com/ridgelinelabs/forkchain/foundation/nameservice"
	"github.com/ridgelinelabs/forkchain/foundation/web"
)

const version = "v1"

// Config contains all mandatory systems required by handlers.
type Config struct {
	Log         *zap.SugaredLogger
	Chain       *chain.Chain
	Pool        *mempool.Mempool
	Miner       *miner.Miner
	Peers       *peer.Set
	NS          *nameservice.NameService
	Self        peer.Peer
	BroadcastTx public.BroadcastTx
}

// PublicRoutes binds all version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:         cfg.Log,
		Chain:       cfg.Chain,
		Pool:        cfg.Pool,
		Miner:       cfg.Miner,
		PeerSet:     cfg.Peers,
		NS:          cfg.NS,
		BroadcastTx: cfg.BroadcastTx,
	}

	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/peers/list", pbl.Peers)
}

// PrivateRoutes binds all version 1 private, node-to-node routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		Chain: cfg.Chain,
		Miner: cfg.Miner,
		Peers: cfg.Peers,
		Self:  cfg.Self,
	}

	app.Handle(http.MethodPost, version, "/node/tx/submit", prv.SubmitTransaction)
	app.Handle(http.MethodPost, version, "/node/block/propose", prv.ProposeBlock)
	app.Handle(http.MethodPost, version, "/node/product/delivered", prv.DeliverProduct)
	app.Handle(http.MethodGet, version, "/node/block/:hash", prv.Block)
	app.Handle(http.MethodPost, version, "/node/peers/register", prv.RegisterPeer)
	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
}
