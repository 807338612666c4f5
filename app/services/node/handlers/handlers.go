// Package handlers manages the different versions of the API.
package handlers

import (
	"context"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	v1 "github.com/ridgelinelabs/forkchain/app/services/node/handlers/v1"
	"github.com/ridgelinelabs/forkchain/app/services/node/handlers/v1/public"
	"github.com/ridgelinelabs/forkchain/business/web/v1/mid"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/chain"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/mempool"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/miner"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/peer"
	"github.com/ridgelinelabs/forkchain/foundation/events"
	"github.com/ridgelinelabs/forkchain/foundation/nameservice"
	"github.com/ridgelinelabs/forkchain/foundation/web"
)

// MuxConfig contains all mandatory systems required by handlers.
type MuxConfig struct {
	Shutdown    chan os.Signal
	Log         *zap.SugaredLogger
	Chain       *chain.Chain
	Pool        *mempool.Mempool
	Miner       *miner.Miner
	Peers       *peer.Set
	NS          *nameservice.NameService
	Evts        *events.Events
	Self        peer.Peer
	BroadcastTx public.BroadcastTx
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PublicMux constructs a http.Handler with all application routes defined.
func PublicMux(cfg MuxConfig) http.Handler {
	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Accept CORS 'OPTIONS' preflight requests on every path.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return nil
	}
	app.Handle(http.MethodOptions, "", "/*", h, mid.Cors("*"))

	// Load the v1 routes.
	v1.PublicRoutes(app, v1.Config{
		Log:         cfg.Log,
		Chain:       cfg.Chain,
		Pool:        cfg.Pool,
		Miner:       cfg.Miner,
		Peers:       cfg.Peers,
		NS:          cfg.NS,
		Self:        cfg.Self,
		BroadcastTx: cfg.BroadcastTx,
	})

	// A viewer-facing websocket endpoint streaming this node's narration
	// events (adversary mode transitions, chain reorgs) pushed through
	// foundation/events under the "viewer:" topic.
	app.Handle(http.MethodGet, "v1", "/events/ws", eventsWebsocket(cfg.Log, cfg.Evts))

	return app
}

// PrivateMux constructs a http.Handler with all application routes defined.
func PrivateMux(cfg MuxConfig) http.Handler {
	// Construct the web.App which holds all routes as well as common Middleware.
	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Cors("*"),
		mid.Panics(),
	)

	// Load the v1 routes.
	v1.PrivateRoutes(app, v1.Config{
		Log:   cfg.Log,
		Chain: cfg.Chain,
		Miner: cfg.Miner,
		Peers: cfg.Peers,
		Self:  cfg.Self,
	})

	return app
}

// eventsWebsocket upgrades the connection and relays every narration
// string sent on the per-connection events channel until the client
// disconnects.
func eventsWebsocket(log *zap.SugaredLogger, evts *events.Events) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v, err := web.GetValues(ctx)
		if err != nil {
			return err
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return err
		}
		defer conn.Close()

		ch := evts.Acquire(v.TraceID)
		defer evts.Release(v.TraceID)

		for msg := range ch {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				log.Infow("events websocket: client disconnected", "traceid", v.TraceID)
				return nil
			}
		}

		return nil
	}
}
