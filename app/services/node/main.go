package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/ridgelinelabs/forkchain/app/services/node/handlers"
	"github.com/ridgelinelabs/forkchain/app/services/node/handlers/v1/public"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/block"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/chain"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/mempool"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/miner"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/peer"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/signature"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/wire"
	"github.com/ridgelinelabs/forkchain/foundation/events"
	"github.com/ridgelinelabs/forkchain/foundation/logger"
	"github.com/ridgelinelabs/forkchain/foundation/nameservice"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {
	// Construct app logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Configuration
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		Miner struct {
			Account      string        `conf:"default:miner1"`
			Role         string        `conf:"default:miner"`
			TickInterval time.Duration `conf:"default:2s"`
			OriginPeers  []string      `conf:"default:0.0.0.0:9080"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}

		return fmt.Errorf("parsing config: %w", err)
	}

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// App Starting
	var header = `
 █████╗ ██████╗ ██████╗  █████╗ ███╗   ██╗    ██████╗ ██╗      ██████╗  ██████╗██╗  ██╗ ██████╗██╗  ██╗ █████╗ ██╗███╗   ██╗
██╔══██╗██╔══██╗██╔══██╗██╔══██╗████╗  ██║    ██╔══██╗██║     ██╔═══██╗██╔════╝██║ ██╔╝██╔════╝██║  ██║██╔══██╗██║████╗  ██║
███████║██████╔╝██║  ██║███████║██╔██╗ ██║    ██████╔╝██║     ██║   ██║██║     █████╔╝ ██║     ███████║███████║██║██╔██╗ ██║
██╔══██║██╔══██╗██║  ██║██╔══██║██║╚██╗██║    ██╔══██╗██║     ██║   ██║██║     ██╔═██╗ ██║     ██╔══██║██╔══██║██║██║╚██╗██║
██║  ██║██║  ██║██████╔╝██║  ██║██║ ╚████║    ██████╔╝███████╗╚██████╔╝╚██████╗██║  ██╗╚██████╗██║  ██║██║  ██║██║██║ ╚████║
╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═══╝    ╚═════╝ ╚══════╝ ╚═════╝  ╚═════╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝╚═╝  ╚═══╝`
	fmt.Println(header)

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Name Service Support
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Blockchain Support

	// Load the private key file for the configured miner account
	// so it can sign transactions and identify itself to peers.
	path := fmt.Sprintf("%s%s.ecdsa", cfg.NameService.Folder, cfg.Miner.Account)
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return fmt.Errorf("unable to load private key for node: %w", err)
	}
	pubKeyHex := signature.PublicKeyToHex(privateKey.PublicKey)

	self := peer.New(peer.Role(cfg.Miner.Role), cfg.Web.PrivateHost, pubKeyHex)

	peerSet := peer.NewSet()
	for _, host := range cfg.Miner.OriginPeers {
		peerSet.Add(peer.New(peer.RoleMiner, host, ""))
	}
	peerSet.Add(self)

	evts := events.New()
	ev := func(v string, args ...any) {
		const websocketPrefix = "viewer:"

		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, websocketPrefix) {
			evts.Send(s)
		}
	}

	c, err := chain.New(ev)
	if err != nil {
		return fmt.Errorf("unable to construct chain: %w", err)
	}

	pool := mempool.New()

	broadcastBlock := func(b block.Block) error {
		return gossipBlock(peerSet, self, b)
	}

	m := miner.New(miner.Config{
		Chain:          c,
		Pool:           pool,
		BroadcastBlock: broadcastBlock,
		EvHandler:      ev,
	})

	broadcastTx := public.BroadcastTx(func(tx transaction.Transaction) {
		if err := gossipTransaction(peerSet, self, tx); err != nil {
			ev("node: broadcast tx: %s", err)
		}
	})

	// Run the miner's tick loop for the lifetime of the process.
	ctx, cancelMiner := context.WithCancel(context.Background())
	defer cancelMiner()
	go m.Run(ctx, cfg.Miner.TickInterval)

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminal signal
	// from the OS. Signal package requires a buffered channel.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// User a buffered channel to listen for errors from listener. A buffered
	// channel is used so goroutine can exit if the error isn't collected.
	serverErrors := make(chan error, 1)

	muxCfg := handlers.MuxConfig{
		Shutdown:    shutdown,
		Log:         log,
		Chain:       c,
		Pool:        pool,
		Miner:       m,
		Peers:       peerSet,
		NS:          ns,
		Evts:        evts,
		Self:        self,
		BroadcastTx: broadcastTx,
	}

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Start Public Service
	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(muxCfg)

	publicSrv := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", publicSrv.Addr)
		serverErrors <- publicSrv.ListenAndServe()
	}()

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Start Private Service
	log.Infow("startup", "status", "initializing V1 private API support")

	privateMux := handlers.PrivateMux(muxCfg)

	privateSrv := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", privateSrv.Addr)
		serverErrors <- privateSrv.ListenAndServe()
	}()

	// /////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Shutdown

	// Block main waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server errors: %w", err)
	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		cancelMiner()
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := privateSrv.Shutdown(ctx); err != nil {
			privateSrv.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := publicSrv.Shutdown(ctx); err != nil {
			publicSrv.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// gossipBlock broadcasts a mined block to every known peer's private
// mux, tagged per the wire contract.
func gossipBlock(peers *peer.Set, self peer.Peer, b block.Block) error {
	blkJSON, err := b.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal block: %w", err)
	}

	frame, err := wire.EncodeBlock(blkJSON)
	if err != nil {
		return fmt.Errorf("encode block frame: %w", err)
	}

	var errs []error
	for _, p := range peers.Copy(self) {
		url := fmt.Sprintf("http://%s/v1/node/block/propose", p.Address)
		if err := postFrame(url, frame); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Address, err))
		}
	}

	return errors.Join(errs...)
}

// gossipTransaction broadcasts a pooled transaction to every known
// peer's private mux, tagged per the wire contract.
func gossipTransaction(peers *peer.Set, self peer.Peer, tx transaction.Transaction) error {
	txJSON, err := tx.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	frame, err := wire.EncodeTransaction(txJSON)
	if err != nil {
		return fmt.Errorf("encode transaction frame: %w", err)
	}

	var errs []error
	for _, p := range peers.Copy(self) {
		url := fmt.Sprintf("http://%s/v1/node/tx/submit", p.Address)
		if err := postFrame(url, frame); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Address, err))
		}
	}

	return errors.Join(errs...)
}

func postFrame(url string, frame []byte) error {
	resp, err := http.Post(url, "application/octet-stream", bytes.NewReader(frame))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}
