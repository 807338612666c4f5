// Command attacker runs the double-spend adversary: an otherwise-honest
// miner whose Hooks implementation privately forks the chain once it
// pays the cooperating bad-SPV peer, and releases the withheld fork
// once it can overtake the public chain.
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
	"github.com/ridgelinelabs/forkchain/foundation/blockchain/adversary"
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

var build = "develop"

// peerWaitInterval bounds how often we repoll the peer directory while
// waiting for the cooperating bad-SPV and vendor roles to be
// registered (seeded via the wallet CLI's "peer" command).
const peerWaitInterval = 500 * time.Millisecond

func main() {
	log, err := logger.New("ATTACKER")
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	// /////////////////////////////////////////////////////////////////
	// Configuration
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			PublicHost      string        `conf:"default:0.0.0.0:8081"`
			PrivateHost     string        `conf:"default:0.0.0.0:9081"`
		}
		Miner struct {
			Account      string        `conf:"default:attacker"`
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

	const prefix = "ATTACKER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}

		return fmt.Errorf("parsing config: %w", err)
	}

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// /////////////////////////////////////////////////////////////////
	// Name Service Support
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// /////////////////////////////////////////////////////////////////
	// Blockchain Support
	path := fmt.Sprintf("%s%s.ecdsa", cfg.NameService.Folder, cfg.Miner.Account)
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return fmt.Errorf("unable to load private key for attacker: %w", err)
	}
	pubKeyHex := signature.PublicKeyToHex(privateKey.PublicKey)

	self := peer.New(peer.RoleAdversary, cfg.Web.PrivateHost, pubKeyHex)

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

	// The cooperating bad-SPV client and the vendor the attack targets
	// are registered over the private mux after startup (seeded via the
	// wallet CLI), so the adversary starts with no targets and mining is
	// held back until both roles resolve.
	adv := adversary.New(pubKeyHex, "", "", ev)

	broadcastBlock := func(b block.Block) error {
		return gossipBlock(peerSet, self, b)
	}

	m := miner.New(miner.Config{
		Chain:          c,
		Pool:           pool,
		Hooks:          adv,
		BroadcastBlock: broadcastBlock,
		EvHandler:      ev,
	})

	broadcastTx := public.BroadcastTx(func(tx transaction.Transaction) {
		if err := gossipTransaction(peerSet, self, tx); err != nil {
			ev("attacker: broadcast tx: %s", err)
		}
	})

	// The adversary's mode transitions are defined in terms of
	// transactions to/from the bad-SPV and vendor roles, so their public
	// keys must be resolved from the peer directory before mining starts.
	ctx, cancelMiner := context.WithCancel(context.Background())
	defer cancelMiner()
	go func() {
		badSPVPubKey, vendorPubKey := waitForRoles(ctx, peerSet, log)
		if badSPVPubKey == "" {
			return
		}
		adv.SetTargets(badSPVPubKey, vendorPubKey)

		m.Run(ctx, cfg.Miner.TickInterval)
	}()

	// /////////////////////////////////////////////////////////////////
	// Service Start/Stop Support
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

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

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server errors: %w", err)
	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		cancelMiner()
		evts.Shutdown()

		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()
		if err := privateSrv.Shutdown(ctx); err != nil {
			privateSrv.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()
		if err := publicSrv.Shutdown(ctx); err != nil {
			publicSrv.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// waitForRoles busy-polls the peer directory until both the bad-SPV and
// vendor roles have been seeded, using the same bounded-poll idiom as
// the adversary's ancestor wait. Returns empty keys if ctx ends first.
func waitForRoles(ctx context.Context, peers *peer.Set, log *zap.SugaredLogger) (badSPVPubKey, vendorPubKey string) {
	logged := false
	for {
		spv := peers.ByRole(peer.RoleAdversarySPV)
		vendor := peers.ByRole(peer.RoleVendor)

		if len(spv) > 0 && len(vendor) > 0 {
			return spv[0].PubKey, vendor[0].PubKey
		}

		if !logged {
			log.Infow("startup", "status", "waiting for bad-SPV and vendor peers to be seeded")
			logged = true
		}

		select {
		case <-ctx.Done():
			return "", ""
		case <-time.After(peerWaitInterval):
		}
	}
}

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
