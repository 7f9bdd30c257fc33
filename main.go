// Command privacy-ledger runs one validator node: an in-process
// CometBFT consensus engine driving this repo's ABCI application.
// Shape follows the usual node-main pattern: config load, construct
// stores, construct app, embed the consensus engine via
// proxy.NewLocalClientCreator, serve, signal-based shutdown.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	cmtcfg "github.com/cometbft/cometbft/config"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/privacy-ledger/pkg/abci"
	"github.com/certen/privacy-ledger/pkg/config"
	"github.com/certen/privacy-ledger/pkg/height"
	"github.com/certen/privacy-ledger/pkg/kvdb"
	"github.com/certen/privacy-ledger/pkg/metrics"
	"github.com/certen/privacy-ledger/pkg/program"
	"github.com/certen/privacy-ledger/pkg/record"
	"github.com/certen/privacy-ledger/pkg/validator"
	"github.com/certen/privacy-ledger/pkg/vm"
)

func main() {
	logger := log.New(os.Stdout, "[privacy-ledger] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatalf("create data dir: %v", err)
	}

	nodeCfg, err := config.LoadNodeConfig(cfg.NodeConfigPath)
	if err != nil {
		logger.Printf("no node config at %s (%v); running a standalone unshared trusted setup with no genesis bootstrap", cfg.NodeConfigPath, err)
		nodeCfg = nil
	}

	app, err := buildApplication(cfg, nodeCfg, logger)
	if err != nil {
		logger.Fatalf("build application: %v", err)
	}

	n, err := buildCometNode(cfg, nodeCfg, app, logger)
	if err != nil {
		logger.Fatalf("build consensus node: %v", err)
	}

	if err := n.Start(); err != nil {
		logger.Fatalf("start consensus node: %v", err)
	}

	metricsSrv := startMetricsServer(cfg, logger)
	healthSrv := startHealthServer(cfg, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Printf("shutting down")
	if err := n.Stop(); err != nil {
		logger.Printf("stop consensus node: %v", err)
	}
	if err := metricsSrv.Shutdown(context.Background()); err != nil {
		logger.Printf("stop metrics server: %v", err)
	}
	if err := healthSrv.Shutdown(context.Background()); err != nil {
		logger.Printf("stop health server: %v", err)
	}
}

// buildApplication constructs the ABCI state machine: the record and
// program stores and the validator set backed by a single database,
// reindexed from disk on every boot after the first, plus the height
// tracker's own abci.height file.
func buildApplication(cfg *config.Config, nodeCfg *config.NodeConfig, logger *log.Logger) (*abci.Application, error) {
	db, err := dbm.NewDB("app", dbm.GoLevelDBBackend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open app database: %w", err)
	}
	kv := kvdb.NewKVAdapter(db)

	records := record.New(kv)
	if err := records.ReindexFromDB(db); err != nil {
		return nil, fmt.Errorf("reindex records: %w", err)
	}

	programs := program.New(kv)
	if err := programs.ReindexFromDB(db); err != nil {
		return nil, fmt.Errorf("reindex programs: %w", err)
	}

	heightT, err := height.Open(filepath.Join(cfg.DataDir, "abci.height"))
	if err != nil {
		return nil, fmt.Errorf("open height tracker: %w", err)
	}

	validators, ok, err := validator.LoadFromKV(kv)
	if err != nil {
		return nil, fmt.Errorf("load validator set: %w", err)
	}
	if !ok {
		validators = validator.New(cfg.CoinbaseAmount)
	} else {
		validators.CoinbaseAmount = cfg.CoinbaseAmount
	}

	capability := vm.NewGroth16Capability(logger)
	if nodeCfg != nil {
		paths := vm.ArtifactPaths{
			TxProvingKeyPath:       nodeCfg.Proving.TxProvingKeyPath,
			TxVerifyingKeyPath:     nodeCfg.Proving.TxVerifyingKeyPath,
			RewardProvingKeyPath:   nodeCfg.Proving.RewardProvingKeyPath,
			RewardVerifyingKeyPath: nodeCfg.Proving.RewardVerifyingKeyPath,
		}
		if err := capability.InitializeWithArtifacts(paths); err != nil {
			return nil, fmt.Errorf("initialize ZK-VM capability from %s: %w", cfg.NodeConfigPath, err)
		}
	} else if err := capability.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize ZK-VM capability: %w", err)
	}

	m := metrics.New()

	return abci.New(records, programs, validators, heightT, capability, m, kv, cfg.ChainID), nil
}

// buildCometNode embeds CometBFT as an in-process consensus engine
// talking to app over the in-memory ABCI client, rather than a bare
// socket server.
func buildCometNode(cfg *config.Config, nodeCfg *config.NodeConfig, app *abci.Application, logger *log.Logger) (*node.Node, error) {
	home := filepath.Join(cfg.DataDir, "cometbft")
	cometCfg := cmtcfg.DefaultConfig()
	cometCfg.SetRoot(home)
	cometCfg.ProxyApp = cfg.ABCIAddr
	cometCfg.Instrumentation.Prometheus = false // this core exposes its own metrics, see pkg/metrics

	if err := os.MkdirAll(filepath.Dir(cometCfg.PrivValidatorKeyFile()), 0o755); err != nil {
		return nil, fmt.Errorf("create cometbft config dir: %w", err)
	}

	if nodeCfg != nil && nodeCfg.GenesisPath != "" {
		if err := bootstrapGenesis(nodeCfg.GenesisPath, cometCfg.GenesisFile()); err != nil {
			return nil, fmt.Errorf("bootstrap genesis: %w", err)
		}
	}

	pv := privval.LoadOrGenFilePV(cometCfg.PrivValidatorKeyFile(), cometCfg.PrivValidatorStateFile())

	nodeKey, err := p2p.LoadOrGenNodeKey(cometCfg.NodeKeyFile())
	if err != nil {
		return nil, fmt.Errorf("load node key: %w", err)
	}

	tmLogger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout)).With("module", "cometbft")

	dbProvider := cmtcfg.DBProvider(func(ctx *cmtcfg.DBContext) (dbm.DB, error) {
		return dbm.NewDB(ctx.ID, dbm.BackendType(cometCfg.DBBackend), filepath.Join(cometCfg.RootDir, "data"))
	})

	n, err := node.NewNode(
		cometCfg,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(app),
		node.DefaultGenesisDocProviderFunc(cometCfg),
		dbProvider,
		node.DefaultMetricsProvider(cometCfg.Instrumentation),
		tmLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("construct cometbft node: %w", err)
	}
	return n, nil
}

// bootstrapGenesis copies the deployment's genesis document into the
// CometBFT home directory the first time this node boots; it never
// overwrites a genesis file already present there.
func bootstrapGenesis(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// startMetricsServer mounts /metrics on cfg.MetricsAddr.
func startMetricsServer(cfg *config.Config, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server: %v", err)
		}
	}()
	return srv
}

// startHealthServer mounts /healthz on cfg.HealthAddr.
func startHealthServer(cfg *config.Config, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: cfg.HealthAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("health server: %v", err)
		}
	}()
	return srv
}
