// Command routerd boots a single Router program instance: it loads node
// config and governance policy, opens the account store, wires the
// pause/quota ambient layer into perp/router.Engine, and seeds the
// Registry singleton on first run. It does not implement a transport
// (no RPC/p2p layer exists in this module, see DESIGN.md §9); instruction
// dispatch is exercised by perp/router.Engine.Dispatch directly, the same
// entrypoint a future gateway would call.
package main

import (
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"

	"perpcore/config"
	"perpcore/core/state"
	"perpcore/crypto"
	"perpcore/native/common"
	"perpcore/observability/logging"
	"perpcore/perp/pda"
	"perpcore/perp/router"
	"perpcore/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the node configuration file")
	policyPath := flag.String("policy", "./policy.toml", "path to the governance policy file")
	genesisPath := flag.String("genesis", "./genesis.yaml", "path to the starter Slab fixture (optional)")
	flag.Parse()

	env := os.Getenv("ROUTERD_ENV")
	logger := logging.Setup("routerd", env)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.LogFile != "" {
		logger = logging.SetupWithFile("routerd", env, logging.FileSink{Path: cfg.LogFile})
	}

	policy, err := loadPolicy(*policyPath)
	if err != nil {
		logger.Error("failed to load policy", slog.Any("error", err))
		os.Exit(1)
	}
	if err := config.ValidatePolicy(policy); err != nil {
		logger.Error("invalid policy", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	validatorKeyBytes, err := hex.DecodeString(cfg.ValidatorKey)
	if err != nil {
		logger.Error("invalid validator key", slog.Any("error", err))
		os.Exit(1)
	}
	validatorKey, err := crypto.PrivateKeyFromBytes(validatorKeyBytes)
	if err != nil {
		logger.Error("failed to parse validator key", slog.Any("error", err))
		os.Exit(1)
	}
	governance := validatorKey.PubKey().Pubkey()
	programID := governance

	mgr := state.NewManager(db)

	engine := router.NewEngine(programID)
	engine.SetState(mgr)
	engine.SetNowFn(func() int64 { return time.Now().Unix() })
	engine.SetAllowAutoRegister(policy.AllowAutoRegister)
	engine.SetPauseView(policy.PauseView())

	quota, err := policy.Quota()
	if err != nil {
		logger.Error("invalid quota policy", slog.Any("error", err))
		os.Exit(1)
	}
	engine.SetQuota(common.NewMemStore(), quota)

	risk, err := policy.RiskKnobs()
	if err != nil {
		logger.Error("invalid risk knobs", slog.Any("error", err))
		os.Exit(1)
	}
	if err := engine.Initialize(governance, risk); err != nil && err != router.ErrAlreadyInitialized {
		logger.Error("failed to initialize registry", slog.Any("error", err))
		os.Exit(1)
	}

	genesis, err := loadGenesisSpec(*genesisPath)
	if err != nil {
		logger.Error("failed to load genesis fixture", slog.Any("error", err))
		os.Exit(1)
	}
	if err := applyGenesis(mgr, programID, governance, genesis, time.Now().Unix()); err != nil {
		logger.Error("failed to apply genesis fixture", slog.Any("error", err))
		os.Exit(1)
	}

	registryAddr, _ := pda.Registry(programID)
	logger.Info("router ready",
		slog.String("registry", registryAddr.String()),
		slog.String("governance", governance.String()),
		slog.String("listen", cfg.ListenAddress),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("router shutting down")
}

func loadPolicy(path string) (config.Policy, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Policy{
			InitialMarginBps:     500,
			MaintenanceMarginBps: 300,
			LiquidationBandBps:   200,
			PreliqBufferBps:      50,
			PreliqBandBps:        100,
			OracleToleranceBps:   50,
		}, nil
	}
	var p config.Policy
	_, err := toml.DecodeFile(path, &p)
	return p, err
}
