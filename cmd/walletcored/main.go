// Package main provides the walletcored daemon - the wallet state core
// behind the desktop client.
package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/openenu/walletcore/internal/config"
	"github.com/openenu/walletcore/internal/directory"
	"github.com/openenu/walletcore/internal/registry"
	"github.com/openenu/walletcore/internal/rpc"
	"github.com/openenu/walletcore/internal/storage"
	"github.com/openenu/walletcore/internal/vault"
	"github.com/openenu/walletcore/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	// Parse flags
	var (
		dataDir     = flag.String("data-dir", "~/.walletcore", "Data directory")
		configFile  = flag.String("config", "", "Config file path (default: <data-dir>/config.yaml)")
		apiAddr     = flag.String("api", "", "JSON-RPC API address, overrides config")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	// Set up logging (initial, may be overridden by config)
	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("walletcored %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	// Load or create config file
	var cfg *config.Config
	var err error

	if *configFile != "" {
		cfg, err = config.LoadConfig(filepath.Dir(*configFile))
	} else {
		cfg, err = config.LoadConfig(*dataDir)
	}
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Apply CLI overrides (CLI flags take precedence over config file)
	cfg.Logging.Level = *logLevel
	cfg.Storage.DataDir = *dataDir
	listenAddr := cfg.API.ListenAddr
	if *apiAddr != "" {
		listenAddr = *apiAddr
	}

	// Update logging with config level and optional log file
	log = logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		TimeFormat: time.TimeOnly,
		File:       config.ExpandPath(cfg.Logging.File),
	})
	logging.SetDefault(log)

	log.Info("Config loaded", "path", config.ConfigPath(*dataDir))

	// Initialize storage
	dataPath := config.ExpandPath(cfg.Storage.DataDir)
	store, err := storage.New(&storage.Config{DataDir: dataPath})
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer store.Close()
	log.Info("Storage initialized", "path", dataPath)

	// Rebuild the chain registry: persisted state first, then the seed
	// merged in. Everything ever seen survives restarts.
	persisted, err := store.LoadChains()
	if err != nil {
		log.Fatal("Failed to load chains", "error", err)
	}
	seed := append(registry.DefaultSeed(), cfg.ExtraChains...)
	reg := registry.Initialize(registry.Registry{}, persisted)
	reg = registry.Initialize(reg, seed)
	if err := store.SaveChains(reg.List()); err != nil {
		log.Fatal("Failed to persist chains", "error", err)
	}
	log.Info("Chain registry initialized", "chains", reg.Len())

	// Key vault, consulted by the directory on credential swaps
	v := vault.New(dataPath)
	if v.HasSeed() {
		log.Info("Vault found", "path", dataPath, "unlocked", false)
	}

	// Restore the wallet directory
	records, active, err := store.LoadWallets()
	if err != nil {
		log.Fatal("Failed to load wallets", "error", err)
	}
	dir := directory.New(v)
	if err := dir.Restore(records, active); err != nil {
		log.Fatal("Failed to restore wallets", "error", err)
	}
	log.Info("Wallet directory restored", "wallets", len(records))

	// Start RPC server
	rpcServer := rpc.NewServer(cfg, store, reg, dir, v)
	if err := rpcServer.Start(listenAddr); err != nil {
		log.Fatal("Failed to start RPC server", "error", err)
	}

	printBanner(log, cfg, listenAddr, reg.Len(), len(records))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Info("Shutting down...")

	if err := rpcServer.Stop(); err != nil {
		log.Error("Error stopping RPC server", "error", err)
	}

	log.Info("Goodbye!")
}

func printBanner(log *logging.Logger, cfg *config.Config, apiAddr string, chains, wallets int) {
	log.Info("")
	log.Info("=================================================")
	log.Infof("  walletcored - wallet state daemon")
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  API: http://%s", apiAddr)
	log.Infof("  WS:  ws://%s/ws", apiAddr)
	log.Info("")
	log.Infof("  Chains: %d | Wallets: %d", chains, wallets)
	log.Infof("  Data dir: %s", config.ExpandPath(cfg.Storage.DataDir))
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}
