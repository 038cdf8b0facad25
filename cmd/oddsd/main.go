package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"oddsbook/config"
	"oddsbook/core"
	"oddsbook/observability/logging"
	"oddsbook/rpc"
	"oddsbook/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	env := strings.TrimSpace(os.Getenv("ODDSBOOK_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("oddsd", env, logging.Options{File: cfg.LogFile})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	node := core.NewNode(db)
	oracles, err := cfg.Oracles()
	if err != nil {
		logger.Error("Failed to parse oracle accounts", slog.Any("error", err))
		os.Exit(1)
	}
	node.SetOracleAccounts(oracles)

	server := rpc.NewServer(node)
	logger.Info("oddsd listening",
		slog.String("addr", cfg.RPCAddress),
		slog.String("network", cfg.NetworkName),
		slog.Int("oracles", len(oracles)))
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
