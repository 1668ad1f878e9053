// Package main is the entry point for the dapper staking service: a headless
// backend for the vault dashboard that lists stakes, previews upfront yield,
// and submits the stake, withdraw and treasury transactions.
package main

import (
	"context"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jack-landon/dapper-app/internal/chain"
	"github.com/jack-landon/dapper-app/internal/config"
	"github.com/jack-landon/dapper-app/internal/indexer"
	"github.com/jack-landon/dapper-app/internal/otel"
	"github.com/jack-landon/dapper-app/internal/registry"
	"github.com/jack-landon/dapper-app/internal/wallet"
	"github.com/sirupsen/logrus"
)

func main() {
	setupLogging()

	cfg := config.Load()

	shutdownTracer := otel.InitTracer(cfg)
	defer shutdownTracer()

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		logrus.Fatalf("Error loading registry: %v", err)
	}

	client, err := ethclient.Dial(cfg.RPCEndpoint)
	if err != nil {
		logrus.Fatalf("Error connecting to RPC endpoint %s: %v", cfg.RPCEndpoint, err)
	}
	defer client.Close()

	session := wallet.NewSession()
	if cfg.WalletKey != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		chainID, err := client.ChainID(ctx)
		cancel()
		if err != nil {
			logrus.Fatalf("Error fetching chain id: %v", err)
		}
		if err := session.Connect(cfg.WalletKey, chainID); err != nil {
			logrus.Fatalf("Error connecting wallet: %v", err)
		}
	} else {
		logrus.Warn("No wallet key configured, write actions will be rejected")
	}

	server := NewServer(
		cfg,
		reg,
		indexer.New(cfg.IndexerBaseURL, cfg.RequestTimeout),
		chain.NewReader(client),
		chain.NewWriter(client, session),
		session,
	)
	server.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging configured")
}
