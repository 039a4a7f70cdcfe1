package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"convertord/config"
	"convertord/core/state"
	"convertord/gateway"
	"convertord/native/convertor"
	"convertord/observability"
	"convertord/observability/logging"
	"convertord/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the convertord config file")
	allowMigrate := flag.Bool("allow-migrate", false, "tolerate an on-disk schema version mismatch")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("convertord", cfg.Environment, logging.Options{
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", "path", cfg.DataDir, "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	if err := state.EnsureStateVersion(db, cfg.AllowMigrate || *allowMigrate); err != nil {
		logger.Error("state version check failed", "error", err.Error())
		os.Exit(1)
	}

	manager := state.NewManager(db)

	var (
		transferrer convertor.TokenTransferrer
		refunder    convertor.QuotaRefunder
	)
	if cfg.TokenBridgeURL != "" {
		bridge, err := gateway.NewHTTPBridge(cfg.TokenBridgeURL, logger)
		if err != nil {
			logger.Error("configure token bridge", "error", err.Error())
			os.Exit(1)
		}
		transferrer, refunder = bridge, bridge
	} else {
		bridge := gateway.NewLoggingBridge(logger)
		transferrer, refunder = bridge, bridge
		logger.Warn("no token bridge configured, dispatches are log-only")
	}

	engine, err := convertor.NewEngine(manager, transferrer, refunder, cfg.AdminAccount)
	if err != nil {
		logger.Error("initialise engine", "error", err.Error())
		os.Exit(1)
	}
	if err := applyQuotaConfig(engine, cfg); err != nil {
		logger.Error("apply quota config", "error", err.Error())
		os.Exit(1)
	}
	engine.SetEmitter(gateway.NewLogEmitter(logger, observability.Convertor()))

	server := gateway.NewServer(engine, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("convertord listening", "address", cfg.ListenAddress, "admin", cfg.AdminAccount)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err.Error())
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err.Error())
	}
	logger.Info("convertord stopped")
}

func applyQuotaConfig(engine *convertor.Engine, cfg config.Config) error {
	byteCost, err := cfg.ParsedQuotaByteCost()
	if err != nil {
		return err
	}
	if byteCost != nil && byteCost.Sign() > 0 {
		params := convertor.DefaultQuotaParams()
		params.ByteCost = byteCost
		engine.SetQuotaParams(params)
	}
	deposit, err := cfg.ParsedCreatePoolDeposit()
	if err != nil {
		return err
	}
	if deposit != nil {
		current, err := engine.CreatePoolDeposit()
		if err != nil {
			return err
		}
		if current.Sign() == 0 && deposit.Cmp(big.NewInt(0)) != 0 {
			if err := engine.SetCreatePoolDeposit(cfg.AdminAccount, deposit); err != nil {
				return err
			}
		}
	}
	return nil
}
