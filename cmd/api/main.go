package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stellarpass/stellarpass/internal/bootstrap"
	"github.com/stellarpass/stellarpass/internal/config"
	"github.com/stellarpass/stellarpass/internal/infra"
	"github.com/stellarpass/stellarpass/internal/logging"
	"github.com/stellarpass/stellarpass/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithFormat(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	backends, err := infra.Open(ctx, cfg)
	if err != nil {
		logger.Error("connect backends", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logger.Warn("close backends", "error", err)
		}
	}()
	db, cache := backends.DB, backends.Cache

	core, err := bootstrap.Build(ctx, bootstrap.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger})
	if err != nil {
		logger.Error("build core", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg, db, cache, core, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info("stellarpass api listening",
		slog.String("addr", cfg.Address()),
		slog.String("store", cfg.StoreBackend),
		slog.Bool("contract", cfg.ContractEnabled()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
