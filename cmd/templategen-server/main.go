package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-spx-templategen/internal/app"
	"github.com/goliatone/go-spx-templategen/internal/config"
)

func main() {
	overrides := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := overrides.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := app.NewLogger(cfg, "templategen", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := app.NewOrchestrator(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to set up generator: %v", err)
	}
	gen.Start(ctx)

	store, closeStore, err := app.NewStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warnf("close store: %v", err)
		}
	}()

	srv, err := app.NewConsole(cfg, gen, store, logger)
	if err != nil {
		logger.Fatalf("Failed to build console: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("console listening on http://%s", cfg.Server.Addr)
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("console stopped: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}
}
