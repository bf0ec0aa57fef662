package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chessboard/internal/boardbuilder"
	appcfg "github.com/park285/chessboard/internal/config"
	"github.com/park285/chessboard/internal/obslog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := boardbuilder.New(initCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("board init error", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- deps.Server.Listen(cfg.ListenAddr) }()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("listen error", zap.Error(err))
		}
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := deps.Shutdown(ctx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
