package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/fareledger/config"
	"github.com/Domenick1991/fareledger/internal/bootstrap"
	"github.com/Domenick1991/fareledger/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("build app", zap.Error(err))
	}
	defer app.Close()

	server := bootstrap.NewServer(cfg, zl, app.Flights, app.Bookings, app.Checks)
	if err := server.Run(ctx); err != nil {
		zl.Error("server error", zap.Error(err))
	}
}
