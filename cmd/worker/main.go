package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/fareledger/config"
	"github.com/Domenick1991/fareledger/internal/bootstrap"
	"github.com/Domenick1991/fareledger/internal/email"
	"github.com/Domenick1991/fareledger/internal/kafka"
	"github.com/Domenick1991/fareledger/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
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

	g, gctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, zl)
		defer consumer.Close()
		sender := email.NewSender(zl.Named("email"))

		g.Go(func() error {
			return consumer.Consume(gctx, sender.Send)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Worker.FareSnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				recorded, err := app.Flights.SnapshotFares(gctx)
				if err != nil {
					zl.Error("fare snapshot failed", zap.Error(err))
					continue
				}
				zl.Info("fare snapshot recorded", zap.Int("flights", recorded))
			}
		}
	})

	zl.Info("worker started", zap.Duration("fare_snapshot_interval", cfg.Worker.FareSnapshotInterval))
	if err := g.Wait(); err != nil {
		zl.Error("worker stopped", zap.Error(err))
	}
}
