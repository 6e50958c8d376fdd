package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/RoarthRyoma/ChatWebRoom/internal/config"
	"github.com/RoarthRyoma/ChatWebRoom/internal/feed"
	"github.com/RoarthRyoma/ChatWebRoom/internal/hub"
	"github.com/RoarthRyoma/ChatWebRoom/internal/logger"
	"github.com/RoarthRyoma/ChatWebRoom/internal/metric"
	"github.com/RoarthRyoma/ChatWebRoom/internal/presence"
	"github.com/RoarthRyoma/ChatWebRoom/internal/registry"
	"github.com/RoarthRyoma/ChatWebRoom/internal/router"
	"github.com/RoarthRyoma/ChatWebRoom/internal/server"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zl, err := logger.New(cfg.App.Env != "production")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	metric.Init()

	var pres *presence.Store
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pres = presence.NewStore(rdb, cfg.Redis.Prefix, cfg.PresenceTTL)
		zl.Infow("presence mirror enabled", "addr", cfg.Redis.Addr)
	}

	var producer *feed.Producer
	if cfg.Kafka.Enabled {
		producer = feed.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = producer.Close() }()
		zl.Infow("event feed enabled", "topic", cfg.Kafka.Topic)
	}

	reg := registry.NewRegistry()
	idx := registry.NewUserIndex()
	h := hub.NewHub()
	rt := router.New(reg, idx, h, zl, router.Options{
		EvictionGrace: cfg.EvictionGrace,
		Feed:          producer,
		Presence:      pres,
	})
	defer rt.Shutdown()

	app := server.New(cfg, h, rt, reg, idx, zl)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		zl.Infow("metrics listening", "addr", addr)
		if err := http.ListenAndServe(addr, metric.Handler()); err != nil {
			zl.Warnw("metrics server stopped", "err", err)
		}
	}()

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		zl.Infow("starting chat room service", "addr", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		zl.Fatalw("server error", "err", err)
	case s := <-sig:
		zl.Infow("shutdown signal received", "signal", s.String())
	}

	if err := app.Shutdown(); err != nil {
		zl.Warnw("fiber shutdown", "err", err)
	}
	zl.Info("shutdown complete")
}
