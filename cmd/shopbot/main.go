package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/m3rciful/shopbot/bot"
	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/logger"
)

const defaultConfigPath = "config.yaml"

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := coreconfig.Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() {
		_ = logger.Shutdown()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bot.New(ctx, cfg)
	if err != nil {
		logger.L.Error("bootstrap failed", "event", "app.bootstrap", "err", err.Error())
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.L.Error("bot stopped with error", "event", "app.run", "err", err.Error())
		os.Exit(1)
	}
}
