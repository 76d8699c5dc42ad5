package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/laurentvv/twitter-post-trending-auto/internal/app"
	"github.com/laurentvv/twitter-post-trending-auto/internal/config"
	"github.com/laurentvv/twitter-post-trending-auto/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single posting cycle and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	run := application.Run
	if *once {
		run = application.RunOnce
	}

	if err := run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
