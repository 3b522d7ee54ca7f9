package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"egotalk/internal/config"
	"egotalk/internal/push"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	worker, err := push.NewWorker(
		cfg.RedisURL, cfg.RedisPassword, cfg.PushQueueKey,
		4, push.NewLogSender(logger), logger)
	if err != nil {
		logger.Error("could not start push worker", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil {
		logger.Error("push worker stopped", "error", err)
	}
	worker.Shutdown()
}
