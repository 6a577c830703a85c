package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"attendance/internal/audit"
	"attendance/internal/config"
	"attendance/internal/logging"
	"attendance/internal/queue"
	"attendance/internal/store"
)

// Worker consumes change events from Redis and writes an audit line for each.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.LogFatal(logrus.StandardLogger(), "load config", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.QueueBackend != "redis" {
		logger.Fatalf("worker needs QUEUE_BACKEND=redis, got %q", cfg.QueueBackend)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if err := redisClient.WaitReady(ctx, 10, 2*time.Second); err != nil {
		logger.Warnf("%v, waiting for events anyway", err)
	}

	logger.Info("worker started, waiting for events...")
	n, err := audit.NewConsumer(queue.NewRedisQueue(redisClient.Client, ""), nil, logger).Run(ctx)
	if err != nil {
		logging.LogFatal(logger, "consume events", err)
	}
	logger.Infof("worker stopped after %d events", n)
}
