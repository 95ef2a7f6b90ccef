package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	mirror, err := cli.InitMirror(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize mirror", log.FieldError, err)
		os.Exit(1)
	}

	var consumer worker.EventConsumer
	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	if amqpClient != nil {
		consumer = amqpClient
		defer amqpClient.Close()
	}

	var metricsSrv *http.Server
	if cfg.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", log.FieldError, err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
	})

	syncWorker := worker.NewSyncWorker(repo, mirror, cfg.SyncInterval)
	logger.Info("Sync worker running", "interval", cfg.SyncInterval, "events", consumer != nil)
	if err := syncWorker.Run(ctx, consumer); err != nil {
		logger.Error("Sync worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
