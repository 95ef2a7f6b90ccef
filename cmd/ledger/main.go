package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledger/internal/cli"
	"ledger/internal/config"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/middleware/security"
	"ledger/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateServerConfig(logger)

	gate, err := cli.BuildGate(cfg)
	if err != nil {
		logger.WithComponent(log.ComponentAuth).Error("Failed to initialize session gate", log.FieldError, err)
		os.Exit(1)
	}

	proxies, err := security.NewProxyResolver(trustedProxies(cfg))
	if err != nil {
		logger.Error("Invalid trusted proxies", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.EventPublisher
	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		// The ledger works without the event stream; the worker reconciles later.
		logger.WithComponent(log.ComponentAMQP).Warn("AMQP unavailable, expense events disabled", log.FieldError, err)
	} else if amqpClient != nil {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		Expenses:     services.NewExpenseService(repo, publisher),
		Gate:         gate,
		ProtectReads: cfg.AuthProtectReads,
		Proxies:      proxies,
		Ready:        repo.Ping,
		Logger:       logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting ledger server",
		"port", cfg.Port,
		"token_mode", cfg.AuthTokenMode,
		"protect_reads", cfg.AuthProtectReads,
		"amqp", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func trustedProxies(cfg *config.Config) []string {
	if len(cfg.TrustedProxies) > 0 {
		return cfg.TrustedProxies
	}
	return security.DefaultTrustedProxies
}
