// Package cli provides common CLI initialization utilities shared by
// cmd/ledger and cmd/ledger-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledger/internal/amqp"
	"ledger/internal/auth"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/sheets"
	"ledger/internal/sheets/google"
	"ledger/internal/sheets/memory"
	"ledger/internal/storage"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates the settings
// shared by every binary. The worker uses it; it never checks auth.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// LoadAndValidateServerConfig is LoadAndValidateConfig for the HTTP server,
// which also requires the auth settings.
func LoadAndValidateServerConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.WithComponent(log.ComponentStorage).Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// BuildGate builds the credentials once and wires them into the session gate.
func BuildGate(cfg *config.Config) (*auth.Gate, error) {
	creds, err := auth.NewCredentials(cfg.AuthEmail, cfg.AuthPassword)
	if err != nil {
		return nil, err
	}
	codec, err := auth.NewCodec(cfg.AuthTokenMode, []byte(cfg.AuthSessionKey))
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}
	return auth.NewGate(creds, codec), nil
}

// InitAMQP connects to the broker when AMQP_URL is set. A nil client with a
// nil error means messaging is disabled.
func InitAMQP(logger *log.Logger, cfg *config.Config) (*amqp.Client, error) {
	logger = logger.WithComponent(log.ComponentAMQP)
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP_URL not set, expense events disabled")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	logger.Info("AMQP client connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// InitMirror returns the Google Sheets mirror when configured, otherwise an
// in-memory mirror.
func InitMirror(ctx context.Context, logger *log.Logger, cfg *config.Config) (sheets.ExpenseMirror, error) {
	logger = logger.WithComponent(log.ComponentSheets)
	if !cfg.SheetsEnabled() {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring into memory only")
		return memory.New(), nil
	}
	client, err := google.New(ctx, google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("google sheets mirror: %w", err)
	}
	logger.Info("Google Sheets mirror ready", "sheet", cfg.GoogleSheetName)
	return client, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
