package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	TokenModeLegacy = "legacy"
	TokenModeKeyed  = "keyed"

	// minSessionKeyBytes is the shortest AUTH_SESSION_KEY accepted in keyed mode.
	minSessionKeyBytes = 32
	maxSessionKeyBytes = 64
)

type Config struct {
	// HTTP Server
	Port           string
	LogLevel       string
	TrustedProxies []string

	// Database
	SQLiteDBPath string

	// Auth
	AuthEmail        string
	AuthPassword     string
	AuthTokenMode    string
	AuthSessionKey   string
	AuthProtectReads bool

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncInterval time.Duration
	// MetricsPort exposes /metrics from the worker; empty disables it.
	MetricsPort string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", nil),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AuthEmail:        os.Getenv("AUTH_EMAIL"),
		AuthPassword:     os.Getenv("AUTH_PASSWORD"),
		AuthTokenMode:    strings.ToLower(getEnv("AUTH_TOKEN_MODE", TokenModeLegacy)),
		AuthSessionKey:   os.Getenv("AUTH_SESSION_KEY"),
		AuthProtectReads: getEnvBool("AUTH_PROTECT_READS", true),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		MetricsPort:  getEnv("METRICS_PORT", ""),
	}

	return cfg
}

// SheetsEnabled reports whether the Google Sheets mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// AMQPEnabled reports whether expense events are published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the settings shared by the server and the worker.
func (c *Config) Validate() error {
	return joinErrors(c.validateCommon())
}

// ValidateServer validates everything Validate does plus the auth settings,
// which only the HTTP server uses.
func (c *Config) ValidateServer() error {
	errors := c.validateCommon()

	// The ledger has no anonymous write mode.
	if c.AuthEmail == "" {
		errors = append(errors, "AUTH_EMAIL is required")
	}
	if c.AuthPassword == "" {
		errors = append(errors, "AUTH_PASSWORD is required")
	}
	switch c.AuthTokenMode {
	case TokenModeLegacy:
	case TokenModeKeyed:
		if n := len(c.AuthSessionKey); n < minSessionKeyBytes || n > maxSessionKeyBytes {
			errors = append(errors, fmt.Sprintf("AUTH_SESSION_KEY must be between %d and %d bytes in keyed mode, got %d",
				minSessionKeyBytes, maxSessionKeyBytes, n))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid auth token mode '%s': must be one of [%s %s]",
			c.AuthTokenMode, TokenModeLegacy, TokenModeKeyed))
	}

	return joinErrors(errors)
}

func (c *Config) validateCommon() []string {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MetricsPort != "" {
		if port, err := strconv.Atoi(c.MetricsPort); err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid metrics port '%s'", c.MetricsPort))
		}
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy CIDR '%s'", cidr))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	return errors
}

func joinErrors(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blank entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
