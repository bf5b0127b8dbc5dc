// Package config provides centralized configuration management for the
// service. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Queue    QueueConfig
	Rate     RateConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds catalogue import settings.
type ImportConfig struct {
	// ChunkSize is the number of catalogue lines per scheduled chunk (default: 40)
	ChunkSize int `env:"IMPORT_CHUNK_SIZE" default:"40"`

	// MaxFileSize is the maximum allowed catalogue file size in bytes (default: 25MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"26214400"`

	// DefaultUOM is the fallback unit of measure name (default: Units)
	DefaultUOM string `env:"IMPORT_DEFAULT_UOM" default:"Units"`

	// DefaultCurrency is the fallback currency code (default: EUR)
	DefaultCurrency string `env:"IMPORT_DEFAULT_CURRENCY" default:"EUR"`
}

// QueueConfig holds task queue settings for chunk execution.
type QueueConfig struct {
	// Workers is the number of concurrent chunk executors (default: 4)
	Workers int `env:"QUEUE_WORKERS" default:"4"`

	// Buffer is the maximum number of queued chunks (default: 256)
	Buffer int `env:"QUEUE_BUFFER" default:"256"`

	// MaxAttempts is how many times a failed chunk is attempted (default: 3)
	MaxAttempts int `env:"QUEUE_MAX_ATTEMPTS" default:"3"`

	// RetryDelay is the pause before a failed chunk is re-queued (default: 2s)
	RetryDelay time.Duration `env:"QUEUE_RETRY_DELAY" default:"2s"`
}

// RateConfig holds per-client request rate limiting settings.
type RateConfig struct {
	// Enabled toggles per-IP rate limiting (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerSecond is the sustained per-IP request rate (default: 10)
	RequestsPerSecond int `env:"RATE_LIMIT_RPS" default:"10"`

	// Burst is the short-term per-IP burst allowance (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
