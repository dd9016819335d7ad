// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Google   GoogleConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout must cover a full batch sync triggered over HTTP.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"10m"`

	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies embedded migrations at startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// SyncConfig controls where sheets come from and how they are parsed.
type SyncConfig struct {
	// SourcesFile lists university_code,spreadsheet_id pairs (default: universities.csv)
	SourcesFile string `env:"SYNC_SOURCES_FILE" default:"universities.csv"`

	// DefaultYear applies to rows whose year cell is blank or unparseable (default: 2025)
	DefaultYear int `env:"SYNC_DEFAULT_YEAR" default:"2025"`

	// Source selects the grid reader: google or csv (default: google)
	Source string `env:"SYNC_SOURCE" default:"google"`

	// CSVDir holds <spreadsheet_id>.csv exports when Source is csv
	CSVDir string `env:"SYNC_CSV_DIR" default:"sheets"`

	// SheetRange is the A1 range read from each spreadsheet (default: A1:Z1000)
	SheetRange string `env:"SYNC_SHEET_RANGE" default:"A1:Z1000"`

	// Timeout bounds a whole batch run (default: 15m)
	Timeout time.Duration `env:"SYNC_TIMEOUT" default:"15m"`

	// Interval runs a batch periodically in the server; 0 disables it (default: 0)
	Interval time.Duration `env:"SYNC_INTERVAL" default:"0s"`
}

// GoogleConfig holds Google Sheets API settings.
type GoogleConfig struct {
	// CredentialsFile is a service account JSON key (default: credentials.json)
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" envAlt:"GOOGLE_APPLICATION_CREDENTIALS" default:"credentials.json"`
}

// RateLimitConfig holds per-IP rate limiting for the API.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 60)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"60"`

	// SyncLimit is requests per minute for sync endpoints (default: 6)
	SyncLimit int `env:"RATE_LIMIT_SYNC" default:"6"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
