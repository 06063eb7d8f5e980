// Package config provides centralized configuration management for the
// importer and recorder processes. Every setting comes from the environment
// with a default, and the whole set is validated on startup so a
// misconfigured Lambda fails on its first invocation rather than mid-file.
package config

import (
	"strconv"
	"time"
)

// Key and credential sources.
const (
	KeySourceEnv         = "env"
	KeySourceObjectStore = "object-store"

	CredentialSourceEnv         = "env"
	CredentialSourceSecretStore = "secret-store"
	CredentialSourceIAM         = "iam"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Import   ImportConfig
	Queue    QueueConfig
	Logging  LoggingConfig
}

// ServerConfig holds settings for the local notification receiver.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds how long in-flight imports may run after SIGTERM.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 10m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"10m"`

	// AuthTokens are the bearer tokens accepted from the notification
	// source (MinIO webhook auth_token). Empty disables the check.
	AuthTokens []string `env:"SERVER_AUTH_TOKENS"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required).
	// DB_CONNECTION_STRING is accepted for existing deployments.
	URL string `env:"DATABASE_URL" envAlt:"DB_CONNECTION_STRING" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ConnectTimeout bounds the initial ping retries (default: 30s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"30s"`

	// CredentialSource selects where the password comes from:
	// env, secret-store or iam (default: env)
	CredentialSource string `env:"DB_CREDENTIAL_SOURCE" default:"env"`

	// EncryptedPassword is a base64 KMS ciphertext used by the env source.
	EncryptedPassword string `env:"ENCRYPTED_DATABASE_PASSWORD"`

	// SecretID names the Secrets Manager secret used by the secret-store source.
	SecretID string `env:"DB_SECRET_ID"`
}

// AWSConfig holds AWS SDK settings.
type AWSConfig struct {
	Region string `env:"AWS_REGION" envAlt:"AWS_DEFAULT_REGION" default:"eu-west-2"`

	// EndpointURL overrides every service endpoint, e.g. http://localstack:4566
	EndpointURL string `env:"AWS_ENDPOINT_URL"`
}

// ImportConfig holds fraud-data CSV import settings.
// Per-object tags override DefaultTimeZone, Dialect and HasHeader.
type ImportConfig struct {
	DefaultTimeZone string `env:"IMPORT_DEFAULT_TIMEZONE" default:"Europe/London"`

	// Dialect is excel (comma separated) or excel-tab (default: excel)
	Dialect string `env:"IMPORT_DIALECT" default:"excel"`

	HasHeader bool `env:"IMPORT_HAS_HEADER" default:"true"`

	SuccessPrefix string `env:"IMPORT_SUCCESS_PREFIX" default:"success"`
	ErrorPrefix   string `env:"IMPORT_ERROR_PREFIX" default:"error"`

	// MaxConcurrent is the maximum number of parallel imports in the server (default: 2)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a notification waits for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single file import (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// QueueConfig holds settings for the audit event queue consumer.
type QueueConfig struct {
	URL string `env:"QUEUE_URL"`

	// KeySource selects where the encrypted content key comes from:
	// env or object-store (default: env when ENCRYPTION_KEY is set)
	KeySource string `env:"DECRYPTION_KEY_SOURCE"`

	EncryptionKey string `env:"ENCRYPTION_KEY"`
	KeyBucket     string `env:"DECRYPTION_KEY_BUCKET_NAME"`
	KeyFile       string `env:"DECRYPTION_KEY_FILE_NAME"`

	// WaitTime is the SQS long-poll duration; zero means short polling.
	WaitTime time.Duration `env:"QUEUE_WAIT_TIME" default:"0s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: json)
	Format string `env:"LOG_FORMAT" default:"json"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// ResolvedKeySource returns the configured key source, falling back to env
// when an encrypted key is present in the environment and to object-store
// otherwise.
func (c *QueueConfig) ResolvedKeySource() string {
	if c.KeySource != "" {
		return c.KeySource
	}
	if c.EncryptionKey != "" {
		return KeySourceEnv
	}
	return KeySourceObjectStore
}
