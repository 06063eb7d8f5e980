package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable lookup.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, getenv); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := getenv(envName)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = getenv(alt)
		}

		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		var items []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	switch c.Database.CredentialSource {
	case CredentialSourceEnv, CredentialSourceIAM:
	case CredentialSourceSecretStore:
		if c.Database.SecretID == "" {
			errs = append(errs, "DB_SECRET_ID is required when DB_CREDENTIAL_SOURCE is secret-store")
		}
	default:
		errs = append(errs, fmt.Sprintf("DB_CREDENTIAL_SOURCE (%q) must be one of: env, secret-store, iam",
			c.Database.CredentialSource))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Import
	if _, err := time.LoadLocation(c.Import.DefaultTimeZone); err != nil {
		errs = append(errs, fmt.Sprintf("IMPORT_DEFAULT_TIMEZONE (%q) is not a known zone", c.Import.DefaultTimeZone))
	}
	if c.Import.Dialect != "excel" && c.Import.Dialect != "excel-tab" {
		errs = append(errs, fmt.Sprintf("IMPORT_DIALECT (%q) must be one of: excel, excel-tab", c.Import.Dialect))
	}
	if strings.Trim(c.Import.SuccessPrefix, "/") == "" || strings.Trim(c.Import.ErrorPrefix, "/") == "" {
		errs = append(errs, "IMPORT_SUCCESS_PREFIX and IMPORT_ERROR_PREFIX must not be empty")
	}
	if c.Import.SuccessPrefix == c.Import.ErrorPrefix {
		errs = append(errs, "IMPORT_SUCCESS_PREFIX and IMPORT_ERROR_PREFIX must differ")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.Timeout <= 0 {
		errs = append(errs, "IMPORT_TIMEOUT must be positive")
	}

	// Queue key source is only checked when set; ValidateQueue covers the rest.
	if ks := c.Queue.KeySource; ks != "" && ks != KeySourceEnv && ks != KeySourceObjectStore {
		errs = append(errs, fmt.Sprintf("DECRYPTION_KEY_SOURCE (%q) must be one of: env, object-store", ks))
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ValidateQueue checks the settings only the queue consumer needs.
func (c *Config) ValidateQueue() error {
	var errs []error
	if c.Queue.URL == "" {
		errs = append(errs, errors.New("QUEUE_URL is required"))
	}
	switch c.Queue.ResolvedKeySource() {
	case KeySourceEnv:
		if c.Queue.EncryptionKey == "" {
			errs = append(errs, errors.New("ENCRYPTION_KEY is required when the key source is env"))
		}
	case KeySourceObjectStore:
		if c.Queue.KeyBucket == "" || c.Queue.KeyFile == "" {
			errs = append(errs, errors.New("DECRYPTION_KEY_BUCKET_NAME and DECRYPTION_KEY_FILE_NAME are required when the key source is object-store"))
		}
	}
	return errors.Join(errs...)
}

// String returns a safe string representation of the config for logging.
// Connection strings and key material are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, CredentialSource: %q}, ",
		c.Database.MaxConns, c.Database.CredentialSource)
	fmt.Fprintf(&b, "AWS: {Region: %q, EndpointURL: %q}, ", c.AWS.Region, c.AWS.EndpointURL)
	fmt.Fprintf(&b, "Import: {DefaultTimeZone: %q, Dialect: %q, HasHeader: %v, SuccessPrefix: %q, ErrorPrefix: %q}, ",
		c.Import.DefaultTimeZone, c.Import.Dialect, c.Import.HasHeader, c.Import.SuccessPrefix, c.Import.ErrorPrefix)
	fmt.Fprintf(&b, "Queue: {URL: %q, KeySource: %q, EncryptionKey: [MASKED]}, ",
		c.Queue.URL, c.Queue.ResolvedKeySource())
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
