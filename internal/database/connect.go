package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/event-recorder/internal/config"
)

// PasswordFunc supplies the database password for each new connection.
// IAM tokens expire, so it is consulted on every dial rather than once.
type PasswordFunc func(ctx context.Context) (string, error)

// Connect builds a pool from cfg and waits until the database answers a
// ping, retrying with exponential backoff for up to cfg.ConnectTimeout.
// A nil password keeps whatever the connection string carries.
func Connect(ctx context.Context, cfg config.DatabaseConfig, password PasswordFunc) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	if password != nil {
		poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			pw, err := password(ctx)
			if err != nil {
				return fmt.Errorf("resolving database password: %w", err)
			}
			cc.Password = pw
			return nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	expB := backoff.NewExponentialBackOff()
	expB.InitialInterval = 250 * time.Millisecond
	expB.MaxInterval = 5 * time.Second
	expB.MaxElapsedTime = cfg.ConnectTimeout

	ping := func() error { return pool.Ping(ctx) }
	notify := func(err error, wait time.Duration) {
		slog.Warn("database not ready, retrying", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(expB, ctx), notify); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	slog.Info("connected to database", "name", DatabaseName(cfg.URL))
	return pool, nil
}

// DatabaseName returns the database named by a URL-style connection string.
func DatabaseName(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		return strings.TrimPrefix(u.Path, "/")
	}
	return ""
}

// WithPassword returns a URL-style connection string carrying password.
func WithPassword(dsn, password string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("database URL must be URL-style to carry a password")
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String(), nil
}
