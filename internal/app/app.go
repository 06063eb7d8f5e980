// Package app wires configuration, AWS clients and the database pool for
// the command entry points.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/event-recorder/internal/awsutil"
	"github.com/JonMunkholm/event-recorder/internal/config"
	"github.com/JonMunkholm/event-recorder/internal/database"
	"github.com/JonMunkholm/event-recorder/internal/logging"
	"github.com/JonMunkholm/event-recorder/internal/secrets"
	"github.com/JonMunkholm/event-recorder/internal/storage"
)

// Deps are the process-wide dependencies shared by every invocation.
type Deps struct {
	Config  *config.Config
	AWS     aws.Config
	Objects *storage.ObjectStore
	Secrets *secrets.Resolver
	Pool    *pgxpool.Pool
	Store   *database.Store
}

// Init loads configuration, configures logging and connects to the
// database with the configured credential source.
func Init(ctx context.Context) (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	awsConf, err := awsutil.Load(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	objects, err := storage.NewObjectStore(ctx, storage.WithS3Client(awsutil.S3Client(awsConf, cfg.AWS)))
	if err != nil {
		return nil, err
	}
	resolver := secrets.NewResolver(awsConf, secrets.WithObjectReader(objects))

	password, err := resolver.DatabasePassword(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	pool, err := database.Connect(ctx, cfg.Database, password)
	if err != nil {
		return nil, err
	}

	return &Deps{
		Config:  cfg,
		AWS:     awsConf,
		Objects: objects,
		Secrets: resolver,
		Pool:    pool,
		Store:   database.NewStore(pool),
	}, nil
}

// Close releases the database pool.
func (d *Deps) Close() {
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// Fatal logs err and exits.
func Fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
