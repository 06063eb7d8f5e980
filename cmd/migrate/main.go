// migrate applies the embedded schema migrations.
//
//	migrate           # apply all pending migrations
//	migrate -down 1   # roll back the most recent migration
package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/event-recorder/internal/app"
	"github.com/JonMunkholm/event-recorder/internal/awsutil"
	"github.com/JonMunkholm/event-recorder/internal/config"
	"github.com/JonMunkholm/event-recorder/internal/database"
	"github.com/JonMunkholm/event-recorder/internal/logging"
	"github.com/JonMunkholm/event-recorder/internal/secrets"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		app.Fatal("failed to load configuration", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()
	dsn, err := resolveDSN(ctx, cfg)
	if err != nil {
		app.Fatal("failed to resolve database credentials", err)
	}

	if *down > 0 {
		if err := database.MigrateDown(dsn, *down); err != nil {
			app.Fatal("migration rollback failed", err)
		}
		slog.Info("rolled back migrations", "steps", *down)
		return
	}
	if err := database.Migrate(dsn); err != nil {
		app.Fatal("migration failed", err)
	}
	slog.Info("migrations applied", "database", database.DatabaseName(cfg.Database.URL))
}

// resolveDSN embeds the configured credential in the connection string,
// since the migrator opens its own connection.
func resolveDSN(ctx context.Context, cfg *config.Config) (string, error) {
	awsConf, err := awsutil.Load(ctx, cfg.AWS)
	if err != nil {
		return "", err
	}
	password, err := secrets.NewResolver(awsConf).DatabasePassword(ctx, cfg.Database)
	if err != nil || password == nil {
		return cfg.Database.URL, err
	}
	pw, err := password(ctx)
	if err != nil {
		return "", err
	}
	return database.WithPassword(cfg.Database.URL, pw)
}
