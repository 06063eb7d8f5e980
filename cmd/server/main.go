// server receives bucket notifications from MinIO or LocalStack over HTTP
// and runs the IdP fraud-data import for each, for local development and
// deployments without Lambda.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/event-recorder/internal/app"
	"github.com/JonMunkholm/event-recorder/internal/core"
	"github.com/JonMunkholm/event-recorder/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := app.Init(ctx)
	if err != nil {
		app.Fatal("failed to initialise", err)
	}
	defer d.Close()
	cfg := d.Config

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"auth_enabled", len(cfg.Server.AuthTokens) > 0,
	)

	service, err := core.NewService(d.Store, d.Objects, cfg.Import)
	if err != nil {
		app.Fatal("failed to create service", err)
	}
	limiter := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	server := web.NewServer(service, d.Store, limiter, cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
			return err
		}
		slog.Info("all imports completed")
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		d.Close()
		os.Exit(1)
	}
}
