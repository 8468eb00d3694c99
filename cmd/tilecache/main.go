// Command tilecache serves a cache-backed tile blob store and reports its
// cache statistics over HTTP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gaborage/tilecache/app"
	"github.com/gaborage/tilecache/config"
	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tilecache: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Env).
		Str("version", cfg.App.Version).
		Msg("Starting application")

	metrics, err := observability.NewProvider(&observability.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Env,
		Stdout:         cfg.Observability.Metrics.Stdout,
		Interval:       cfg.Observability.Metrics.Interval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := observability.Shutdown(metrics, cfg.Server.Timeout.Shutdown); err != nil {
			log.Error().Err(err).Msg("Failed to flush metrics")
		}
	}()

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		return err
	}

	return a.Run()
}
