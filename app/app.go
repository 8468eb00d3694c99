// Package app wires the tile cache service together: cache provider,
// backing store, cache-backed decorator and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"

	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/config"
	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/server"
	"github.com/gaborage/tilecache/storage/memory"
)

// App represents the running service.
type App struct {
	cfg      *config.Config
	logger   logger.Logger
	provider cache.Provider
	store    *memory.Store
	server   ServerRunner
	signals  SignalHandler
}

// New builds the service from cfg.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}

	provider := o.Provider
	if provider == nil {
		provider = newProvider(ctx, cfg, log)
	}

	backing := o.Backing
	if backing == nil {
		var err error
		if backing, err = newBackingStore(cfg, log); err != nil {
			_ = closeProvider(provider)
			return nil, err
		}
	}

	store := memory.New(log, provider, backing, memory.WithQueueSize(cfg.Storage.QueueSize))

	srv := o.Server
	if srv == nil {
		srv = server.New(cfg, log, store)
	}

	signals := o.SignalHandler
	if signals == nil {
		signals = osSignalHandler{}
	}

	return &App{
		cfg:      cfg,
		logger:   log,
		provider: provider,
		store:    store,
		server:   srv,
		signals:  signals,
	}, nil
}

// Store returns the cache-backed blob store.
func (a *App) Store() *memory.Store {
	return a.store
}

// Run serves until a shutdown signal arrives or the server fails, then shuts
// down within the configured timeout.
func (a *App) Run() error {
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- a.server.Start()
	}()

	quit := make(chan os.Signal, 1)
	a.signals.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer a.signals.Stop(quit)

	var serverErr error
	select {
	case sig := <-quit:
		a.logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case serverErr = <-serverErrCh:
		if errors.Is(serverErr, http.ErrServerClosed) {
			serverErr = nil
		} else if serverErr != nil {
			a.logger.Error().Err(serverErr).Msg("Server stopped unexpectedly")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.Timeout.Shutdown)
	defer cancel()

	return errors.Join(serverErr, a.Shutdown(ctx))
}

// Shutdown stops the server, waits for queued backing store work, then
// destroys the decorator and releases the provider.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	a.logger.Info().Msg("Shutting down application")

	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error().Err(err).Msg("Failed to shutdown server")
		errs = append(errs, err)
	}

	if err := a.store.Flush(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Backing store queue not drained")
		errs = append(errs, err)
	}

	a.store.Destroy()
	select {
	case <-a.store.Done():
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("%w: backing store worker still running: %w", errShutdownIncomplete, ctx.Err()))
	}

	if err := closeProvider(a.provider); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close cache provider")
		errs = append(errs, err)
	}

	a.logger.Info().Msg("Application shutdown complete")
	return errors.Join(errs...)
}
