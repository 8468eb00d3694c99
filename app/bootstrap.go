package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/cache/local"
	"github.com/gaborage/tilecache/cache/redis"
	"github.com/gaborage/tilecache/config"
	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/storage"
	"github.com/gaborage/tilecache/storage/file"
)

// newProvider builds the cache provider selected by cfg.Cache.Provider. The
// redis provider degrades to its disabled mode when the cluster cannot be
// configured; "disabled" selects that mode directly.
func newProvider(ctx context.Context, cfg *config.Config, log logger.Logger) cache.Provider {
	cc := &cfg.Cache

	switch cc.Provider {
	case config.ProviderRedis:
		p := redis.Bootstrap(ctx, log, &cc.Redis, &cc.Map)
		log.Info().
			Str("provider", p.Name()).
			Bool("available", p.Available()).
			Str("address", cc.Redis.Address()).
			Msg("Distributed cache provider ready")
		return p
	case config.ProviderDisabled:
		log.Info().Msg("Tile cache disabled")
		return redis.NewProvider(log, nil)
	default:
		p := local.NewProvider(log)
		p.Configure(cc.CacheConfiguration())
		log.Info().
			Str("provider", p.Name()).
			Int64("memory_limit", cc.MemoryLimit).
			Str("policy", cc.Policy).
			Strs("excluded_layers", cc.ExcludedLayers).
			Msg("Local cache provider ready")
		return p
	}
}

// newBackingStore builds the backing blob store selected by cfg.Storage.Type.
func newBackingStore(cfg *config.Config, log logger.Logger) (storage.BlobStore, error) {
	switch cfg.Storage.Type {
	case config.StorageFile:
		store, err := file.New(log, cfg.Storage.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		log.Info().Str("root", cfg.Storage.Root).Msg("File blob store ready")
		return store, nil
	default:
		log.Info().Msg("Null blob store selected, tiles are not persisted")
		return storage.NullBlobStore{}, nil
	}
}

// closeProvider releases provider resources when the provider holds any.
func closeProvider(p cache.Provider) error {
	switch c := p.(type) {
	case io.Closer:
		return c.Close()
	case interface{ Close() }:
		c.Close()
	}
	return nil
}

var errShutdownIncomplete = errors.New("shutdown incomplete")
