package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/logger"
)

const pingTimeout = 5 * time.Second

// Handle is a connected redis client with the validated map it serves.
type Handle struct {
	client *redis.Client
	mapCfg MapConfig

	// maxMemory is the server's maxmemory in bytes; 0 when unbounded or unknown.
	maxMemory int64
}

// Close releases the redis connection pool.
func (h *Handle) Close() error { return h.client.Close() }

// Loader bootstraps the shared map. Its only output is a Handle or the
// verdict that the distributed cache is not configured.
type Loader struct {
	log logger.Logger
}

// NewLoader creates a Loader.
func NewLoader(log logger.Logger) *Loader {
	return &Loader{log: log}
}

// Load validates the map configuration, connects to redis and verifies the
// connection. Every failure wraps cache.ErrNotConfigured.
func (l *Loader) Load(ctx context.Context, cfg *Config, mapCfg *MapConfig) (*Handle, error) {
	if cfg == nil || mapCfg == nil {
		return nil, cache.ErrNotConfigured
	}
	if err := mapCfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(cache.ErrNotConfigured, err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Join(cache.ErrNotConfigured, cache.NewConnectionError("ping", cfg.Address(), err))
	}

	l.checkServerPolicy(pingCtx, client, mapCfg)
	maxMemory, known := l.readMaxMemory(pingCtx, client)
	if known {
		l.checkMaxMemory(mapCfg.TotalSize(), maxMemory)
	}

	return &Handle{client: client, mapCfg: *mapCfg, maxMemory: maxMemory}, nil
}

// checkServerPolicy warns when the server evicts differently than the map
// declares. Servers that refuse CONFIG GET are accepted silently.
func (l *Loader) checkServerPolicy(ctx context.Context, client *redis.Client, mapCfg *MapConfig) {
	values, err := client.ConfigGet(ctx, "maxmemory-policy").Result()
	if err != nil {
		l.log.Debug().Err(err).Msg("Could not read redis maxmemory-policy")
		return
	}
	if actual, ok := values["maxmemory-policy"]; ok && actual != mapCfg.ServerPolicy() {
		l.log.Warn().
			Str("expected", mapCfg.ServerPolicy()).
			Str("actual", actual).
			Msg("Redis eviction policy does not match the tile cache map")
	}
}

// readMaxMemory returns the server's maxmemory. The boolean is false when
// the server refuses CONFIG GET or reports no usable value.
func (l *Loader) readMaxMemory(ctx context.Context, client *redis.Client) (int64, bool) {
	values, err := client.ConfigGet(ctx, "maxmemory").Result()
	if err != nil {
		l.log.Debug().Err(err).Msg("Could not read redis maxmemory")
		return 0, false
	}
	raw, ok := values["maxmemory"]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// checkMaxMemory warns when the server does not bound memory, or bounds it
// below the map size. In the latter case the map is reported against the
// server bound.
func (l *Loader) checkMaxMemory(totalSize, maxMemory int64) {
	switch {
	case maxMemory == 0:
		l.log.Warn().
			Int64("map_size", totalSize).
			Msg("Redis maxmemory is unbounded, the tile cache map size is not enforced")
	case maxMemory < totalSize:
		l.log.Warn().
			Int64("map_size", totalSize).
			Int64("maxmemory", maxMemory).
			Msg("Redis maxmemory is below the tile cache map size")
	}
}

// effectiveSize returns the bytes the map can hold on a server bounded at
// maxMemory. A zero maxMemory leaves totalSize as is.
func effectiveSize(totalSize, maxMemory int64) int64 {
	if maxMemory > 0 && maxMemory < totalSize {
		return maxMemory
	}
	return totalSize
}
