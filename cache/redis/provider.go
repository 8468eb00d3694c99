// Package redis implements the distributed tile cache on a shared redis map.
//
// Each tile is a hash under "<map>:<tile key>" holding its layer, record size
// and CBOR-encoded record. A stats hash next to the map keeps the lookup
// counters and the summed record size. Every operation is one Lua script, so
// each is a single round trip and statistics are read without walking the
// map. Entries the server evicts on its own keep counting toward the
// reported size until the map is cleared. A provider built
// without a Handle runs in disabled mode: it never caches and never fails.
package redis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/internal/tracking"
	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/tile"
)

// ProviderName is the human readable name of the distributed provider.
const ProviderName = "Redis Cache"

// Provider is the distributed cache.Provider. It is immutable: Configure and
// the uncached-layer methods have no effect.
type Provider struct {
	log    logger.Logger
	handle *Handle
	cfg    *cache.Configuration

	entryPrefix string
	entryMatch  string
	statsKey    string
	totalSize   int64

	// Server counters at the last reset; the statistics window starts there.
	mu           sync.Mutex
	baselineHits int64
	baselineGets int64

	closed     atomic.Bool
	unregister func()
}

// Ensure Provider implements the contract
var _ cache.Provider = (*Provider)(nil)

// NewProvider creates a provider over handle. A nil handle yields a provider
// in disabled mode.
func NewProvider(log logger.Logger, handle *Handle) *Provider {
	p := &Provider{log: log, handle: handle, cfg: cache.NewConfiguration()}
	if handle == nil {
		p.log.Info().Msg("Distributed tile cache not configured, running disabled")
		return p
	}

	name := handle.mapCfg.Name
	p.entryPrefix = name + ":"
	p.entryMatch = globEscaper.Replace(name) + ":*"
	p.statsKey = name + ".stats"
	p.totalSize = effectiveSize(handle.mapCfg.TotalSize(), handle.maxMemory)
	p.cfg.SetHardMemoryLimit(p.totalSize)

	p.unregister = tracking.RegisterProviderMetrics(p.observe, ProviderName)

	// Counters survive restarts; start the window now
	p.rebaseline(context.Background())

	p.log.Info().
		Str("map", name).
		Int64("total_size", p.totalSize).
		Str("eviction_policy", handle.mapCfg.EvictionPolicy).
		Msg("Distributed tile cache ready")
	return p
}

// Bootstrap loads the shared map and returns a provider over it, or a
// disabled provider when the map is not configured or unreachable.
func Bootstrap(ctx context.Context, log logger.Logger, cfg *Config, mapCfg *MapConfig) *Provider {
	handle, err := NewLoader(log).Load(ctx, cfg, mapCfg)
	if err != nil {
		log.Warn().Err(err).Msg("Distributed tile cache configuration rejected")
		return NewProvider(log, nil)
	}
	return NewProvider(log, handle)
}

// globEscaper escapes KEYS pattern metacharacters in the map name.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// Close releases the redis connection and unregisters metrics.
func (p *Provider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.unregister != nil {
		p.unregister()
	}
	if p.handle == nil {
		return nil
	}
	return p.handle.Close()
}

func (p *Provider) usable() bool {
	return p.handle != nil && !p.closed.Load()
}

func (p *Provider) entryKey(obj *tile.Object) string {
	return p.entryPrefix + cache.TileKey(obj)
}

func (p *Provider) fail(op, key string, err error) {
	p.log.Warn().Err(cache.NewOperationError(op, key, err)).Msg("Distributed tile cache operation failed")
}

func (p *Provider) Configure(_ *cache.Configuration) {
	p.log.Debug().Msg("Distributed tile cache is immutable, configuration ignored")
}

func (p *Provider) Configuration() *cache.Configuration { return p.cfg }

func (p *Provider) Get(ctx context.Context, obj *tile.Object) (*tile.Object, bool) {
	if !p.usable() {
		return nil, false
	}

	key := p.entryKey(obj)
	start := time.Now()
	data, err := getScript.Run(ctx, p.handle.client, []string{key, p.statsKey}).Text()
	hit := err == nil
	if errors.Is(err, redis.Nil) {
		err = nil
	}
	tracking.RecordOperation(ctx, ProviderName, tracking.OpGet, time.Since(start), hit, err)

	if err != nil {
		p.fail("get", key, err)
		return nil, false
	}
	if !hit {
		return nil, false
	}

	cached, err := cache.DecodeTile([]byte(data))
	if err != nil {
		p.fail("get", key, err)
		if err := p.remove(ctx, key); err != nil {
			p.fail("remove", key, err)
		}
		return nil, false
	}
	return cached, true
}

func (p *Provider) Put(ctx context.Context, obj *tile.Object) {
	if !p.usable() {
		return
	}

	key := p.entryKey(obj)
	data, err := cache.EncodeTile(obj)
	if err != nil {
		p.fail("put", key, err)
		return
	}

	start := time.Now()
	err = putScript.Run(ctx, p.handle.client, []string{key, p.statsKey},
		obj.LayerName, len(data), data,
	).Err()
	tracking.RecordOperation(ctx, ProviderName, tracking.OpPut, time.Since(start), false, err)

	if err != nil {
		p.fail("put", key, err)
	}
}

func (p *Provider) Remove(ctx context.Context, obj *tile.Object) {
	if !p.usable() {
		return
	}

	key := p.entryKey(obj)
	start := time.Now()
	err := p.remove(ctx, key)
	tracking.RecordOperation(ctx, ProviderName, tracking.OpRemove, time.Since(start), false, err)

	if err != nil {
		p.fail("remove", key, err)
	}
}

func (p *Provider) remove(ctx context.Context, key string) error {
	return removeScript.Run(ctx, p.handle.client, []string{key, p.statsKey}).Err()
}

// RemoveLayer deletes every entry of the layer with one server-side script.
func (p *Provider) RemoveLayer(ctx context.Context, layerName string) {
	if !p.usable() {
		return
	}

	start := time.Now()
	removed, err := removeLayerScript.Run(ctx, p.handle.client, []string{p.statsKey}, p.entryMatch, layerName).Int64()
	tracking.RecordOperation(ctx, ProviderName, tracking.OpRemoveLayer, time.Since(start), false, err)

	if err != nil {
		p.fail("remove_layer", layerName, err)
		return
	}
	p.log.Debug().Str("layer", layerName).Int64("keys", removed).Msg("Layer removed from distributed tile cache")
}

func (p *Provider) Clear(ctx context.Context) {
	if !p.usable() {
		return
	}

	start := time.Now()
	err := clearScript.Run(ctx, p.handle.client, []string{p.statsKey}, p.entryMatch).Err()
	tracking.RecordOperation(ctx, ProviderName, tracking.OpClear, time.Since(start), false, err)

	if err != nil {
		p.fail("clear", p.entryMatch, err)
		return
	}
	p.rebaseline(ctx)
}

// Reset clears the map and restarts the statistics window.
func (p *Provider) Reset(ctx context.Context) {
	p.Clear(ctx)
}

type serverStats struct {
	hits, gets, bytes int64
}

func (p *Provider) readStats(ctx context.Context) (serverStats, error) {
	values, err := statsScript.Run(ctx, p.handle.client, []string{p.statsKey}).Int64Slice()
	if err != nil {
		return serverStats{}, err
	}
	if len(values) != 3 {
		return serverStats{}, cache.ErrCorruptEntry
	}
	return serverStats{hits: values[0], gets: values[1], bytes: max(values[2], 0)}, nil
}

func (p *Provider) rebaseline(ctx context.Context) {
	s, err := p.readStats(ctx)
	if err != nil {
		p.fail("statistics", p.statsKey, err)
		return
	}
	p.mu.Lock()
	p.baselineHits, p.baselineGets = s.hits, s.gets
	p.mu.Unlock()
}

// window returns hits and lookups since the last reset.
func (p *Provider) window(s serverStats) (hits, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hits = max(s.hits-p.baselineHits, 0)
	total = max(s.gets-p.baselineGets, hits)
	return hits, total
}

// Statistics reports the window since the last reset. Evictions are decided
// by the server and reported as -1.
func (p *Provider) Statistics(ctx context.Context) *cache.Statistics {
	if !p.usable() {
		return cache.NewStatistics(0, 0, -1, 0, 0)
	}

	start := time.Now()
	s, err := p.readStats(ctx)
	tracking.RecordOperation(ctx, ProviderName, tracking.OpStatistics, time.Since(start), false, err)
	if err != nil {
		p.fail("statistics", p.statsKey, err)
		return cache.NewStatistics(0, 0, -1, p.totalSize, 0)
	}

	hits, total := p.window(s)
	return cache.NewStatistics(hits, total-hits, -1, p.totalSize, s.bytes)
}

func (p *Provider) observe(ctx context.Context) tracking.ProviderStats {
	stats := p.Statistics(ctx)
	return tracking.ProviderStats{
		Hits:       stats.HitCount,
		Misses:     stats.MissCount,
		Evictions:  stats.EvictionCount,
		ActualSize: stats.ActualSize,
	}
}

func (p *Provider) AddUncachedLayer(_ context.Context, _ string) {}

func (p *Provider) RemoveUncachedLayer(_ string) {}

func (p *Provider) ContainsUncachedLayer(_ string) bool { return false }

// SupportedPolicies returns nil: eviction is configured on the server.
func (p *Provider) SupportedPolicies() []cache.EvictionPolicy { return nil }

func (p *Provider) Immutable() bool { return true }

// Available reports whether the shared map was configured and is open.
func (p *Provider) Available() bool { return p.usable() }

func (p *Provider) Name() string { return ProviderName }
