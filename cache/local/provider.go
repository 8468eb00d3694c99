// Package local implements the process-local tile cache: a byte-weighted,
// lock-striped LRU cache paired with a layer index for bulk invalidation.
//
// The index is maintained by the cache's removal listener, which runs after
// the segment lock has been released. Index and cache are therefore only
// eventually consistent: a key is indexed just before its entry is inserted,
// and may briefly linger in the index after the entry is gone.
package local

import (
	"context"
	"sync"
	"time"

	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/internal/tracking"
	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/tile"
)

// ProviderName is the human readable name of the local provider.
const ProviderName = "Local Weighted Cache"

var supportedPolicies = []cache.EvictionPolicy{
	cache.PolicyNull,
	cache.PolicyLRU,
	cache.PolicyExpireAfterWrite,
	cache.PolicyExpireAfterAccess,
}

// params are the configuration values the weighted cache is built from.
// A change in any of them forces a rebuild.
type params struct {
	limit       int64
	concurrency int
	policy      cache.EvictionPolicy
	ttl         time.Duration
}

// Option customizes a Provider.
type Option func(*Provider)

// WithClock replaces the time source used for entry expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.clock = now }
}

// WithCleanUpInterval sets how often expired entries are swept under the
// expiring policies. It defaults to the eviction time.
func WithCleanUpInterval(d time.Duration) Option {
	return func(p *Provider) { p.cleanUpEvery = d }
}

// Provider is the local cache.Provider.
type Provider struct {
	log          logger.Logger
	clock        func() time.Time
	cleanUpEvery time.Duration

	mu          sync.RWMutex
	cfg         *cache.Configuration
	current     params
	cache       *weightedCache
	index       *layerIndex
	stopJanitor func()

	unregister func()
}

// Ensure Provider implements the contract
var _ cache.Provider = (*Provider)(nil)

// NewProvider creates a local provider configured with the defaults of
// cache.NewConfiguration.
func NewProvider(log logger.Logger, opts ...Option) *Provider {
	p := &Provider{log: log, clock: time.Now}
	for _, opt := range opts {
		opt(p)
	}

	p.Configure(cache.NewConfiguration())
	p.unregister = tracking.RegisterProviderMetrics(p.observe, ProviderName)
	return p
}

// Close stops the expiry sweeper and unregisters the provider's metrics.
// The cache stays usable.
func (p *Provider) Close() {
	p.mu.Lock()
	stop := p.stopJanitor
	p.stopJanitor = nil
	p.mu.Unlock()

	if stop != nil {
		stop()
	}
	if p.unregister != nil {
		p.unregister()
	}
}

// startJanitor sweeps c every interval until the returned func is called.
// Expired entries then stop counting toward the reported size even when
// nobody touches their segment.
func startJanitor(c *weightedCache, interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.cleanUp()
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

func (p *Provider) resolve(cfg *cache.Configuration) params {
	policy, ok := cache.ParsePolicy(cfg.Policy())
	if !ok || policy == cache.PolicyLFU {
		p.log.Warn().
			Str("policy", cfg.Policy()).
			Msg("Unsupported eviction policy, falling back to weighted LRU")
		policy = cache.PolicyNull
	}

	ttl := cfg.EvictionTime()
	if !policy.Expiring() {
		ttl = 0
	} else if ttl <= 0 {
		ttl = cache.DefaultEvictionTime
	}

	return params{
		limit:       max(cfg.HardMemoryLimit(), 0),
		concurrency: max(cfg.ConcurrencyLevel(), 1),
		policy:      policy,
		ttl:         ttl,
	}
}

// Configure applies cfg. The excluded layers are always taken over; the
// weighted cache is only rebuilt, and its entries dropped, when the memory
// limit, concurrency or eviction mode changed.
func (p *Provider) Configure(cfg *cache.Configuration) {
	if cfg == nil {
		return
	}
	cfg = cfg.Clone()
	next := p.resolve(cfg)

	p.mu.Lock()
	p.cfg = cfg
	if p.cache != nil && next == p.current {
		p.mu.Unlock()
		return
	}

	oldCache, oldStop := p.cache, p.stopJanitor
	index := newLayerIndex()
	p.cache = newWeightedCache(weightedOptions{
		maxWeight: next.limit,
		segments:  next.concurrency,
		policy:    next.policy,
		ttl:       next.ttl,
		clock:     p.clock,
		onRemoval: indexCleaner(index),
	})
	p.index = index
	p.current = next
	p.stopJanitor = nil
	if next.ttl > 0 {
		interval := p.cleanUpEvery
		if interval <= 0 {
			interval = next.ttl
		}
		p.stopJanitor = startJanitor(p.cache, interval)
	}
	p.mu.Unlock()

	if oldStop != nil {
		oldStop()
	}
	if oldCache != nil {
		oldCache.invalidateAll()
	}

	p.log.Info().
		Int64("memory_limit", next.limit).
		Int("concurrency", next.concurrency).
		Str("policy", string(next.policy)).
		Dur("eviction_time", next.ttl).
		Msg("Local tile cache built")
}

// indexCleaner keeps the layer index in step with removals from the cache.
// Replacements keep their key, so they leave the index untouched.
func indexCleaner(index *layerIndex) RemovalListener {
	return func(key string, value *tile.Object, cause RemovalCause) {
		if cause == CauseReplaced || value == nil {
			return
		}
		index.remove(value.LayerName, key)
	}
}

// Configuration returns the configuration in use. Changes to its scalar
// values take effect only through Configure.
func (p *Provider) Configuration() *cache.Configuration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

func (p *Provider) snapshot() (*cache.Configuration, *weightedCache, *layerIndex) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, p.cache, p.index
}

func (p *Provider) Get(ctx context.Context, obj *tile.Object) (*tile.Object, bool) {
	cfg, c, _ := p.snapshot()
	if cfg.ContainsLayer(obj.LayerName) {
		return nil, false
	}

	start := time.Now()
	cached, ok := c.get(cache.TileKey(obj))
	tracking.RecordOperation(ctx, ProviderName, tracking.OpGet, time.Since(start), ok, nil)
	return cached, ok
}

func (p *Provider) Put(ctx context.Context, obj *tile.Object) {
	cfg, c, index := p.snapshot()
	if cfg.ContainsLayer(obj.LayerName) {
		return
	}

	start := time.Now()
	key := cache.TileKey(obj)
	// Indexed first, so an entry evicted by its own insert is unindexed again
	index.add(obj.LayerName, key)
	c.put(key, obj, weightOf(obj))
	tracking.RecordOperation(ctx, ProviderName, tracking.OpPut, time.Since(start), false, nil)
}

// weightOf returns the blob byte size of obj.
func weightOf(obj *tile.Object) int64 {
	if obj.BlobSize > 0 {
		return int64(obj.BlobSize)
	}
	if obj.Blob != nil {
		return max(obj.Blob.Size(), 0)
	}
	return 0
}

func (p *Provider) Remove(ctx context.Context, obj *tile.Object) {
	cfg, c, _ := p.snapshot()
	if cfg.ContainsLayer(obj.LayerName) {
		return
	}

	start := time.Now()
	c.invalidate(cache.TileKey(obj))
	tracking.RecordOperation(ctx, ProviderName, tracking.OpRemove, time.Since(start), false, nil)
}

func (p *Provider) RemoveLayer(ctx context.Context, layerName string) {
	cfg, _, _ := p.snapshot()
	if cfg.ContainsLayer(layerName) {
		return
	}
	p.removeLayer(ctx, layerName)
}

// removeLayer drops the layer from the index and invalidates every key it held.
func (p *Provider) removeLayer(ctx context.Context, layerName string) {
	_, c, index := p.snapshot()

	start := time.Now()
	keys := index.drain(layerName)
	for _, key := range keys {
		c.invalidate(key)
	}
	tracking.RecordOperation(ctx, ProviderName, tracking.OpRemoveLayer, time.Since(start), false, nil)

	p.log.Debug().
		Str("layer", layerName).
		Int("keys", len(keys)).
		Msg("Layer removed from local tile cache")
}

func (p *Provider) Clear(ctx context.Context) {
	_, c, index := p.snapshot()

	start := time.Now()
	c.invalidateAll()
	index.reset()
	tracking.RecordOperation(ctx, ProviderName, tracking.OpClear, time.Since(start), false, nil)
}

// Reset clears the cache and zeroes its hit, miss and eviction counters.
func (p *Provider) Reset(ctx context.Context) {
	p.Clear(ctx)
	_, c, _ := p.snapshot()
	c.resetStats()
}

// Statistics reads the counters and sizes of the live cache.
func (p *Provider) Statistics(_ context.Context) *cache.Statistics {
	_, c, _ := p.snapshot()
	return cache.NewStatistics(
		c.hits.Load(),
		c.misses.Load(),
		c.evictions.Load(),
		c.maxWeight(),
		c.weight(),
	)
}

func (p *Provider) observe(_ context.Context) tracking.ProviderStats {
	_, c, _ := p.snapshot()
	return tracking.ProviderStats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		ActualSize: c.weight(),
	}
}

// CleanUp drops expired entries now. It is a no-op unless an expiring policy
// is configured; under one it also runs periodically.
func (p *Provider) CleanUp() {
	_, c, _ := p.snapshot()
	c.cleanUp()
}

// Len returns the number of cached tiles.
func (p *Provider) Len() int {
	_, c, _ := p.snapshot()
	return c.len()
}

// LayerKeys returns the cache keys currently indexed for a layer.
func (p *Provider) LayerKeys(layerName string) []string {
	_, _, index := p.snapshot()
	return index.keys(layerName)
}

// AddUncachedLayer excludes a layer from caching and drops its cached tiles.
func (p *Provider) AddUncachedLayer(ctx context.Context, layerName string) {
	cfg, _, _ := p.snapshot()
	cfg.AddLayer(layerName)
	p.removeLayer(ctx, layerName)
}

func (p *Provider) RemoveUncachedLayer(layerName string) {
	cfg, _, _ := p.snapshot()
	cfg.RemoveLayer(layerName)
}

func (p *Provider) ContainsUncachedLayer(layerName string) bool {
	cfg, _, _ := p.snapshot()
	return cfg.ContainsLayer(layerName)
}

func (p *Provider) SupportedPolicies() []cache.EvictionPolicy {
	return append([]cache.EvictionPolicy(nil), supportedPolicies...)
}

func (p *Provider) Immutable() bool { return false }

func (p *Provider) Available() bool { return true }

func (p *Provider) Name() string { return ProviderName }
