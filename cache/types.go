// Package cache defines the tile cache provider contract shared by the
// process-local and the distributed implementations, together with the
// configuration and statistics models that parameterize and observe them.
//
// Providers are constructed explicitly and handed to whatever assembles the
// storage stack; there is no process-wide registry.
//
// Example usage:
//
//	provider := local.NewProvider(log)
//	provider.Configure(cache.NewConfiguration())
//
//	provider.Put(ctx, obj)
//	cached, ok := provider.Get(ctx, obj)
//
//	// Bulk invalidation of every tile of a layer
//	provider.RemoveLayer(ctx, "roads")
package cache

import (
	"context"

	"github.com/gaborage/tilecache/tile"
)

// Provider is the capability contract satisfied by every tile cache.
// All implementations must be safe for concurrent use without a caller-held lock.
//
// Operations on a layer excluded by the configuration are no-ops: Get reports
// a miss and Put, Remove and RemoveLayer have no effect. None of them error.
type Provider interface {
	// Configure applies cfg. Reapplying identical parameters keeps the cached
	// entries; a change of memory limit, concurrency or eviction mode flushes
	// and rebuilds the underlying cache.
	Configure(cfg *Configuration)

	// Configuration returns the configuration currently in use.
	Configuration() *Configuration

	// Get returns the cached tile for obj's key. A miss has no side effects.
	Get(ctx context.Context, obj *tile.Object) (*tile.Object, bool)

	// Put inserts obj, overwriting any entry with the same key.
	Put(ctx context.Context, obj *tile.Object)

	// Remove invalidates obj's key.
	Remove(ctx context.Context, obj *tile.Object)

	// RemoveLayer invalidates every cached tile of the named layer.
	RemoveLayer(ctx context.Context, layerName string)

	// Clear invalidates every cached tile.
	Clear(ctx context.Context)

	// Reset clears the cache and restarts the statistics window.
	Reset(ctx context.Context)

	// Statistics returns a point-in-time snapshot. It has no side effects.
	Statistics(ctx context.Context) *Statistics

	// AddUncachedLayer excludes a layer from caching and drops its entries.
	AddUncachedLayer(ctx context.Context, layerName string)

	// RemoveUncachedLayer makes a previously excluded layer cacheable again.
	RemoveUncachedLayer(layerName string)

	// ContainsUncachedLayer reports whether the layer is excluded from caching.
	ContainsUncachedLayer(layerName string) bool

	// SupportedPolicies lists the eviction policies the provider honours.
	SupportedPolicies() []EvictionPolicy

	// Immutable reports whether Configure and the uncached-layer methods are ignored.
	Immutable() bool

	// Available reports whether the provider actually caches. A provider that
	// is not available behaves as an always-missing cache.
	Available() bool

	// Name returns a human readable provider name.
	Name() string
}
