package testing

import (
	"bytes"
	"context"
	"testing"

	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/tile"
)

// LayerIndexer is satisfied by providers that expose their layer index.
type LayerIndexer interface {
	LayerKeys(layerName string) []string
}

// AssertCacheHit asserts that obj is cached and returns the cached tile.
//
// Example:
//
//	mock := NewMockProvider()
//	mock.Put(ctx, obj)
//	AssertCacheHit(t, mock, obj)
func AssertCacheHit(t *testing.T, p cache.Provider, obj *tile.Object) *tile.Object {
	t.Helper()

	cached, ok := p.Get(context.Background(), obj)
	if !ok {
		t.Errorf("expected cache hit for %s", obj)
	}
	return cached
}

// AssertCacheMiss asserts that obj is not cached.
func AssertCacheMiss(t *testing.T, p cache.Provider, obj *tile.Object) {
	t.Helper()

	if _, ok := p.Get(context.Background(), obj); ok {
		t.Errorf("expected cache miss for %s", obj)
	}
}

// AssertCachedBlob asserts that obj is cached with exactly the given payload.
func AssertCachedBlob(t *testing.T, p cache.Provider, obj *tile.Object, expected []byte) {
	t.Helper()

	cached := AssertCacheHit(t, p, obj)
	if cached == nil || cached.Blob == nil {
		return
	}
	actual, err := tile.ReadAll(cached.Blob)
	if err != nil {
		t.Errorf("failed to read cached blob for %s: %v", obj, err)
		return
	}
	if !bytes.Equal(actual, expected) {
		t.Errorf("cached blob mismatch for %s: expected %q, got %q", obj, expected, actual)
	}
}

// AssertLayerIndexed asserts how many keys are indexed for a layer.
func AssertLayerIndexed(t *testing.T, p LayerIndexer, layerName string, expected int) {
	t.Helper()

	if actual := len(p.LayerKeys(layerName)); actual != expected {
		t.Errorf("expected %d keys indexed for layer %q, got %d", expected, layerName, actual)
	}
}

// AssertOperationCount asserts that an operation was called exactly expected times.
//
// Example:
//
//	AssertOperationCount(t, mock, OpGet, 5)
func AssertOperationCount(t *testing.T, mock *MockProvider, operation string, expected int64) {
	t.Helper()

	if actual := mock.OperationCount(operation); actual != expected {
		t.Errorf("expected %d %s operations, got %d", expected, operation, actual)
	}
}

// AssertOperationCountAtLeast asserts that an operation was called at least minimum times.
func AssertOperationCountAtLeast(t *testing.T, mock *MockProvider, operation string, minimum int64) {
	t.Helper()

	if actual := mock.OperationCount(operation); actual < minimum {
		t.Errorf("expected at least %d %s operations, got %d", minimum, operation, actual)
	}
}

// AssertHitRate asserts the hit and miss counters of a statistics snapshot.
func AssertHitRate(t *testing.T, stats *cache.Statistics, hits, misses int64) {
	t.Helper()

	if stats.HitCount != hits || stats.MissCount != misses {
		t.Errorf("expected %d hits and %d misses, got %d hits and %d misses",
			hits, misses, stats.HitCount, stats.MissCount)
	}
}
