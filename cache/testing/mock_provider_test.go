package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/tile"
)

func mockTile(layer string, x int64, payload string) *tile.Object {
	return tile.NewCompleteObject(layer, [3]int64{x, 0, 0}, "g", "image/png", nil,
		tile.NewByteResource([]byte(payload)))
}

func TestMockProviderPutGet(t *testing.T) {
	ctx := context.Background()
	mock := NewMockProvider()
	obj := mockTile("roads", 1, "png")

	AssertCacheMiss(t, mock, obj)
	mock.Put(ctx, obj)
	AssertCachedBlob(t, mock, obj, []byte("png"))
	AssertLayerIndexed(t, mock, "roads", 1)

	AssertOperationCount(t, mock, OpPut, 1)
	AssertOperationCount(t, mock, OpGet, 2)
	AssertHitRate(t, mock.Statistics(ctx), 1, 1)
}

func TestMockProviderRemoveLayer(t *testing.T) {
	ctx := context.Background()
	mock := NewMockProvider()
	mock.Put(ctx, mockTile("roads", 1, "a"))
	mock.Put(ctx, mockTile("roads", 2, "b"))
	mock.Put(ctx, mockTile("rivers", 1, "c"))

	mock.RemoveLayer(ctx, "roads")

	assert.Equal(t, 1, mock.Len())
	AssertLayerIndexed(t, mock, "roads", 0)
	AssertCacheHit(t, mock, mockTile("rivers", 1, ""))
}

func TestMockProviderUnavailable(t *testing.T) {
	ctx := context.Background()
	mock := NewMockProvider().WithUnavailable()
	obj := mockTile("roads", 1, "a")

	mock.Put(ctx, obj)

	assert.False(t, mock.Available())
	AssertCacheMiss(t, mock, obj)
	assert.Equal(t, 0, mock.Len())
}

func TestMockProviderImmutable(t *testing.T) {
	ctx := context.Background()
	mock := NewMockProvider().WithImmutable()

	cfg := cache.NewConfiguration()
	cfg.SetHardMemoryLimit(1)
	mock.Configure(cfg)
	mock.AddUncachedLayer(ctx, "roads")

	assert.True(t, mock.Immutable())
	assert.Equal(t, cache.DefaultMemoryLimit, mock.Configuration().HardMemoryLimit())
	assert.False(t, mock.ContainsUncachedLayer("roads"))
	AssertOperationCount(t, mock, OpConfigure, 1)
}

func TestMockProviderUncachedLayer(t *testing.T) {
	ctx := context.Background()
	mock := NewMockProvider()
	obj := mockTile("roads", 1, "a")
	mock.Put(ctx, obj)

	mock.AddUncachedLayer(ctx, "roads")
	AssertCacheMiss(t, mock, obj)
	assert.Equal(t, 0, mock.Len())

	mock.RemoveUncachedLayer("roads")
	mock.Put(ctx, obj)
	AssertCacheHit(t, mock, obj)
}

func TestMockProviderResetAndCounters(t *testing.T) {
	ctx := context.Background()
	mock := NewMockProvider()
	obj := mockTile("roads", 1, "abc")
	mock.Put(ctx, obj)
	mock.Get(ctx, obj)

	stats := mock.Statistics(ctx)
	assert.Equal(t, int64(3), stats.ActualSize)

	mock.Reset(ctx)
	AssertHitRate(t, mock.Statistics(ctx), 0, 0)
	AssertOperationCountAtLeast(t, mock, OpClear, 1)

	mock.ResetCounters()
	AssertOperationCount(t, mock, OpGet, 0)
}

func TestMockProviderDelay(t *testing.T) {
	mock := NewMockProvider().WithDelay(20 * time.Millisecond)

	start := time.Now()
	mock.Get(context.Background(), mockTile("roads", 1, ""))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
