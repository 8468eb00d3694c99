// Package testing provides utilities for testing code that depends on a
// cache.Provider without building a real local or redis provider.
//
// The primary type is MockProvider, an in-memory cache.Provider with
// configurable availability, delay and immutability, which counts every
// operation for later assertions.
//
// # Basic Usage
//
//	mock := testing.NewMockProvider()
//	mock.Put(ctx, obj)
//	cached, ok := mock.Get(ctx, obj)
//
// # Configurable Behavior
//
// Chain configuration methods to simulate a disabled backend or slow calls:
//
//	mock := testing.NewMockProvider().
//	    WithUnavailable().
//	    WithDelay(10 * time.Millisecond)
//
// # Operation Tracking
//
//	AssertOperationCount(t, mock, OpGet, 5)
//	AssertCacheHit(t, mock, obj)
//	AssertCacheMiss(t, mock, missing)
//
// For behavior of the real providers use cache/local directly, or
// cache/redis with miniredis or testcontainers.
package testing
