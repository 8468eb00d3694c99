package testing

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/tile"
)

// Operation names accepted by MockProvider.OperationCount.
const (
	OpConfigure   = "Configure"
	OpGet         = "Get"
	OpPut         = "Put"
	OpRemove      = "Remove"
	OpRemoveLayer = "RemoveLayer"
	OpClear       = "Clear"
	OpReset       = "Reset"
	OpStatistics  = "Statistics"
)

// MockProvider is an in-memory cache.Provider for tests. It is unbounded and
// thread-safe.
//
// Example usage:
//
//	mock := NewMockProvider()
//	mock.Put(ctx, obj)
//	cached, ok := mock.Get(ctx, obj)
type MockProvider struct {
	mu      sync.Mutex
	entries map[string]*tile.Object
	layers  map[string]map[string]struct{}
	cfg     *cache.Configuration

	// Configurable behavior
	delay       time.Duration
	unavailable bool
	immutable   bool

	hits   atomic.Int64
	misses atomic.Int64

	calls sync.Map // operation name -> *atomic.Int64
}

// Ensure MockProvider implements the contract
var _ cache.Provider = (*MockProvider)(nil)

// NewMockProvider creates an available, mutable MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		entries: make(map[string]*tile.Object),
		layers:  make(map[string]map[string]struct{}),
		cfg:     cache.NewConfiguration(),
	}
}

// Configuration methods (fluent API)

// WithDelay configures a delay before every cache operation.
func (m *MockProvider) WithDelay(delay time.Duration) *MockProvider {
	m.delay = delay
	return m
}

// WithUnavailable makes the mock behave like a disabled provider: every Get
// misses and every mutation is ignored.
func (m *MockProvider) WithUnavailable() *MockProvider {
	m.unavailable = true
	return m
}

// WithImmutable makes Configure and the uncached-layer methods no-ops.
func (m *MockProvider) WithImmutable() *MockProvider {
	m.immutable = true
	return m
}

func (m *MockProvider) track(op string) {
	counter, _ := m.calls.LoadOrStore(op, &atomic.Int64{})
	counter.(*atomic.Int64).Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
}

// OperationCount returns how many times op was called.
func (m *MockProvider) OperationCount(op string) int64 {
	counter, ok := m.calls.Load(op)
	if !ok {
		return 0
	}
	return counter.(*atomic.Int64).Load()
}

// ResetCounters zeroes every operation counter.
func (m *MockProvider) ResetCounters() {
	m.calls.Range(func(key, _ any) bool {
		m.calls.Delete(key)
		return true
	})
}

// Len returns the number of stored tiles.
func (m *MockProvider) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// LayerKeys returns the keys stored for a layer, sorted.
func (m *MockProvider) LayerKeys(layerName string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.layers[layerName]))
	for k := range m.layers[layerName] {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (m *MockProvider) Configure(cfg *cache.Configuration) {
	m.track(OpConfigure)
	if cfg == nil || m.immutable {
		return
	}
	m.mu.Lock()
	m.cfg = cfg.Clone()
	m.mu.Unlock()
}

func (m *MockProvider) Configuration() *cache.Configuration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

func (m *MockProvider) skip(layerName string) bool {
	return m.unavailable || m.Configuration().ContainsLayer(layerName)
}

func (m *MockProvider) Get(_ context.Context, obj *tile.Object) (*tile.Object, bool) {
	m.track(OpGet)
	if m.skip(obj.LayerName) {
		return nil, false
	}

	m.mu.Lock()
	cached, ok := m.entries[cache.TileKey(obj)]
	m.mu.Unlock()

	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return cached, ok
}

func (m *MockProvider) Put(_ context.Context, obj *tile.Object) {
	m.track(OpPut)
	if m.skip(obj.LayerName) {
		return
	}

	key := cache.TileKey(obj)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = obj
	if m.layers[obj.LayerName] == nil {
		m.layers[obj.LayerName] = make(map[string]struct{})
	}
	m.layers[obj.LayerName][key] = struct{}{}
}

func (m *MockProvider) Remove(_ context.Context, obj *tile.Object) {
	m.track(OpRemove)
	if m.skip(obj.LayerName) {
		return
	}

	key := cache.TileKey(obj)
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	if keys := m.layers[obj.LayerName]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(m.layers, obj.LayerName)
		}
	}
}

func (m *MockProvider) RemoveLayer(_ context.Context, layerName string) {
	m.track(OpRemoveLayer)
	if m.skip(layerName) {
		return
	}
	m.dropLayer(layerName)
}

func (m *MockProvider) dropLayer(layerName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.layers[layerName] {
		delete(m.entries, key)
	}
	delete(m.layers, layerName)
}

func (m *MockProvider) Clear(_ context.Context) {
	m.track(OpClear)
	m.mu.Lock()
	m.entries = make(map[string]*tile.Object)
	m.layers = make(map[string]map[string]struct{})
	m.mu.Unlock()
}

func (m *MockProvider) Reset(ctx context.Context) {
	m.track(OpReset)
	m.Clear(ctx)
	m.hits.Store(0)
	m.misses.Store(0)
}

func (m *MockProvider) Statistics(_ context.Context) *cache.Statistics {
	m.track(OpStatistics)

	m.mu.Lock()
	var size int64
	for _, obj := range m.entries {
		size += int64(obj.BlobSize)
	}
	limit := m.cfg.HardMemoryLimit()
	m.mu.Unlock()

	return cache.NewStatistics(m.hits.Load(), m.misses.Load(), 0, limit, size)
}

func (m *MockProvider) AddUncachedLayer(_ context.Context, layerName string) {
	if m.immutable {
		return
	}
	m.Configuration().AddLayer(layerName)
	m.dropLayer(layerName)
}

func (m *MockProvider) RemoveUncachedLayer(layerName string) {
	if m.immutable {
		return
	}
	m.Configuration().RemoveLayer(layerName)
}

func (m *MockProvider) ContainsUncachedLayer(layerName string) bool {
	return m.Configuration().ContainsLayer(layerName)
}

func (m *MockProvider) SupportedPolicies() []cache.EvictionPolicy {
	return []cache.EvictionPolicy{cache.PolicyNull}
}

func (m *MockProvider) Immutable() bool { return m.immutable }

func (m *MockProvider) Available() bool { return !m.unavailable }

func (m *MockProvider) Name() string { return "Mock Cache" }
