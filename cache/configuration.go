package cache

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// Configuration parameterizes a Provider.
//
// Scalar parameters change only through their setters. The excluded-layer set
// supports concurrent reads and additions without external locking; SetLayers
// is additive and never removes an existing entry.
type Configuration struct {
	mu               sync.RWMutex
	hardMemoryLimit  int64
	concurrencyLevel int
	policy           string
	evictionTime     time.Duration
	layers           map[string]struct{}
}

// NewConfiguration returns a configuration populated with the defaults:
// 16 MiB memory limit, concurrency 4, NULL policy, no excluded layers.
func NewConfiguration() *Configuration {
	return &Configuration{
		hardMemoryLimit:  DefaultMemoryLimit,
		concurrencyLevel: DefaultConcurrencyLevel,
		policy:           string(PolicyNull),
		evictionTime:     DefaultEvictionTime,
		layers:           make(map[string]struct{}),
	}
}

// Clone returns an independent copy of c.
func (c *Configuration) Clone() *Configuration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Configuration{
		hardMemoryLimit:  c.hardMemoryLimit,
		concurrencyLevel: c.concurrencyLevel,
		policy:           c.policy,
		evictionTime:     c.evictionTime,
		layers:           maps.Clone(c.layers),
	}
}

// HardMemoryLimit returns the cache capacity in bytes.
func (c *Configuration) HardMemoryLimit() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hardMemoryLimit
}

// SetHardMemoryLimit sets the cache capacity in bytes.
func (c *Configuration) SetHardMemoryLimit(limit int64) {
	c.mu.Lock()
	c.hardMemoryLimit = limit
	c.mu.Unlock()
}

// ConcurrencyLevel returns the internal lock striping hint.
func (c *Configuration) ConcurrencyLevel() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.concurrencyLevel
}

// SetConcurrencyLevel sets the internal lock striping hint.
func (c *Configuration) SetConcurrencyLevel(level int) {
	c.mu.Lock()
	c.concurrencyLevel = level
	c.mu.Unlock()
}

// Policy returns the eviction policy name as configured.
func (c *Configuration) Policy() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policy
}

// SetPolicy sets the eviction policy name. The value is free-form; providers
// interpret it and fall back to their default for names they do not know.
func (c *Configuration) SetPolicy(policy string) {
	c.mu.Lock()
	c.policy = policy
	c.mu.Unlock()
}

// EvictionTime returns the entry lifetime used by the expiring policies.
func (c *Configuration) EvictionTime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.evictionTime
}

// SetEvictionTime sets the entry lifetime used by the expiring policies.
func (c *Configuration) SetEvictionTime(d time.Duration) {
	c.mu.Lock()
	c.evictionTime = d
	c.mu.Unlock()
}

// Layers returns the excluded layers in lexical order.
func (c *Configuration) Layers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.layers))
}

// SetLayers adds layers to the excluded set.
func (c *Configuration) SetLayers(layers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.layers == nil {
		c.layers = make(map[string]struct{}, len(layers))
	}
	for _, l := range layers {
		c.layers[l] = struct{}{}
	}
}

// AddLayer adds one layer to the excluded set.
func (c *Configuration) AddLayer(layer string) {
	c.SetLayers([]string{layer})
}

// RemoveLayer drops one layer from the excluded set.
func (c *Configuration) RemoveLayer(layer string) {
	c.mu.Lock()
	delete(c.layers, layer)
	c.mu.Unlock()
}

// ContainsLayer reports whether layer is excluded from caching.
func (c *Configuration) ContainsLayer(layer string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.layers[layer]
	return ok
}

// Equal reports whether c and other hold the same parameters and excluded layers.
func (c *Configuration) Equal(other *Configuration) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	a, b := c.Clone(), other.Clone()
	return a.hardMemoryLimit == b.hardMemoryLimit &&
		a.concurrencyLevel == b.concurrencyLevel &&
		a.policy == b.policy &&
		a.evictionTime == b.evictionTime &&
		maps.Equal(a.layers, b.layers)
}
