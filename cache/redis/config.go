package redis

import (
	"fmt"
	"strings"
	"time"

	"github.com/gaborage/tilecache/cache"
)

// Config holds the redis connection options.
type Config struct {
	// Host is the Redis server hostname or IP address.
	Host string `koanf:"host"`

	// Port is the Redis server port (default: 6379).
	Port int `koanf:"port"`

	// Password for Redis authentication (optional).
	// Should be provided via environment variable: CACHE_REDIS_PASSWORD
	Password string `koanf:"password"` //nolint:gosec // G117 - config field, loaded from env/vault

	// Database number to use (default: 0).
	Database int `koanf:"database"`

	// PoolSize is the maximum number of socket connections (default: 10).
	PoolSize int `koanf:"poolsize"`

	// DialTimeout is the timeout for establishing new connections (default: 5s).
	DialTimeout time.Duration `koanf:"dialtimeout"`

	// ReadTimeout is the timeout for socket reads (default: 3s).
	// -1 disables timeout.
	ReadTimeout time.Duration `koanf:"readtimeout"`

	// WriteTimeout is the timeout for socket writes (default: 3s).
	// -1 disables timeout.
	WriteTimeout time.Duration `koanf:"writetimeout"`

	// MaxRetries is the maximum number of retries before giving up (default: 3).
	// -1 disables retries.
	MaxRetries int `koanf:"maxretries"`
}

// DefaultConfig returns connection options for a local redis.
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	}
}

// Validate performs fail-fast validation of the connection options.
func (c *Config) Validate() error {
	if c.Host == "" {
		return cache.NewConfigError("redis.host", "host is required", nil)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return cache.NewConfigError("redis.port", fmt.Sprintf("invalid port: %d", c.Port), nil)
	}

	if c.Database < 0 || c.Database > 15 {
		return cache.NewConfigError("redis.database", fmt.Sprintf("invalid database number: %d (must be 0-15)", c.Database), nil)
	}

	if c.PoolSize <= 0 {
		return cache.NewConfigError("redis.poolsize", fmt.Sprintf("invalid pool size: %d (must be > 0)", c.PoolSize), nil)
	}

	if c.DialTimeout < 0 {
		return cache.NewConfigError("redis.dialtimeout", "dial timeout cannot be negative", nil)
	}

	if c.ReadTimeout < -1 {
		return cache.NewConfigError("redis.readtimeout", "read timeout cannot be less than -1", nil)
	}

	if c.WriteTimeout < -1 {
		return cache.NewConfigError("redis.writetimeout", "write timeout cannot be less than -1", nil)
	}

	return nil
}

// Address returns the Redis server address in "host:port" format.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Map eviction and size policies.
const (
	EvictionNone   = "NONE"
	EvictionLRU    = "LRU"
	EvictionLFU    = "LFU"
	EvictionRandom = "RANDOM"

	SizePolicyUsedHeap = "USED_HEAP_SIZE"
	SizePolicyPerNode  = "PER_NODE"
)

// serverPolicies maps map eviction policies to redis maxmemory-policy values.
var serverPolicies = map[string]string{
	EvictionLRU:    "allkeys-lru",
	EvictionLFU:    "allkeys-lfu",
	EvictionRandom: "allkeys-random",
}

// MapConfig describes the shared map holding cached tiles.
type MapConfig struct {
	// Name of the map; entries live under "<Name>:" (default: CacheProviderMap).
	Name string `koanf:"name"`

	// MaxSizeMB is the map capacity in megabytes.
	MaxSizeMB int64 `koanf:"maxsizemb"`

	// EvictionPolicy names how the server evicts entries: LRU, LFU or RANDOM.
	// The default NONE is rejected.
	EvictionPolicy string `koanf:"evictionpolicy"`

	// MaxSizePolicy must be USED_HEAP_SIZE: capacity is measured in memory, not entries.
	MaxSizePolicy string `koanf:"maxsizepolicy"`
}

// DefaultMapConfig returns the map defaults. They do not validate: a usable
// map needs an explicit size and eviction policy.
func DefaultMapConfig() *MapConfig {
	return &MapConfig{
		Name:           cache.DefaultMapName,
		EvictionPolicy: EvictionNone,
		MaxSizePolicy:  SizePolicyPerNode,
	}
}

// Validate checks that the map is the tile cache map with a positive size,
// an explicit eviction policy and a memory-based size policy.
func (m *MapConfig) Validate() error {
	if m.Name != cache.DefaultMapName {
		return cache.NewConfigError("cache.map.name",
			fmt.Sprintf("no mapping for %s is present (got %q)", cache.DefaultMapName, m.Name), cache.ErrNotConfigured)
	}

	if m.MaxSizeMB <= 0 {
		return cache.NewConfigError("cache.map.maxsizemb",
			fmt.Sprintf("max size must be positive: %d", m.MaxSizeMB), cache.ErrNotConfigured)
	}

	policy := strings.ToUpper(m.EvictionPolicy)
	if policy == "" || policy == EvictionNone {
		return cache.NewConfigError("cache.map.evictionpolicy", "an explicit eviction policy is required", cache.ErrNotConfigured)
	}
	if _, ok := serverPolicies[policy]; !ok {
		return cache.NewConfigError("cache.map.evictionpolicy",
			fmt.Sprintf("unsupported eviction policy: %s", m.EvictionPolicy), cache.ErrNotConfigured)
	}

	if !strings.EqualFold(m.MaxSizePolicy, SizePolicyUsedHeap) {
		return cache.NewConfigError("cache.map.maxsizepolicy",
			fmt.Sprintf("size policy must be %s (got %q)", SizePolicyUsedHeap, m.MaxSizePolicy), cache.ErrNotConfigured)
	}

	return nil
}

// TotalSize returns the map capacity in bytes.
func (m *MapConfig) TotalSize() int64 {
	return m.MaxSizeMB * cache.MBToBytes
}

// ServerPolicy returns the redis maxmemory-policy matching the eviction policy.
func (m *MapConfig) ServerPolicy() string {
	return serverPolicies[strings.ToUpper(m.EvictionPolicy)]
}
