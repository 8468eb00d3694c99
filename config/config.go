// Package config loads the tile cache service configuration from defaults,
// YAML files and environment variables with koanf.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/gaborage/tilecache/cache"
)

// EnvPrefix scopes the environment variables read by Load.
const EnvPrefix = "TILECACHE_"

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration files
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// YAML files are optional
	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
		fmt.Printf("Warning: could not load config.yaml: %v\n", err)
	}

	if env := k.String("app.env"); env != "" {
		envFile := fmt.Sprintf("config.%s.yaml", env)
		if err := k.Load(file.Provider(envFile), yaml.Parser()); err != nil {
			fmt.Printf("Warning: could not load %s: %v\n", envFile, err)
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}

	return finish(k)
}

// LoadFromBytes loads configuration from defaults overlaid with a YAML
// document, then environment variables.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}

	return finish(k)
}

// loadEnv maps TILECACHE_CACHE_REDIS_HOST to cache.redis.host.
func loadEnv(k *koanf.Koanf) error {
	err := k.Load(envprovider.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "tilecache",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.timeout.read":     "15s",
		"server.timeout.write":    "30s",
		"server.timeout.idle":     "60s",
		"server.timeout.shutdown": "10s",
		"server.path.base":        "",
		"server.path.health":      "/health",
		"server.path.statistics":  "/statistics",

		"log.level":  "info",
		"log.pretty": false,

		"storage.type":      StorageNull,
		"storage.root":      "",
		"storage.queuesize": 1024,

		"cache.provider":       ProviderLocal,
		"cache.memorylimit":    cache.DefaultMemoryLimit,
		"cache.concurrency":    cache.DefaultConcurrencyLevel,
		"cache.policy":         string(cache.PolicyNull),
		"cache.evictiontime":   cache.DefaultEvictionTime.String(),
		"cache.excludedlayers": []string{},

		// Redis and map defaults; the map is rejected until sized
		"cache.redis.host":         "localhost",
		"cache.redis.port":         6379,
		"cache.redis.database":     0,
		"cache.redis.poolsize":     10,
		"cache.redis.dialtimeout":  "5s",
		"cache.redis.readtimeout":  "3s",
		"cache.redis.writetimeout": "3s",
		"cache.redis.maxretries":   3,
		"cache.map.name":           cache.DefaultMapName,
		"cache.map.maxsizemb":      0,
		"cache.map.evictionpolicy": "NONE",
		"cache.map.maxsizepolicy":  "PER_NODE",

		"observability.metrics.stdout":   false,
		"observability.metrics.interval": "60s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// GetString returns a raw configuration value, or defaultVal when unset.
func (c *Config) GetString(key, defaultVal string) string {
	if c == nil || c.k == nil || !c.k.Exists(key) {
		return defaultVal
	}
	return c.k.String(key)
}

// CacheConfiguration converts the cache section into a provider configuration.
func (c *CacheConfig) CacheConfiguration() *cache.Configuration {
	cfg := cache.NewConfiguration()
	cfg.SetHardMemoryLimit(c.MemoryLimit)
	cfg.SetConcurrencyLevel(c.Concurrency)
	cfg.SetPolicy(c.Policy)
	cfg.SetEvictionTime(c.EvictionTime)
	cfg.SetLayers(c.ExcludedLayers)
	return cfg
}
