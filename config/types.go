package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/tilecache/cache/redis"
)

// Config represents the overall application configuration structure.
// The embedded koanf.Koanf instance allows access to keys not modelled in
// the struct.
type Config struct {
	App           AppConfig           `koanf:"app" json:"app" yaml:"app"`
	Server        ServerConfig        `koanf:"server" json:"server" yaml:"server"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log"`
	Storage       StorageConfig       `koanf:"storage" json:"storage" yaml:"storage"`
	Cache         CacheConfig         `koanf:"cache" json:"cache" yaml:"cache"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`

	// k holds the underlying Koanf instance
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" validate:"oneof=development staging production"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host" json:"host" yaml:"host"`
	Port    int           `koanf:"port" json:"port" yaml:"port" validate:"min=1,max=65535"`
	Timeout TimeoutConfig `koanf:"timeout" json:"timeout" yaml:"timeout"`
	Path    PathConfig    `koanf:"path" json:"path" yaml:"path"`
}

// TimeoutConfig holds the server timeouts.
type TimeoutConfig struct {
	Read     time.Duration `koanf:"read" json:"read" yaml:"read" validate:"gt=0"`
	Write    time.Duration `koanf:"write" json:"write" yaml:"write" validate:"gt=0"`
	Idle     time.Duration `koanf:"idle" json:"idle" yaml:"idle" validate:"gte=0"`
	Shutdown time.Duration `koanf:"shutdown" json:"shutdown" yaml:"shutdown" validate:"gt=0"`
}

// PathConfig holds URL path settings for the server.
type PathConfig struct {
	Base       string `koanf:"base" json:"base" yaml:"base"`
	Health     string `koanf:"health" json:"health" yaml:"health" validate:"startswith=/"`
	Statistics string `koanf:"statistics" json:"statistics" yaml:"statistics" validate:"startswith=/"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// Storage types
const (
	StorageFile = "file"
	StorageNull = "null"
)

// StorageConfig selects the backing blob store.
type StorageConfig struct {
	Type string `koanf:"type" json:"type" yaml:"type" validate:"oneof=file null"`
	// Root is the file store directory. Required for the file store.
	Root string `koanf:"root" json:"root" yaml:"root"`
	// QueueSize is the capacity of the backing store worker queue.
	QueueSize int `koanf:"queuesize" json:"queuesize" yaml:"queuesize" validate:"gte=1"`
}

// Cache providers
const (
	ProviderLocal    = "local"
	ProviderRedis    = "redis"
	ProviderDisabled = "disabled"
)

// CacheConfig selects and parameterizes the tile cache.
type CacheConfig struct {
	Provider string `koanf:"provider" json:"provider" yaml:"provider" validate:"oneof=local redis disabled"`

	// MemoryLimit is the local cache capacity in bytes (default: 16 MiB).
	MemoryLimit int64 `koanf:"memorylimit" json:"memorylimit" yaml:"memorylimit" validate:"gt=0"`

	// Concurrency is the local cache lock striping hint (default: 4).
	Concurrency int `koanf:"concurrency" json:"concurrency" yaml:"concurrency" validate:"min=1,max=1024"`

	// Policy is the eviction policy name. Unknown names fall back to NULL.
	Policy string `koanf:"policy" json:"policy" yaml:"policy"`

	// EvictionTime is the entry lifetime for the expiring policies.
	EvictionTime time.Duration `koanf:"evictiontime" json:"evictiontime" yaml:"evictiontime" validate:"gte=0"`

	// ExcludedLayers are never cached.
	ExcludedLayers []string `koanf:"excludedlayers" json:"excludedlayers" yaml:"excludedlayers"`

	Redis redis.Config    `koanf:"redis" json:"redis" yaml:"redis"`
	Map   redis.MapConfig `koanf:"map" json:"map" yaml:"map"`
}

// ObservabilityConfig holds metrics export settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// MetricsConfig controls the stdout metrics exporter.
type MetricsConfig struct {
	Stdout   bool          `koanf:"stdout" json:"stdout" yaml:"stdout"`
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval" validate:"gt=0"`
}
