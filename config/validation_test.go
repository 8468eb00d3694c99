package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadFromBytes(nil)
	require.NoError(t, err)
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, Validate(validConfig(t)))
}

func TestValidateDescribesFailure(t *testing.T) {
	cfg := validConfig(t)
	cfg.Cache.Provider = "memcached"

	err := Validate(cfg)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "cache.provider", cfgErr.Field)
	assert.Contains(t, cfgErr.Message, `got "memcached", must be one of: local, redis, disabled`)
}

func TestValidateRedisOnlyWhenSelected(t *testing.T) {
	cfg := validConfig(t)
	cfg.Cache.Redis.Host = ""
	assert.NoError(t, Validate(cfg))

	cfg.Cache.Provider = ProviderRedis
	assert.Error(t, Validate(cfg))
}

func TestValidateFreeFormPolicy(t *testing.T) {
	cfg := validConfig(t)
	cfg.Cache.Policy = "SOMETHING_ELSE"
	assert.NoError(t, Validate(cfg))
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "cache.memorylimit", fieldPath("Config.Cache.MemoryLimit"))
	assert.Equal(t, "port", fieldPath("Port"))
}
