package config

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "missing",
			err:  NewMissingFieldError("storage.root", "TILECACHE_STORAGE_ROOT", "storage.root"),
			want: "config_missing: storage.root is required; set TILECACHE_STORAGE_ROOT or storage.root in config.yaml",
		},
		{
			name: "invalid with options",
			err:  NewInvalidFieldError("cache.provider", "unknown provider", []string{"local", "redis"}),
			want: "config_invalid: cache.provider unknown provider; must be one of: local, redis",
		},
		{
			name: "validation",
			err:  NewValidationError("cache.redis", "host is required"),
			want: "config_invalid: cache.redis host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestConfigErrorUnwrapsFromWrapped(t *testing.T) {
	wrapped := fmt.Errorf("invalid configuration: %w", NewValidationError("cache.redis", "bad"))

	var cfgErr *ConfigError
	require.ErrorAs(t, wrapped, &cfgErr)
	assert.Equal(t, CategoryInvalid, cfgErr.Category)
}
