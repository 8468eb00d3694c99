//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisContainerConfig holds configuration for the Redis test container.
type RedisContainerConfig struct {
	// ImageTag specifies the Redis version (default: "7-alpine")
	ImageTag string
	// StartupTimeout for container initialization (default: 60 seconds)
	StartupTimeout time.Duration
	// MaxMemory bounds the server memory, e.g. "64mb". Empty leaves it unbounded.
	MaxMemory string
	// MaxMemoryPolicy is the server eviction policy (default: "allkeys-lru")
	MaxMemoryPolicy string
}

// DefaultRedisConfig returns a server sized like a small shared tile map.
func DefaultRedisConfig() *RedisContainerConfig {
	return &RedisContainerConfig{
		ImageTag:        "7-alpine",
		StartupTimeout:  60 * time.Second,
		MaxMemory:       "64mb",
		MaxMemoryPolicy: "allkeys-lru",
	}
}

// dockerReachable reports whether the Docker daemon answers.
func dockerReachable(ctx context.Context) bool {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.DaemonHost(ctx)
	return err == nil
}

func (c *RedisContainerConfig) command() []string {
	cmd := []string{"redis-server"}
	if c.MaxMemory != "" {
		cmd = append(cmd, "--maxmemory", c.MaxMemory)
	}
	if c.MaxMemoryPolicy != "" {
		cmd = append(cmd, "--maxmemory-policy", c.MaxMemoryPolicy)
	}
	return cmd
}

// RedisContainer wraps the testcontainers Redis container.
type RedisContainer struct {
	container *redis.RedisContainer
	host      string
	port      int
}

// StartRedisContainer starts a Redis testcontainer using cfg, or
// DefaultRedisConfig when cfg is nil. The test is skipped when Docker is not
// available.
func StartRedisContainer(ctx context.Context, t *testing.T, cfg *RedisContainerConfig) (*RedisContainer, error) {
	t.Helper()

	if cfg == nil {
		cfg = DefaultRedisConfig()
	}

	if !dockerReachable(ctx) {
		t.Skip("Docker is not available - skipping integration test. Install Docker Desktop or ensure Docker daemon is running.")
		return nil, nil // Never reached due to Skip, but satisfies return
	}

	redisContainer, err := redis.Run(ctx,
		fmt.Sprintf("redis:%s", cfg.ImageTag),
		testcontainers.CustomizeRequestOption(func(req *testcontainers.GenericContainerRequest) error {
			req.Cmd = cfg.command()
			return nil
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(cfg.StartupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		_ = redisContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get Redis host: %w", err)
	}

	mappedPort, err := redisContainer.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = redisContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get Redis port: %w", err)
	}

	port := mappedPort.Int()
	t.Logf("Redis container started at %s:%d (maxmemory=%s, policy=%s)", host, port, cfg.MaxMemory, cfg.MaxMemoryPolicy)

	return &RedisContainer{
		container: redisContainer,
		host:      host,
		port:      port,
	}, nil
}

// Host returns the container host
func (r *RedisContainer) Host() string {
	return r.host
}

// Port returns the mapped Redis port
func (r *RedisContainer) Port() int {
	return r.port
}

// Terminate stops and removes the Redis container
func (r *RedisContainer) Terminate(ctx context.Context) error {
	if r.container == nil {
		return nil
	}
	return r.container.Terminate(ctx)
}

// MustStartRedisContainer is StartRedisContainer failing the test on error.
func MustStartRedisContainer(ctx context.Context, t *testing.T, cfg *RedisContainerConfig) *RedisContainer {
	t.Helper()

	container, err := StartRedisContainer(ctx, t, cfg)
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	return container
}

// WithCleanup registers a cleanup function to terminate the container when the test finishes
func (r *RedisContainer) WithCleanup(t *testing.T) *RedisContainer {
	t.Helper()
	t.Cleanup(func() {
		if err := r.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate Redis container: %v", err)
		}
	})
	return r
}
