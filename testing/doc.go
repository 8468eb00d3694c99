// Package testing holds shared test helpers for the tile cache.
//
// The containers subpackage starts real backing services for tests built
// with the integration tag:
//
//	//go:build integration
//
//	srv := containers.MustStartRedisContainer(ctx, t, nil).WithCleanup(t)
//
// Unit tests use miniredis, cache/testing and testing/mocks instead.
package testing
