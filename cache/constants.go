package cache

import "time"

// Provider defaults
//
// These constants define the values a fresh Configuration starts from and the
// fixed parameters of the distributed backend.

const (
	// DefaultMemoryLimit is the default cache capacity: 16 MiB.
	DefaultMemoryLimit int64 = 16 * MBToBytes

	// DefaultConcurrencyLevel is the default lock striping hint.
	DefaultConcurrencyLevel = 4

	// DefaultEvictionTime is the entry lifetime used by the expiring policies
	// when none is configured.
	DefaultEvictionTime = 2 * time.Minute

	// DefaultMapName is the name of the distributed map that holds cached tiles.
	DefaultMapName = "CacheProviderMap"

	// MBToBytes converts megabytes to bytes.
	MBToBytes int64 = 1024 * 1024
)

// Test timing
//
// Used by the provider and store tests to bound asynchronous expectations.

const (
	// TestShortTTL is a lifetime short enough to observe expiry within a test.
	TestShortTTL = 100 * time.Millisecond

	// TestEventuallyWait bounds assert.Eventually polling in tests.
	TestEventuallyWait = 2 * time.Second

	// TestEventuallyTick is the assert.Eventually polling interval.
	TestEventuallyTick = 10 * time.Millisecond
)
