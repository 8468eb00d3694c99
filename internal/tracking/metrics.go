// Package tracking records OpenTelemetry metrics for the cache providers and
// the cache-backed store worker. Instruments come from the global meter
// provider and are created lazily on first use; with no provider installed
// every call is a cheap no-op.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// Meter name for tile cache instrumentation
	cacheMeterName = "tilecache/cache"

	metricCacheOperationDuration = "cache.operation.duration" // Histogram in seconds
	metricCacheHit               = "cache.hit"                // Counter for cache hits
	metricCacheMiss              = "cache.miss"               // Counter for cache misses

	// Provider observables, read from the provider's own counters
	metricProviderHits       = "cache.provider.hits"
	metricProviderMisses     = "cache.provider.misses"
	metricProviderEvictions  = "cache.provider.evictions"
	metricProviderActualSize = "cache.provider.actual_size"

	// Store worker metrics
	metricWorkerTaskDuration = "cache.store.task.duration" // Histogram in seconds
	metricWorkerQueueDepth   = "cache.store.queue.depth"   // Observable UpDownCounter

	attrProvider       = "cache.provider"
	attrOperation      = "cache.operation.name"
	attrCacheHitStatus = "cache.hit"
	attrTask           = "cache.store.task"
	attrErrorType      = "error.type"
)

// Provider operation names
const (
	OpGet         = "get"
	OpPut         = "put"
	OpRemove      = "remove"
	OpRemoveLayer = "remove_layer"
	OpClear       = "clear"
	OpStatistics  = "statistics"
)

var (
	// Singleton meter initialization
	cacheMeter    metric.Meter
	meterOnce     sync.Once
	meterInitMu   sync.Mutex
	metricsInited bool

	// Metric instruments
	cacheOperationDuration metric.Float64Histogram
	cacheHitCounter        metric.Int64Counter
	cacheMissCounter       metric.Int64Counter
	workerTaskDuration     metric.Float64Histogram
)

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize cache metric %s: %v\n", metricName, err)
	}
}

func initCacheMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if cacheMeter != nil {
		return
	}

	cacheMeter = otel.Meter(cacheMeterName)

	var err error

	cacheOperationDuration, err = cacheMeter.Float64Histogram(
		metricCacheOperationDuration,
		metric.WithDescription("Duration of tile cache provider operations"),
		metric.WithUnit("s"),
	)
	logMetricError(metricCacheOperationDuration, err)

	cacheHitCounter, err = cacheMeter.Int64Counter(
		metricCacheHit,
		metric.WithDescription("Number of tile cache hits"),
		metric.WithUnit("{hit}"),
	)
	logMetricError(metricCacheHit, err)

	cacheMissCounter, err = cacheMeter.Int64Counter(
		metricCacheMiss,
		metric.WithDescription("Number of tile cache misses"),
		metric.WithUnit("{miss}"),
	)
	logMetricError(metricCacheMiss, err)

	workerTaskDuration, err = cacheMeter.Float64Histogram(
		metricWorkerTaskDuration,
		metric.WithDescription("Duration of backing store tasks run by the cache worker"),
		metric.WithUnit("s"),
	)
	logMetricError(metricWorkerTaskDuration, err)

	metricsInited = true
}

func ensureCacheMeterInitialized() {
	meterOnce.Do(initCacheMeter)
}

// RecordOperation records the duration of one provider operation and, for
// lookups, a hit or miss.
func RecordOperation(ctx context.Context, provider, operation string, duration time.Duration, hit bool, err error) {
	ensureCacheMeterInitialized()

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrOperation, operation),
	}
	if operation == OpGet {
		attrs = append(attrs, attribute.Bool(attrCacheHitStatus, hit))
	}
	if err != nil {
		attrs = append(attrs, attribute.String(attrErrorType, classifyError(err)))
	}

	if cacheOperationDuration != nil {
		cacheOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}

	if operation == OpGet {
		recordHitMissCounters(ctx, hit, attrs)
	}
}

// RecordTask records the duration of one store worker task.
func RecordTask(ctx context.Context, task string, duration time.Duration, err error) {
	ensureCacheMeterInitialized()

	attrs := []attribute.KeyValue{attribute.String(attrTask, task)}
	if err != nil {
		attrs = append(attrs, attribute.String(attrErrorType, classifyError(err)))
	}

	if workerTaskDuration != nil {
		workerTaskDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func recordHitMissCounters(ctx context.Context, hit bool, attrs []attribute.KeyValue) {
	if hit {
		if cacheHitCounter != nil {
			cacheHitCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		return
	}
	if cacheMissCounter != nil {
		cacheMissCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// ProviderStats holds the provider counters exported as observables.
type ProviderStats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	ActualSize int64
}

type providerRegistration struct {
	statsProvider func(context.Context) ProviderStats

	hitsCounter      metric.Int64ObservableCounter
	missesCounter    metric.Int64ObservableCounter
	evictionsCounter metric.Int64ObservableCounter
	sizeGauge        metric.Int64ObservableUpDownCounter

	baseAttrs []attribute.KeyValue
}

func (r *providerRegistration) observe(ctx context.Context, observer metric.Observer) error {
	stats := r.statsProvider(ctx)
	opt := metric.WithAttributes(r.baseAttrs...)

	if r.hitsCounter != nil {
		observer.ObserveInt64(r.hitsCounter, stats.Hits, opt)
	}
	if r.missesCounter != nil {
		observer.ObserveInt64(r.missesCounter, stats.Misses, opt)
	}
	// Negative eviction counts mean the backend does not track evictions
	if r.evictionsCounter != nil && stats.Evictions >= 0 {
		observer.ObserveInt64(r.evictionsCounter, stats.Evictions, opt)
	}
	if r.sizeGauge != nil {
		observer.ObserveInt64(r.sizeGauge, stats.ActualSize, opt)
	}
	return nil
}

func createObservableCounter(meter metric.Meter, name, description string) metric.Int64ObservableCounter {
	counter, err := meter.Int64ObservableCounter(name, metric.WithDescription(description))
	logMetricError(name, err)
	return counter
}

func createObservableUpDownCounter(meter metric.Meter, name, description string) metric.Int64ObservableUpDownCounter {
	counter, err := meter.Int64ObservableUpDownCounter(name, metric.WithDescription(description))
	logMetricError(name, err)
	return counter
}

// collectObservables collects non-nil observable instruments.
func collectObservables(instruments ...metric.Observable) []metric.Observable {
	var result []metric.Observable
	for _, inst := range instruments {
		if inst != nil {
			result = append(result, inst)
		}
	}
	return result
}

func noOpCleanup() func() {
	return func() { /** no-op **/ }
}

func register(callback metric.Callback, name string, instruments ...metric.Observable) func() {
	instruments = collectObservables(instruments...)
	if len(instruments) == 0 {
		return noOpCleanup()
	}

	registration, err := cacheMeter.RegisterCallback(callback, instruments...)
	if err != nil {
		logMetricError(name+"_callback", err)
		return noOpCleanup()
	}

	return func() {
		if err := registration.Unregister(); err != nil {
			logMetricError(name+"_unregister", err)
		}
	}
}

// RegisterProviderMetrics registers observable metrics for one provider. The
// statsProvider function is called during each collection cycle. Returns a
// cleanup function that unregisters the callback.
//
// Metrics registered:
//   - cache.provider.hits: hits since the last reset
//   - cache.provider.misses: misses since the last reset
//   - cache.provider.evictions: evictions since the last reset
//   - cache.provider.actual_size: bytes currently held
func RegisterProviderMetrics(statsProvider func(context.Context) ProviderStats, provider string) func() {
	ensureCacheMeterInitialized()

	if cacheMeter == nil {
		return noOpCleanup()
	}

	reg := &providerRegistration{
		statsProvider: statsProvider,
		baseAttrs:     []attribute.KeyValue{attribute.String(attrProvider, provider)},
	}
	reg.hitsCounter = createObservableCounter(cacheMeter, metricProviderHits, "Tile cache hits since the last reset")
	reg.missesCounter = createObservableCounter(cacheMeter, metricProviderMisses, "Tile cache misses since the last reset")
	reg.evictionsCounter = createObservableCounter(cacheMeter, metricProviderEvictions, "Tile cache evictions since the last reset")
	reg.sizeGauge = createObservableUpDownCounter(cacheMeter, metricProviderActualSize, "Bytes held by the tile cache")

	return register(reg.observe, "provider_metrics",
		reg.hitsCounter, reg.missesCounter, reg.evictionsCounter, reg.sizeGauge)
}

// RegisterQueueDepth registers an observable for the store worker's pending
// task count. Returns a cleanup function that unregisters the callback.
func RegisterQueueDepth(depth func() int64) func() {
	ensureCacheMeterInitialized()

	if cacheMeter == nil {
		return noOpCleanup()
	}

	gauge := createObservableUpDownCounter(cacheMeter, metricWorkerQueueDepth, "Tasks waiting for the cache worker")
	if gauge == nil {
		return noOpCleanup()
	}

	return register(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(gauge, depth())
		return nil
	}, "queue_depth", gauge)
}

// IsInitialized returns true if cache metrics have been initialized.
func IsInitialized() bool {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()
	return metricsInited
}

// ResetForTesting resets the metric state for testing purposes.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	cacheMeter = nil
	cacheOperationDuration = nil
	cacheHitCounter = nil
	cacheMissCounter = nil
	workerTaskDuration = nil
	metricsInited = false
	meterOnce = sync.Once{}
}
