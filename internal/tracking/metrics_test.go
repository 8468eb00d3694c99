package tracking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	attributeMismatchErrMsg = "attribute %s value mismatch"
	testProvider            = "Local Weighted Cache"
)

func setupTestMeterProvider(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	ResetForTesting()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		ResetForTesting()
	})

	return reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

// findMetric returns the named metric within the cache scope.
func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != cacheMeterName {
			continue
		}
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestRecordOperationDuration(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordOperation(context.Background(), testProvider, OpGet, 50*time.Millisecond, true, nil)

	m, ok := findMetric(collect(t, reader), metricCacheOperationDuration)
	require.True(t, ok, "expected to find cache.operation.duration metric")

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected histogram data")
	require.NotEmpty(t, hist.DataPoints)

	attrs := hist.DataPoints[0].Attributes.ToSlice()
	assertAttribute(t, attrs, attrProvider, testProvider)
	assertAttribute(t, attrs, attrOperation, OpGet)
}

func TestRecordOperationHitMiss(t *testing.T) {
	reader := setupTestMeterProvider(t)

	ctx := context.Background()
	RecordOperation(ctx, testProvider, OpGet, time.Millisecond, true, nil)
	RecordOperation(ctx, testProvider, OpGet, time.Millisecond, true, nil)
	RecordOperation(ctx, testProvider, OpGet, time.Millisecond, false, nil)

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumCounterValue(t, rm, metricCacheHit))
	assert.Equal(t, int64(1), sumCounterValue(t, rm, metricCacheMiss))
}

func TestNonGetOperationsDoNotRecordHitMiss(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordOperation(context.Background(), testProvider, OpPut, time.Millisecond, true, nil)
	RecordOperation(context.Background(), testProvider, OpRemoveLayer, time.Millisecond, false, nil)

	rm := collect(t, reader)
	assert.Equal(t, int64(0), sumCounterValue(t, rm, metricCacheHit))
	assert.Equal(t, int64(0), sumCounterValue(t, rm, metricCacheMiss))
}

func TestRecordOperationWithError(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordOperation(context.Background(), "Redis Cache", OpPut, time.Millisecond, false,
		fmt.Errorf("put: %w", context.DeadlineExceeded))

	m, ok := findMetric(collect(t, reader), metricCacheOperationDuration)
	require.True(t, ok)
	hist := m.Data.(metricdata.Histogram[float64])
	require.NotEmpty(t, hist.DataPoints)
	assertAttribute(t, hist.DataPoints[0].Attributes.ToSlice(), attrErrorType, "timeout")
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"canceled", fmt.Errorf("wait: %w", context.Canceled), "canceled"},
		{"generic", errors.New("connection refused"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyError(tt.err))
		})
	}
}

func TestRecordTask(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordTask(context.Background(), "put", 5*time.Millisecond, nil)
	RecordTask(context.Background(), "put", 5*time.Millisecond, errors.New("disk full"))

	m, ok := findMetric(collect(t, reader), metricWorkerTaskDuration)
	require.True(t, ok)
	hist := m.Data.(metricdata.Histogram[float64])

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
	assert.Len(t, hist.DataPoints, 2, "error attribute splits the series")
}

func TestRegisterProviderMetrics(t *testing.T) {
	reader := setupTestMeterProvider(t)

	cleanup := RegisterProviderMetrics(func(context.Context) ProviderStats {
		return ProviderStats{Hits: 5, Misses: 3, Evictions: 2, ActualSize: 4096}
	}, testProvider)
	defer cleanup()

	rm := collect(t, reader)
	assert.Equal(t, int64(5), sumCounterValue(t, rm, metricProviderHits))
	assert.Equal(t, int64(3), sumCounterValue(t, rm, metricProviderMisses))
	assert.Equal(t, int64(2), sumCounterValue(t, rm, metricProviderEvictions))
	assert.Equal(t, int64(4096), sumCounterValue(t, rm, metricProviderActualSize))
}

func TestRegisterProviderMetricsSkipsUnknownEvictions(t *testing.T) {
	reader := setupTestMeterProvider(t)

	cleanup := RegisterProviderMetrics(func(context.Context) ProviderStats {
		return ProviderStats{Hits: 1, Evictions: -1}
	}, "Redis Cache")
	defer cleanup()

	rm := collect(t, reader)
	assert.Equal(t, int64(0), sumCounterValue(t, rm, metricProviderEvictions))
	assert.Equal(t, int64(1), sumCounterValue(t, rm, metricProviderHits))
}

func TestRegisterQueueDepth(t *testing.T) {
	reader := setupTestMeterProvider(t)

	depth := int64(7)
	cleanup := RegisterQueueDepth(func() int64 { return depth })
	defer cleanup()

	assert.Equal(t, int64(7), sumCounterValue(t, collect(t, reader), metricWorkerQueueDepth))
}

func TestIsInitialized(t *testing.T) {
	ResetForTesting()
	assert.False(t, IsInitialized(), "should not be initialized after reset")

	ensureCacheMeterInitialized()
	assert.True(t, IsInitialized(), "should be initialized after ensureCacheMeterInitialized")
	ResetForTesting()
}

// assertAttribute checks that an attribute with the given key and value exists.
func assertAttribute(t *testing.T, attrs []attribute.KeyValue, key, expectedValue string) {
	t.Helper()
	for _, kv := range attrs {
		if string(kv.Key) == key {
			assert.Equal(t, expectedValue, kv.Value.AsString(), attributeMismatchErrMsg, key)
			return
		}
	}
	t.Errorf("attribute %s not found in %v", key, attrs)
}

// sumCounterValue returns the sum of all data point values of a counter.
func sumCounterValue(t *testing.T, rm metricdata.ResourceMetrics, metricName string) int64 {
	t.Helper()
	m, ok := findMetric(rm, metricName)
	if !ok {
		return 0 // Metric not found - valid for "no operations recorded" scenarios
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64] data for %s", metricName)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}
