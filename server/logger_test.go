package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/storage"
)

func TestDetermineSeverity(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		latency   time.Duration
		err       error
		wantLevel string
		wantCode  string
	}{
		{"ok", 200, time.Millisecond, nil, "info", "INFO"},
		{"slow", 200, 2 * time.Second, nil, "info", "WARN"},
		{"client error", 404, time.Millisecond, nil, "warn", "WARN"},
		{"server error", 503, time.Millisecond, nil, "error", "ERROR"},
		{"error without status", 0, time.Millisecond, assert.AnError, "error", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, code := determineSeverity(tt.status, tt.latency, time.Second, tt.err)
			assert.Equal(t, tt.wantLevel, level)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestCreateActionMessage(t *testing.T) {
	assert.Equal(t, "GET /statistics.:ext completed in 5ms with status 200",
		createActionMessage(http.MethodGet, "/statistics.:ext", 5*time.Millisecond, 200))
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "debug", nil)

	s := New(testConfig(t), log, storage.NullBlobStore{})
	s.Echo().GET("/fail", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad")
	})
	buf.Reset()

	rec := serve(s, http.MethodGet, "/fail")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), buf.String())
	assert.Equal(t, "warn", entry["level"])
	assert.EqualValues(t, http.StatusBadRequest, entry["http.response.status_code"])
	assert.Equal(t, "WARN", entry["result_code"])
}

func TestLoggerSkipsHealth(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "info", nil)

	s := New(testConfig(t), log, storage.NullBlobStore{})
	buf.Reset()

	require.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health").Code)
	assert.Empty(t, buf.String())
}
