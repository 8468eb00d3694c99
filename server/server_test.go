package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/tilecache/config"
	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromBytes(nil)
	require.NoError(t, err)
	return cfg
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestNormalizeBasePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", "/"},
		{"api", "/api"},
		{"/api/", "/api"},
		{"/api/v1//", "/api/v1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeBasePath(tt.in), tt.in)
	}
}

func TestNormalizeRoutePath(t *testing.T) {
	assert.Equal(t, "/health", normalizeRoutePath("", "/health"))
	assert.Equal(t, "/status", normalizeRoutePath("status", "/health"))
	assert.Equal(t, "/status", normalizeRoutePath("/status", "/health"))
}

func TestHealthCheck(t *testing.T) {
	s := New(testConfig(t), logger.Nop(), storage.NullBlobStore{})

	rec := serve(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.NotEmpty(t, rec.Header().Get(HeaderXResponseTime))
}

func TestBasePathApplied(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Path.Base = "/gwc/"

	s := New(cfg, logger.Nop(), storage.NullBlobStore{})

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/gwc/health").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/health").Code)
}

func TestErrorEnvelope(t *testing.T) {
	s := New(testConfig(t), logger.Nop(), storage.NullBlobStore{})

	rec := serve(s, http.MethodGet, "/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Contains(t, body.Meta, "timestamp")
}

func TestInternalErrorHiddenOutsideDevelopment(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.Env = config.EnvProduction

	s := New(cfg, logger.Nop(), storage.NullBlobStore{})
	s.Echo().GET("/boom", func(echo.Context) error {
		return assert.AnError
	})

	rec := serve(s, http.MethodGet, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "An error occurred while processing your request", body.Error.Message)
	assert.Nil(t, body.Error.Details)
}

func TestPanicRecovered(t *testing.T) {
	s := New(testConfig(t), logger.Nop(), storage.NullBlobStore{})
	s.Echo().GET("/panic", func(echo.Context) error {
		panic("boom")
	})

	rec := serve(s, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestShutdownWithoutStart(t *testing.T) {
	s := New(testConfig(t), logger.Nop(), storage.NullBlobStore{})
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestStatusToErrorCode(t *testing.T) {
	assert.Equal(t, "BAD_REQUEST", statusToErrorCode(http.StatusBadRequest))
	assert.Equal(t, "METHOD_NOT_ALLOWED", statusToErrorCode(http.StatusMethodNotAllowed))
	assert.Equal(t, "CLIENT_ERROR", statusToErrorCode(http.StatusTeapot))
	assert.Equal(t, "INTERNAL_ERROR", statusToErrorCode(http.StatusBadGateway))
}
