// Package server exposes the tile cache statistics and health endpoints over
// HTTP using the Echo framework.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/tilecache/config"
	"github.com/gaborage/tilecache/logger"
	"github.com/gaborage/tilecache/storage"
)

// Server represents an HTTP server instance with Echo framework.
type Server struct {
	echo       *echo.Echo
	cfg        *config.Config
	logger     logger.Logger
	store      storage.BlobStore
	basePath   string
	healthPath string
	statsPath  string
}

// normalizeBasePath ensures the base path starts with "/" and doesn't end with "/"
// unless it's the root path. Empty string is returned as-is (no prefix).
func normalizeBasePath(basePath string) string {
	if basePath == "" {
		return ""
	}

	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	if len(basePath) > 1 {
		basePath = strings.TrimRight(basePath, "/")
	}

	return basePath
}

// normalizeRoutePath ensures a route path starts with "/" and handles empty paths
func normalizeRoutePath(route, defaultRoute string) string {
	if route == "" {
		route = defaultRoute
	}

	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}

	return route
}

func (s *Server) buildFullPath(route string) string {
	if s.basePath == "" || s.basePath == "/" {
		return route
	}
	return s.basePath + route
}

// New creates a server reporting the statistics of store. Any BlobStore is
// accepted; stores that do not keep cache statistics answer 404.
func New(cfg *config.Config, log logger.Logger, store storage.BlobStore) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		customErrorHandler(err, c, cfg, log)
	}

	s := &Server{
		echo:     e,
		cfg:      cfg,
		logger:   log,
		store:    store,
		basePath: normalizeBasePath(cfg.Server.Path.Base),
	}
	s.healthPath = s.buildFullPath(normalizeRoutePath(cfg.Server.Path.Health, "/health"))
	s.statsPath = s.buildFullPath(normalizeRoutePath(cfg.Server.Path.Statistics, "/statistics"))

	SetupMiddlewares(e, log, s.healthPath)

	e.GET(s.healthPath, s.healthCheck)
	e.GET(s.statsPath, s.statistics)
	e.GET(s.statsPath+".:"+extensionParam, s.statistics)

	log.Debug().
		Str("base_path", s.basePath).
		Str("health_path", s.healthPath).
		Str("statistics_path", s.statsPath).
		Msg("Server paths configured")

	return s
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.logger.Info().
		Str("service", s.cfg.App.Name).
		Str("version", s.cfg.App.Version).
		Str("env", s.cfg.App.Env).
		Str("address", addr).
		Msg("Starting server...")

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.cfg.Server.Timeout.Read,
		WriteTimeout: s.cfg.Server.Timeout.Write,
		IdleTimeout:  s.cfg.Server.Timeout.Idle,
	}

	return s.echo.StartServer(server)
}

// Shutdown gracefully shuts down the HTTP server with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}
