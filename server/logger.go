package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/tilecache/logger"
)

// SlowRequestThreshold marks requests slower than this with result_code WARN.
const SlowRequestThreshold = time.Second

// Logger returns a request logging middleware. Each request produces one
// summary entry whose level follows the response status; requests to
// skipPath are not logged.
func Logger(log logger.Logger, skipPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			if skipPath != "" && path == skipPath {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the status before it is logged
				c.Error(err)
			}
			latency := time.Since(start)
			status := c.Response().Status

			level, resultCode := determineSeverity(status, latency, SlowRequestThreshold, err)
			event := createLogEvent(log.WithContext(c.Request().Context()), level)
			if err != nil {
				event = event.Err(err)
			}

			event.
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("http.request.method", c.Request().Method).
				Str("url.path", c.Request().URL.Path).
				Str("http.route", path).
				Int("http.response.status_code", status).
				Dur("latency", latency).
				Str("result_code", resultCode).
				Msg(createActionMessage(c.Request().Method, path, latency, status))

			// The error has been handled
			return nil
		}
	}
}

func determineSeverity(
	status int,
	latency, threshold time.Duration,
	err error,
) (logLevel, resultCode string) {
	const (
		levelError = "error"
		levelWarn  = "warn"
		levelInfo  = "info"
		codeError  = "ERROR"
		codeWarn   = "WARN"
		codeInfo   = "INFO"
	)

	if status >= 500 || (err != nil && status == 0) {
		return levelError, codeError
	}

	if status >= 400 {
		return levelWarn, codeWarn
	}

	// Slow requests keep INFO level; only the result code changes
	if threshold > 0 && latency > threshold {
		return levelInfo, codeWarn
	}

	return levelInfo, codeInfo
}

func createLogEvent(log logger.Logger, level string) logger.LogEvent {
	switch level {
	case "error":
		return log.Error()
	case "warn":
		return log.Warn()
	default:
		return log.Info()
	}
}

// createActionMessage renders "GET /statistics.json completed in 1ms with status 200".
func createActionMessage(method, path string, latency time.Duration, status int) string {
	return method + " " + path + " completed in " + latency.String() + " with status " + strconv.Itoa(status)
}
