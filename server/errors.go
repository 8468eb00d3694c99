package server

import (
	goerrors "errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/tilecache/config"
	"github.com/gaborage/tilecache/logger"
)

// APIErrorResponse is the body of every error answer.
type APIErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// APIResponse wraps error answers with request metadata.
type APIResponse struct {
	Error *APIErrorResponse `json:"error,omitempty"`
	Meta  map[string]any    `json:"meta"`
}

func customErrorHandler(err error, c echo.Context, cfg *config.Config, log logger.Logger) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if goerrors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		default:
			// keep default
		}
	}

	// Hide internal details outside development
	if cfg.App.Env != config.EnvDevelopment && status == http.StatusInternalServerError {
		msg = "An error occurred while processing your request"
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Unhandled error")
	}

	body := &APIErrorResponse{Code: statusToErrorCode(status), Message: msg}
	if cfg.App.Env == config.EnvDevelopment {
		body.Details = map[string]any{"error": err.Error()}
	}

	response := APIResponse{
		Error: body,
		Meta: map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": c.Response().Header().Get(echo.HeaderXRequestID),
		},
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, response)
}

func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		if status < http.StatusInternalServerError {
			return "CLIENT_ERROR"
		}
		return "INTERNAL_ERROR"
	}
}
