package server

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Timing returns a middleware that adds an X-Response-Time header to every
// response. The header is written before the handler commits the response.
func Timing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			c.Response().Before(func() {
				c.Response().Header().Set(HeaderXResponseTime, time.Since(start).String())
			})
			return next(c)
		}
	}
}
