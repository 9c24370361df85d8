// Package middleware holds the echo middleware of the calibboard API.
package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"calibboard/internal/metrics"
)

// Scrapes and probes are not counted.
var metricsSkipPaths = map[string]struct{}{
	"/metrics": {},
	"/healthz": {},
}

// Metrics records request duration and count by route template and status.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			if _, skip := metricsSkipPaths[path]; skip {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo write the error response first so the status is final.
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
			return nil
		}
	}
}
