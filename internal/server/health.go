package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RegisterHealth serves GET /health for service, probing every check.
func RegisterHealth(e *echo.Echo, service string, checks ...HealthCheck) {
	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		deps := make(map[string]string, len(checks))
		healthy := true
		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				deps[hc.Name] = err.Error()
				healthy = false
				continue
			}
			deps[hc.Name] = "ok"
		}

		response := map[string]interface{}{
			"status":       "ok",
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"service":      service,
			"dependencies": deps,
		}
		if !healthy {
			response["status"] = "unhealthy"
			return c.JSON(http.StatusServiceUnavailable, response)
		}
		return c.JSON(http.StatusOK, response)
	})
}
