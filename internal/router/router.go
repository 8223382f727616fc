package router // package router defines how HTTP routes are registered for the API

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/session-auth/internal/handler"
)

// RegisterRoutes registers the unauthenticated operational endpoints: a
// health check for load balancers and the Prometheus exposition.  metrics
// may be nil, in which case /metrics is not mounted.
func RegisterRoutes(e *echo.Echo, metrics http.Handler) {
    e.GET("/health", handler.Health)
    if metrics != nil {
        e.GET("/metrics", echo.WrapHandler(metrics))
    }
}
