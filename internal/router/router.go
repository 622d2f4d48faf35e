package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-billing/internal/handler"
)

// APIPrefix is the common prefix of all versioned routes.
const APIPrefix = "/api/v1"

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only the health check.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Healthz)
}
