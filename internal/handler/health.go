package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler answers load balancer and monitoring probes.
type HealthHandler struct {
	DB *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	if db == nil {
		panic("nil db passed to NewHealthHandler")
	}
	return &HealthHandler{DB: db}
}

// Healthz pings the database.  It returns 200 {"status":"ok"} when the
// database answers within two seconds and 503 otherwise.
func (h *HealthHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		c.Logger().Warnf("health check: database ping failed: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": "down"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "database": "up"})
}
