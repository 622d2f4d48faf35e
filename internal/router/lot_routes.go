package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-billing/internal/handler"
)

// RegisterLots registers gate hardware and partner endpoints under
// /api/v1/lots/:id.  cache wraps only the occupancy status, which the
// handler purges on every entry and exit.
func RegisterLots(e *echo.Echo, l *handler.LotHandler, cache echo.MiddlewareFunc) {
	g := e.Group(APIPrefix + "/lots/:id")

	g.POST("/entry", l.Entry)
	g.POST("/exit", l.Exit)
	g.GET("/status", l.Status, cache)
	g.GET("/vehicles", l.Vehicles)
	g.POST("/generate-coupon", l.GenerateCoupon)
}
