package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-billing/internal/handler"
)

// RegisterKiosk registers the payment kiosk endpoints under
// /api/v1/kiosk.  Kiosks are unauthenticated; limit is typically the
// Redis token bucket.
func RegisterKiosk(e *echo.Echo, k *handler.KioskHandler, limit echo.MiddlewareFunc) {
	g := e.Group(APIPrefix+"/kiosk", limit)

	g.GET("/fee", k.Fee)
	g.POST("/validate-coupon", k.ValidateCoupon)
	g.POST("/apply-discount", k.ApplyDiscount)
	g.POST("/pay", k.Pay)
	g.GET("/vehicle-status/:plate", k.VehicleStatus)
}
