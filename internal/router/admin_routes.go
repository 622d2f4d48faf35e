package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-billing/internal/handler"
	"github.com/iliyamo/parking-lot-billing/internal/middleware"
	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// RegisterAdmin registers the dashboard endpoints under /api/v1/admin.
// Everything except login requires a valid bearer token.  Lot scoped routes
// additionally check the admin's lot assignments; lot creation and the
// manual coupon sweep are reserved for super admins.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	e.POST(APIPrefix+"/admin/login", a.Login)

	g := e.Group(
		APIPrefix+"/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleSuperAdmin, model.RoleLotAdmin),
	)
	super := middleware.RequireRole(model.RoleSuperAdmin)

	g.GET("/profile", a.Profile)

	g.GET("/lots", a.ListLots)
	g.POST("/lots", a.CreateLot, super)
	g.GET("/lots/:id/vehicles", a.LotVehicles, middleware.RequireLotAccess("id"))

	// Access to records is checked against the session's lot in the handler.
	g.GET("/records/:id", a.Record)
	g.PUT("/records/:id", a.UpdateRecord)

	g.POST("/generate-coupon", a.GenerateCoupons)
	g.GET("/coupons", a.ListCoupons)
	g.POST("/coupons/sweep", a.SweepCoupons, super)

	// Browsers cannot send headers on a WebSocket upgrade.
	e.GET(APIPrefix+"/admin/ws", a.Live,
		middleware.QueryTokenToHeader,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleSuperAdmin, model.RoleLotAdmin),
	)
}
