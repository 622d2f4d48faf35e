package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// RequireRole enforces that the authenticated admin has one of roles.  It
// assumes JWTAuth ran before it.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "permission_denied", "message": "role not allowed"})
			}
			return next(c)
		}
	}
}

// RequireLotAccess rejects requests whose path parameter param names a lot
// the admin is not assigned to.  Super admins pass unconditionally.
func RequireLotAccess(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lotID, err := strconv.ParseUint(c.Param(param), 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": "invalid lot id"})
			}
			if !CanAccessLot(c, lotID) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "permission_denied", "message": "access to this parking lot is denied"})
			}
			return next(c)
		}
	}
}

// CanAccessLot reports whether the authenticated admin may act on lotID.
func CanAccessLot(c echo.Context, lotID uint64) bool {
	return CurrentAdmin(c).CanAccessLot(lotID)
}

// CurrentAdmin rebuilds the authenticated admin from the token claims.
// Only ID, Role and LotIDs are populated.
func CurrentAdmin(c echo.Context) model.Admin {
	a := model.Admin{}
	a.ID, _ = c.Get(CtxAdminID).(uint64)
	a.Role, _ = c.Get(CtxRole).(string)
	a.LotIDs, _ = c.Get(CtxLots).([]uint64)
	return a
}
