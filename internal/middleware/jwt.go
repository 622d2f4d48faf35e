package middleware // middleware provides reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-billing/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxAdminID = "admin_id"
	CtxRole    = "role"
	CtxLots    = "lots"
)

// JWTAuth returns an Echo middleware that validates a Bearer admin token
// and injects the admin id, role and assigned lots into the request
// context.  The secret must match the one used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
			}
			id, err := claims.AdminID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid claims"})
			}
			c.Set(CtxAdminID, id)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxLots, claims.Lots)
			return next(c)
		}
	}
}

// QueryTokenToHeader copies ?token= into the Authorization header.  Browsers
// cannot set headers on WebSocket upgrades, so the live feed passes the
// token in the query string.
func QueryTokenToHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		if r.Header.Get("Authorization") == "" {
			if tok := c.QueryParam("token"); tok != "" {
				r.Header.Set("Authorization", "Bearer "+tok)
			}
		}
		return next(c)
	}
}
