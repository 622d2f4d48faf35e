package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// clientID identifies the caller for rate limiting: the admin id when a
// token was verified, else the kiosk id header, else "anon".
func clientID(c echo.Context) string {
	if id, ok := c.Get(CtxAdminID).(uint64); ok && id != 0 {
		return "admin:" + strconv.FormatUint(id, 10)
	}
	if k := c.Request().Header.Get("X-Kiosk-ID"); k != "" {
		return "kiosk:" + k
	}
	return "anon"
}
