package handler // package handler exposes the billing services over HTTP

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-billing/internal/billing"
)

// requestTimeout bounds every storage call made on behalf of a request.
const requestTimeout = 5 * time.Second

func utcNow() time.Time { return time.Now().UTC() }

// statusOf maps an error kind to its HTTP status.
func statusOf(k billing.Kind) int {
	switch k {
	case billing.KindNotFound:
		return http.StatusNotFound
	case billing.KindConflict:
		return http.StatusConflict
	case billing.KindInvalidInput:
		return http.StatusBadRequest
	case billing.KindPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": code, "message": reason}.  Storage failures
// are logged and their details withheld from the client.
func fail(c echo.Context, err error) error {
	return failWith(c, err, nil)
}

// failWith is fail with extra fields added to the body.
func failWith(c echo.Context, err error, extra echo.Map) error {
	kind := billing.KindOf(err)
	if kind == billing.KindStorage {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	body := echo.Map{"error": billing.CodeOf(err), "message": billing.ReasonOf(err)}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(statusOf(kind), body)
}

// badRequest reports a malformed request.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_input", "message": msg})
}

func forbidden(c echo.Context) error {
	return fail(c, billing.ErrPermissionDenied)
}

// bind decodes and validates the request body into req.  The returned
// error is safe to show to the client.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.New("invalid body")
	}
	return c.Validate(req)
}

// idParam parses the path parameter name as a positive id.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
