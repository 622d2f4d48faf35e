package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-lot-billing/internal/billing"
	"github.com/iliyamo/parking-lot-billing/internal/config"
	"github.com/iliyamo/parking-lot-billing/internal/middleware"
	"github.com/iliyamo/parking-lot-billing/internal/repository"
)

// Gate actions returned to the barrier controller.
const (
	ActionOpenGate       = "open_gate"
	ActionKeepGateClosed = "keep_gate_closed"
)

// LotHandler serves gate hardware and partner integrations of one lot.
type LotHandler struct {
	Gate     *billing.Gate
	Coupons  *billing.Coupons
	Lots     *repository.LotRepo
	Sessions *repository.SessionRepo
	Cache    config.CacheConfig
	Redis    *redis.Client // optional; used to purge the cached lot status
	Now      billing.Clock
}

// NewLotHandler panics if a required dependency is nil.  rdb may be nil.
func NewLotHandler(g *billing.Gate, cp *billing.Coupons, lots *repository.LotRepo, sessions *repository.SessionRepo, cache config.CacheConfig, rdb *redis.Client) *LotHandler {
	if g == nil || cp == nil || lots == nil || sessions == nil {
		panic("nil dependency passed to NewLotHandler")
	}
	return &LotHandler{Gate: g, Coupons: cp, Lots: lots, Sessions: sessions, Cache: cache, Redis: rdb, Now: utcNow}
}

type plateReq struct {
	LicensePlate string `json:"license_plate" validate:"required,max=20"`
}

type partnerCouponReq struct {
	PartnerName string `json:"partner_name" validate:"max=100"`
}

type exitResp struct {
	Action    string             `json:"action"`
	Reason    billing.ExitReason `json:"reason"`
	SessionID uint64             `json:"session_id"`
	PaidUntil *time.Time         `json:"paid_until"`
	ExitTime  *time.Time         `json:"exit_time,omitempty"`
}

// Entry handles POST /lots/:id/entry.
func (h *LotHandler) Entry(c echo.Context) error {
	lotID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid lot id")
	}
	var req plateReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Gate.Enter(ctx, lotID, req.LicensePlate)
	if err != nil {
		return fail(c, err)
	}
	h.purgeStatus(ctx, lotID)
	return c.JSON(http.StatusCreated, newSessionView(s, s.EntryTime))
}

// Exit handles POST /lots/:id/exit.  A denied exit answers 402 so the
// barrier stays closed.
func (h *LotHandler) Exit(c echo.Context) error {
	lotID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid lot id")
	}
	var req plateReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	d, err := h.Gate.CheckExit(ctx, lotID, req.LicensePlate)
	if err != nil {
		return failWith(c, err, echo.Map{"action": ActionKeepGateClosed})
	}
	resp := exitResp{Reason: d.Reason, SessionID: d.Session.ID, PaidUntil: d.Session.PaidUntil.Ptr()}
	if !d.Admit {
		resp.Action = ActionKeepGateClosed
		return c.JSON(http.StatusPaymentRequired, resp)
	}
	h.purgeStatus(ctx, lotID)
	resp.Action = ActionOpenGate
	exit := d.ExitTime.UTC()
	resp.ExitTime = &exit
	return c.JSON(http.StatusOK, resp)
}

// Status handles GET /lots/:id/status.  Responses are cached in Redis for a
// few seconds and purged on every entry and exit.
func (h *LotHandler) Status(c echo.Context) error {
	lotID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid lot id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	o, err := h.Lots.Occupancy(ctx, lotID)
	if err != nil {
		return fail(c, lotLookupError(err))
	}
	return c.JSON(http.StatusOK, newLotView(o))
}

// Vehicles handles GET /lots/:id/vehicles: every vehicle inside the lot
// with its payment status.
func (h *LotHandler) Vehicles(c echo.Context) error {
	lotID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid lot id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if _, err := h.Lots.GetByID(ctx, lotID); err != nil {
		return fail(c, lotLookupError(err))
	}
	list, err := h.Sessions.ListOpenByLot(ctx, lotID)
	if err != nil {
		return fail(c, storageFailure("list vehicles", err))
	}
	now := h.Now()
	out := make([]sessionView, 0, len(list))
	for _, s := range list {
		out = append(out, newSessionView(s, now))
	}
	return c.JSON(http.StatusOK, echo.Map{"lot_id": lotID, "vehicles": out, "count": len(out)})
}

// GenerateCoupon handles POST /lots/:id/generate-coupon for partners such
// as shops validating their customers' parking.
func (h *LotHandler) GenerateCoupon(c echo.Context) error {
	lotID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid lot id")
	}
	var req partnerCouponReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	cp, err := h.Coupons.Issue(ctx, lotID, req.PartnerName)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, newCouponView(cp, cp.GeneratedAt))
}

func (h *LotHandler) purgeStatus(ctx context.Context, lotID uint64) {
	middleware.PurgeCached(ctx, h.Redis, h.Cache, statusPath(lotID))
}

// statusPath is the request path the status cache is keyed on.
func statusPath(lotID uint64) string {
	return "/api/v1/lots/" + strconv.FormatUint(lotID, 10) + "/status"
}

// lotLookupError maps a repository lookup failure onto the billing error
// vocabulary.
func lotLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return billing.ErrLotNotFound
	}
	return storageFailure("load lot", err)
}

func storageFailure(op string, err error) error {
	return &billing.Error{Kind: billing.KindStorage, Code: "storage_failure", Reason: op, Err: err}
}
