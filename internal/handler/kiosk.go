package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-lot-billing/internal/billing"
	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// KioskHandler serves the self-service payment kiosks.
type KioskHandler struct {
	Payments *billing.Payments
	Coupons  *billing.Coupons
	Gate     *billing.Gate
}

// NewKioskHandler panics if any service is nil.
func NewKioskHandler(p *billing.Payments, c *billing.Coupons, g *billing.Gate) *KioskHandler {
	if p == nil || c == nil || g == nil {
		panic("nil service passed to NewKioskHandler")
	}
	return &KioskHandler{Payments: p, Coupons: c, Gate: g}
}

// ----- DTOs -----

type validateCouponReq struct {
	SessionID  uint64 `json:"session_id" validate:"required"`
	CouponCode string `json:"coupon_code" validate:"required"`
}

type applyDiscountReq struct {
	SessionID   uint64   `json:"session_id" validate:"required"`
	CouponCodes []string `json:"coupon_codes" validate:"dive,required"`
}

type payReq struct {
	SessionID     uint64          `json:"session_id" validate:"required"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Coupons       []string        `json:"coupons" validate:"dive,required"`
}

type feeResp struct {
	quoteView
	LicensePlate  string              `json:"license_plate"`
	EntryTime     time.Time           `json:"entry_time"`
	PaidUntil     *time.Time          `json:"paid_until"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

type vehicleStatusResp struct {
	SessionID     uint64              `json:"session_id"`
	LotID         uint64              `json:"lot_id"`
	LotName       string              `json:"lot_name"`
	LicensePlate  string              `json:"license_plate"`
	EntryTime     time.Time           `json:"entry_time"`
	PaidUntil     *time.Time          `json:"paid_until"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	CheckedAt     time.Time           `json:"checked_at"`
}

// Fee handles GET /kiosk/fee?plate=.  It quotes the most recent open
// session of the plate.
func (h *KioskHandler) Fee(c echo.Context) error {
	plate := c.QueryParam("plate")
	if plate == "" {
		return badRequest(c, "plate is required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	q, s, err := h.Payments.QuoteByPlate(ctx, plate)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, feeResp{
		quoteView:     newQuoteView(q),
		LicensePlate:  s.Plate,
		EntryTime:     s.EntryTime.UTC(),
		PaidUntil:     s.PaidUntil.Ptr(),
		PaymentStatus: s.PaymentStatus(q.CalculatedAt),
	})
}

// ValidateCoupon handles POST /kiosk/validate-coupon.  A rejected coupon is
// a normal 200 answer with valid=false.
func (h *KioskHandler) ValidateCoupon(c echo.Context) error {
	var req validateCouponReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Coupons.Validate(ctx, req.CouponCode, req.SessionID)
	if err != nil {
		return fail(c, err)
	}
	out := echo.Map{"valid": res.Valid, "code": res.Code, "reason": res.Reason}
	if res.Valid {
		out["expires_at"] = res.Coupon.ExpiresAt.UTC()
	}
	return c.JSON(http.StatusOK, out)
}

// ApplyDiscount handles POST /kiosk/apply-discount.  Nothing is redeemed.
func (h *KioskHandler) ApplyDiscount(c echo.Context) error {
	var req applyDiscountReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	d, err := h.Payments.ApplyDiscount(ctx, req.SessionID, req.CouponCodes)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newDiscountView(d))
}

// Pay handles POST /kiosk/pay.
func (h *KioskHandler) Pay(c echo.Context) error {
	var req payReq
	if err := bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rc, err := h.Payments.Settle(ctx, req.SessionID, req.AmountPaid, model.PaymentMethod(req.PaymentMethod), req.Coupons)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newReceiptView(rc))
}

// VehicleStatus handles GET /kiosk/vehicle-status/:plate.
func (h *KioskHandler) VehicleStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Gate.Status(ctx, c.Param("plate"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, vehicleStatusResp{
		SessionID:     st.Session.ID,
		LotID:         st.Lot.ID,
		LotName:       st.Lot.Name,
		LicensePlate:  st.Session.Plate,
		EntryTime:     st.Session.EntryTime.UTC(),
		PaidUntil:     st.Session.PaidUntil.Ptr(),
		PaymentStatus: st.PaymentStatus,
		CheckedAt:     st.CheckedAt.UTC(),
	})
}
