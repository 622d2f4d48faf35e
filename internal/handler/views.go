package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-lot-billing/internal/billing"
	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// JSON views of the domain types.  Amounts are serialized by
// shopspring/decimal as strings; timestamps are RFC 3339 UTC.

type sessionView struct {
	SessionID     uint64              `json:"session_id"`
	LotID         uint64              `json:"lot_id"`
	LicensePlate  string              `json:"license_plate"`
	EntryTime     time.Time           `json:"entry_time"`
	PaidUntil     *time.Time          `json:"paid_until"`
	ExitTime      *time.Time          `json:"exit_time"`
	TotalFee      decimal.Decimal     `json:"total_fee"`
	PaymentStatus model.PaymentStatus `json:"payment_status,omitempty"`
}

func newSessionView(s model.ParkingSession, now time.Time) sessionView {
	v := sessionView{
		SessionID:    s.ID,
		LotID:        s.LotID,
		LicensePlate: s.Plate,
		EntryTime:    s.EntryTime.UTC(),
		PaidUntil:    s.PaidUntil.Ptr(),
		ExitTime:     s.ExitTime.Ptr(),
		TotalFee:     s.SettledTotal(),
	}
	if s.Open() {
		v.PaymentStatus = s.PaymentStatus(now)
	}
	return v
}

type quoteView struct {
	SessionID       uint64           `json:"session_id"`
	LotID           uint64           `json:"lot_id"`
	Fee             decimal.Decimal  `json:"fee"`
	BaseFee         decimal.Decimal  `json:"base_fee"`
	BillableHours   int64            `json:"billable_hours"`
	DurationMinutes int64            `json:"duration_minutes"`
	DurationDisplay string           `json:"duration_display"`
	Scenario        billing.Scenario `json:"scenario"`
	Capped          bool             `json:"capped"`
	InGrace         bool             `json:"in_grace"`
	Anchor          time.Time        `json:"anchor"`
	CalculatedAt    time.Time        `json:"calculated_at"`
}

func newQuoteView(q billing.FeeQuote) quoteView {
	return quoteView{
		SessionID:       q.SessionID,
		LotID:           q.LotID,
		Fee:             q.Fee,
		BaseFee:         q.BaseFee,
		BillableHours:   q.BillableHours,
		DurationMinutes: q.DurationMinutes(),
		DurationDisplay: q.DurationDisplay(),
		Scenario:        q.Scenario,
		Capped:          q.Capped,
		InGrace:         q.InGrace,
		Anchor:          q.Anchor.UTC(),
		CalculatedAt:    q.CalculatedAt.UTC(),
	}
}

type appliedCouponView struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

type discountView struct {
	Quote          quoteView           `json:"quote"`
	OriginalFee    decimal.Decimal     `json:"original_fee"`
	TotalDiscount  decimal.Decimal     `json:"total_discount"`
	FinalFee       decimal.Decimal     `json:"final_fee"`
	AppliedCoupons []appliedCouponView `json:"applied_coupons"`
}

func newDiscountView(d billing.DiscountResult) discountView {
	v := discountView{
		Quote:          newQuoteView(d.Quote),
		OriginalFee:    d.OriginalFee,
		TotalDiscount:  d.TotalDiscount,
		FinalFee:       d.FinalFee,
		AppliedCoupons: make([]appliedCouponView, 0, len(d.AppliedCoupons)),
	}
	for _, a := range d.AppliedCoupons {
		v.AppliedCoupons = append(v.AppliedCoupons, appliedCouponView{Code: a.Code, Discount: a.Discount})
	}
	return v
}

type receiptView struct {
	TransactionID string              `json:"transaction_id"`
	SessionID     uint64              `json:"session_id"`
	LotID         uint64              `json:"lot_id"`
	LicensePlate  string              `json:"license_plate"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	AmountDue     decimal.Decimal     `json:"amount_due"`
	AmountPaid    decimal.Decimal     `json:"amount_paid"`
	Change        decimal.Decimal     `json:"change"`
	TotalFee      decimal.Decimal     `json:"total_fee"`
	PaidUntil     time.Time           `json:"paid_until"`
	PaidAt        time.Time           `json:"paid_at"`
	Discount      *discountView       `json:"discount,omitempty"`
}

func newReceiptView(r billing.Receipt) receiptView {
	v := receiptView{
		TransactionID: r.TransactionID,
		SessionID:     r.SessionID,
		LotID:         r.LotID,
		LicensePlate:  r.Plate,
		PaymentMethod: r.Method,
		AmountDue:     r.AmountDue,
		AmountPaid:    r.AmountPaid,
		Change:        r.Change,
		TotalFee:      r.TotalFee,
		PaidUntil:     r.PaidUntil.UTC(),
		PaidAt:        r.PaidAt.UTC(),
	}
	if r.Method != model.MethodManual {
		d := newDiscountView(r.Discount)
		v.Discount = &d
	}
	return v
}

type couponView struct {
	CouponID    uint64             `json:"coupon_id"`
	Code        string             `json:"coupon_code"`
	LotID       uint64             `json:"lot_id"`
	PartnerName string             `json:"partner_name,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
	UsedAt      *time.Time         `json:"used_at,omitempty"`
	SessionID   *int64             `json:"session_id,omitempty"`
	Status      model.CouponStatus `json:"status"`
}

func newCouponView(c model.Coupon, now time.Time) couponView {
	return couponView{
		CouponID:    c.ID,
		Code:        c.Code,
		LotID:       c.LotID,
		PartnerName: c.PartnerName.String,
		GeneratedAt: c.GeneratedAt.UTC(),
		ExpiresAt:   c.ExpiresAt.UTC(),
		UsedAt:      c.UsedAt.Ptr(),
		SessionID:   c.SessionID.Ptr(),
		Status:      c.Status(now),
	}
}

type lotView struct {
	LotID            uint64           `json:"lot_id"`
	Name             string           `json:"name"`
	Address          string           `json:"address"`
	TotalSpaces      int              `json:"total_spaces"`
	HourlyRate       decimal.Decimal  `json:"hourly_rate"`
	DailyMaxRate     *decimal.Decimal `json:"daily_max_rate"`
	CurrentOccupancy int              `json:"current_occupancy"`
	AvailableSpaces  int              `json:"available_spaces"`
	OccupancyRate    float64          `json:"occupancy_rate"`
}

func newLotView(o model.LotOccupancy) lotView {
	v := lotView{
		LotID:            o.Lot.ID,
		Name:             o.Lot.Name,
		Address:          o.Lot.Address,
		TotalSpaces:      o.Lot.TotalSpaces,
		HourlyRate:       o.Lot.HourlyRate,
		CurrentOccupancy: o.CurrentOccupancy,
		AvailableSpaces:  o.AvailableSpaces(),
		OccupancyRate:    o.OccupancyRate(),
	}
	if o.Lot.DailyMaxRate.Valid {
		d := o.Lot.DailyMaxRate.Decimal
		v.DailyMaxRate = &d
	}
	return v
}
