package model

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Coupon is a single-use discount token scoped to one lot.  It moves from
// Active to Used or from Active to Expired exactly once.
//
// Fields:
//
//	ID          – primary key identifier.
//	Code        – opaque unique code printed for the customer.
//	LotID       – the only lot whose sessions the coupon can offset.
//	GeneratedAt – issue timestamp.
//	ExpiresAt   – last instant the coupon can be redeemed.
//	UsedAt      – redemption timestamp (null while unused).
//	SessionID   – session that redeemed the coupon (null while unused).
//	PartnerName – optional label of the issuing partner.
type Coupon struct {
	ID          uint64      // coupons.id
	Code        string      // coupons.code
	LotID       uint64      // coupons.lot_id
	GeneratedAt time.Time   // coupons.generated_at
	ExpiresAt   time.Time   // coupons.expires_at
	UsedAt      null.Time   // coupons.used_at (nullable)
	SessionID   null.Int    // coupons.session_id (nullable)
	PartnerName null.String // coupons.partner_name (nullable)
}

// CouponStatus is derived from the coupon's timestamps.
type CouponStatus string

const (
	CouponActive  CouponStatus = "Active"
	CouponUsed    CouponStatus = "Used"
	CouponExpired CouponStatus = "Expired"
)

// Used reports whether the coupon has been redeemed.
func (c Coupon) Used() bool { return c.UsedAt.Valid }

// ExpiredAt reports whether the coupon can no longer be redeemed at now.
// The expiry instant itself is still valid.
func (c Coupon) ExpiredAt(now time.Time) bool { return now.After(c.ExpiresAt) }

// Status reports the lifecycle state at now.  Used wins over Expired so a
// coupon redeemed shortly before its expiry keeps reporting Used.
func (c Coupon) Status(now time.Time) CouponStatus {
	switch {
	case c.Used():
		return CouponUsed
	case c.ExpiredAt(now):
		return CouponExpired
	default:
		return CouponActive
	}
}
