package billing

import "time"

// Policy holds the time windows of the billing rules.
type Policy struct {
	// FirstPaymentGrace is the free period counted from entry for sessions
	// that were never paid.
	FirstPaymentGrace time.Duration
	// ExitWindow is how long a vehicle may take to leave after paying.
	ExitWindow time.Duration
	// CouponValidity is the lifetime of a freshly issued coupon.
	CouponValidity time.Duration
	// UsedCouponRetention keeps redeemed coupons around for auditing before
	// the sweep deletes them.
	UsedCouponRetention time.Duration
}

// DefaultPolicy returns the production billing windows.
func DefaultPolicy() Policy {
	return Policy{
		FirstPaymentGrace:   15 * time.Minute,
		ExitWindow:          15 * time.Minute,
		CouponValidity:      2 * time.Hour,
		UsedCouponRetention: 24 * time.Hour,
	}
}

// orDefault fills zero windows from DefaultPolicy.
func (p Policy) orDefault() Policy {
	d := DefaultPolicy()
	if p.FirstPaymentGrace <= 0 {
		p.FirstPaymentGrace = d.FirstPaymentGrace
	}
	if p.ExitWindow <= 0 {
		p.ExitWindow = d.ExitWindow
	}
	if p.CouponValidity <= 0 {
		p.CouponValidity = d.CouponValidity
	}
	if p.UsedCouponRetention <= 0 {
		p.UsedCouponRetention = d.UsedCouponRetention
	}
	return p
}

// Clock returns the current time.  Services default to UTC wall-clock time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
