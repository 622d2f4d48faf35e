package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// Scenario tells which anchor a fee was measured from.
type Scenario string

const (
	// ScenarioFirstPayment measures from entry and honours the grace period.
	ScenarioFirstPayment Scenario = "A"
	// ScenarioRenewal measures from the previous paid-until boundary.
	ScenarioRenewal Scenario = "B"
)

// FeeQuote is the live fee of a session at CalculatedAt.  It is not stored;
// a settlement freezes it into the session's total fee.
type FeeQuote struct {
	SessionID     uint64
	LotID         uint64
	Fee           decimal.Decimal
	BaseFee       decimal.Decimal
	BillableHours int64
	Duration      time.Duration
	Scenario      Scenario
	Capped        bool
	InGrace       bool
	Anchor        time.Time
	CalculatedAt  time.Time
}

// DurationMinutes is the whole number of minutes since the anchor.
func (q FeeQuote) DurationMinutes() int64 {
	if q.Duration <= 0 {
		return 0
	}
	return int64(q.Duration / time.Minute)
}

// DurationDisplay renders the duration for kiosk screens, e.g. "1 h 10 min".
func (q FeeQuote) DurationDisplay() string {
	m := q.DurationMinutes()
	if m >= 60 {
		return fmt.Sprintf("%d h %d min", m/60, m%60)
	}
	return fmt.Sprintf("%d min", m)
}

// ComputeFee applies the default policy.  See Policy.ComputeFee.
func ComputeFee(s model.ParkingSession, lot model.ParkingLot, now time.Time) FeeQuote {
	return DefaultPolicy().ComputeFee(s, lot, now)
}

// ComputeFee returns the fee owed by s at now.  It has no side effects.
//
// A session that was never paid is billed from entry and is free while the
// elapsed time is within the grace period.  A renewal is billed from the
// previous paid-until boundary without grace.  Every started hour is billed
// in full; when the lot has a daily cap and the hourly total exceeds it,
// every started 24-hour block is billed at the cap instead.
func (p Policy) ComputeFee(s model.ParkingSession, lot model.ParkingLot, now time.Time) FeeQuote {
	p = p.orDefault()
	q := FeeQuote{
		SessionID:    s.ID,
		LotID:        lot.ID,
		Fee:          decimal.Zero,
		BaseFee:      decimal.Zero,
		CalculatedAt: now,
	}
	if s.PaidUntil.Valid {
		q.Scenario, q.Anchor = ScenarioRenewal, s.PaidUntil.Time
	} else {
		q.Scenario, q.Anchor = ScenarioFirstPayment, s.EntryTime
	}
	q.Duration = now.Sub(q.Anchor)

	if q.Scenario == ScenarioFirstPayment && q.Duration <= p.FirstPaymentGrace {
		q.InGrace = true
		return q
	}

	q.BillableHours = billableHours(q.Duration)
	q.BaseFee = lot.HourlyRate.Mul(decimal.NewFromInt(q.BillableHours))
	q.Fee = q.BaseFee
	if lot.HasDailyCap() && q.BaseFee.GreaterThan(lot.DailyMaxRate.Decimal) {
		days := (q.BillableHours + 23) / 24
		q.Fee = lot.DailyMaxRate.Decimal.Mul(decimal.NewFromInt(days))
		q.Capped = true
	}
	return q
}

// billableHours rounds d up to whole hours.  Exactly N hours bills N.
func billableHours(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	h := int64(d / time.Hour)
	if d%time.Hour != 0 {
		h++
	}
	return h
}
