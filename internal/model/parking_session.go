package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

// ParkingSession is one vehicle's occupancy of one lot, from entry until
// the gate (or an admin) closes it.
//
// Fields:
//
//	ID        – primary key identifier.
//	LotID     – lot the vehicle entered.
//	Plate     – normalized licence plate.
//	EntryTime – when the entry gate registered the vehicle.
//	PaidUntil – exit deadline set by the latest settlement (null = never paid).
//	ExitTime  – when the session was closed (null = vehicle still inside).
//	TotalFee  – sum of all settled fees for the session.
type ParkingSession struct {
	ID        uint64              // parking_sessions.id
	LotID     uint64              // parking_sessions.lot_id
	Plate     string              // parking_sessions.plate
	EntryTime time.Time           // parking_sessions.entry_time
	PaidUntil null.Time           // parking_sessions.paid_until (nullable)
	ExitTime  null.Time           // parking_sessions.exit_time (nullable)
	TotalFee  decimal.NullDecimal // parking_sessions.total_fee (nullable)
}

// Open reports whether the vehicle is still inside the lot.
func (s ParkingSession) Open() bool { return !s.ExitTime.Valid }

// PaymentStatus classifies the persisted payment boundary at now.  It never
// recomputes a fee.
func (s ParkingSession) PaymentStatus(now time.Time) PaymentStatus {
	switch {
	case !s.PaidUntil.Valid:
		return PaymentUnpaid
	case now.After(s.PaidUntil.Time):
		return PaymentExpired
	default:
		return PaymentPaid
	}
}

// SettledTotal returns TotalFee with null treated as zero.
func (s ParkingSession) SettledTotal() decimal.Decimal {
	if !s.TotalFee.Valid {
		return decimal.Zero
	}
	return s.TotalFee.Decimal
}

// PaymentStatus is the exit-gate view of a session.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPaid    PaymentStatus = "paid"
	PaymentExpired PaymentStatus = "payment_expired"
)

// NormalizePlate trims and upper-cases a licence plate so that kiosks and
// gate cameras agree on one spelling.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
