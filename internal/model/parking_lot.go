package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParkingLot is the rate schedule and capacity of one lot.  Rates are
// read-only inputs to billing; only admins create lots.
//
// Fields:
//
//	ID           – primary key identifier.
//	Name         – display name shown on kiosks.
//	Address      – street address.
//	TotalSpaces  – capacity used for occupancy figures.
//	HourlyRate   – price of one started hour, always > 0.
//	DailyMaxRate – optional cap per 24-hour block.
//	CreatedAt    – creation timestamp.
type ParkingLot struct {
	ID           uint64              // parking_lots.id
	Name         string              // parking_lots.name
	Address      string              // parking_lots.address
	TotalSpaces  int                 // parking_lots.total_spaces
	HourlyRate   decimal.Decimal     // parking_lots.hourly_rate
	DailyMaxRate decimal.NullDecimal // parking_lots.daily_max_rate (nullable)
	CreatedAt    time.Time           // parking_lots.created_at
}

// HasDailyCap reports whether the lot caps fees per 24-hour block.
func (l ParkingLot) HasDailyCap() bool {
	return l.DailyMaxRate.Valid && l.DailyMaxRate.Decimal.IsPositive()
}

// LotOccupancy is a lot together with the number of vehicles currently
// inside it.
type LotOccupancy struct {
	Lot              ParkingLot
	CurrentOccupancy int
}

// AvailableSpaces never goes below zero even when more sessions are open
// than the lot has spaces (e.g. after an admin lowered capacity).
func (o LotOccupancy) AvailableSpaces() int {
	if n := o.Lot.TotalSpaces - o.CurrentOccupancy; n > 0 {
		return n
	}
	return 0
}

// OccupancyRate is the share of occupied spaces in percent, rounded to one
// decimal place.
func (o LotOccupancy) OccupancyRate() float64 {
	if o.Lot.TotalSpaces <= 0 {
		return 0
	}
	rate := decimal.NewFromInt(int64(o.CurrentOccupancy)).
		Div(decimal.NewFromInt(int64(o.Lot.TotalSpaces))).
		Mul(decimal.NewFromInt(100)).
		Round(1)
	f, _ := rate.Float64()
	return f
}
