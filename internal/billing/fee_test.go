package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

func lotWithRates(rate, dailyMax int64) model.ParkingLot {
	l := model.ParkingLot{ID: 1, HourlyRate: decimal.NewFromInt(rate)}
	if dailyMax > 0 {
		l.DailyMaxRate = decimal.NewNullDecimal(decimal.NewFromInt(dailyMax))
	}
	return l
}

func TestComputeFee(t *testing.T) {
	entry := t0
	unpaid := model.ParkingSession{ID: 7, LotID: 1, EntryTime: entry}
	renewed := model.ParkingSession{ID: 7, LotID: 1, EntryTime: entry, PaidUntil: null.TimeFrom(entry.Add(2 * time.Hour))}

	tests := []struct {
		name     string
		session  model.ParkingSession
		lot      model.ParkingLot
		now      time.Time
		fee      int64
		hours    int64
		scenario Scenario
		capped   bool
	}{
		{"grace at entry", unpaid, lotWithRates(30, 0), entry, 0, 0, ScenarioFirstPayment, false},
		{"grace boundary is free", unpaid, lotWithRates(30, 0), entry.Add(15 * time.Minute), 0, 0, ScenarioFirstPayment, false},
		{"one second past grace", unpaid, lotWithRates(30, 0), entry.Add(15*time.Minute + time.Second), 30, 1, ScenarioFirstPayment, false},
		{"exactly one hour", unpaid, lotWithRates(30, 0), entry.Add(time.Hour), 30, 1, ScenarioFirstPayment, false},
		{"61 minutes bills two hours", unpaid, lotWithRates(30, 0), entry.Add(61 * time.Minute), 60, 2, ScenarioFirstPayment, false},
		{"exactly three hours", unpaid, lotWithRates(30, 0), entry.Add(3 * time.Hour), 90, 3, ScenarioFirstPayment, false},
		{"three hours and a minute", unpaid, lotWithRates(30, 0), entry.Add(3*time.Hour + time.Minute), 120, 4, ScenarioFirstPayment, false},
		{"entry in the future", unpaid, lotWithRates(30, 0), entry.Add(-time.Hour), 0, 0, ScenarioFirstPayment, false},
		{"renewal has no grace", renewed, lotWithRates(30, 0), entry.Add(2*time.Hour + time.Minute), 30, 1, ScenarioRenewal, false},
		{"renewal before deadline", renewed, lotWithRates(30, 0), entry.Add(time.Hour), 0, 0, ScenarioRenewal, false},
		{"cap not reached", unpaid, lotWithRates(10, 50), entry.Add(5 * time.Hour), 50, 5, ScenarioFirstPayment, false},
		{"cap reached", unpaid, lotWithRates(10, 50), entry.Add(6 * time.Hour), 50, 6, ScenarioFirstPayment, true},
		{"cap over two days", unpaid, lotWithRates(10, 50), entry.Add(25 * time.Hour), 100, 25, ScenarioFirstPayment, true},
		{"cap at exactly one day", unpaid, lotWithRates(10, 50), entry.Add(24 * time.Hour), 50, 24, ScenarioFirstPayment, true},
		{"no cap configured", unpaid, lotWithRates(10, 0), entry.Add(25 * time.Hour), 250, 25, ScenarioFirstPayment, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ComputeFee(tt.session, tt.lot, tt.now)
			assert.True(t, decimal.NewFromInt(tt.fee).Equal(q.Fee), "fee = %s", q.Fee)
			assert.Equal(t, tt.hours, q.BillableHours)
			assert.Equal(t, tt.scenario, q.Scenario)
			assert.Equal(t, tt.capped, q.Capped)
			assert.False(t, q.Fee.IsNegative())
		})
	}
}

func TestComputeFeeFractionalRate(t *testing.T) {
	lot := model.ParkingLot{ID: 1, HourlyRate: decimal.RequireFromString("2.50")}
	s := model.ParkingSession{EntryTime: t0}

	q := ComputeFee(s, lot, t0.Add(150*time.Minute))

	assert.Equal(t, "7.50", q.Fee.StringFixed(2))
}

func TestComputeFeeCustomGrace(t *testing.T) {
	p := Policy{FirstPaymentGrace: 30 * time.Minute}
	s := model.ParkingSession{EntryTime: t0}

	assert.True(t, p.ComputeFee(s, lotWithRates(30, 0), t0.Add(25*time.Minute)).Fee.IsZero())
	assert.True(t, p.ComputeFee(s, lotWithRates(30, 0), t0.Add(31*time.Minute)).Fee.Equal(decimal.NewFromInt(30)))
}

func TestFeeQuoteDuration(t *testing.T) {
	q := ComputeFee(model.ParkingSession{EntryTime: t0}, lotWithRates(30, 0), t0.Add(70*time.Minute))
	assert.Equal(t, int64(70), q.DurationMinutes())
	assert.Equal(t, "1 h 10 min", q.DurationDisplay())
	assert.Equal(t, t0, q.Anchor)

	q = ComputeFee(model.ParkingSession{EntryTime: t0}, lotWithRates(30, 0), t0.Add(10*time.Minute))
	assert.Equal(t, "10 min", q.DurationDisplay())
	assert.True(t, q.InGrace)

	q = ComputeFee(model.ParkingSession{EntryTime: t0}, lotWithRates(30, 0), t0.Add(-time.Minute))
	assert.Equal(t, int64(0), q.DurationMinutes())
}
