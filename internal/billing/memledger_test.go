package billing

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/parking-lot-billing/internal/model"
	"github.com/iliyamo/parking-lot-billing/internal/queue"
)

// memLedger is an in-memory Ledger.  WithinTx runs transactions one at a
// time and restores a snapshot when fn fails.
type memLedger struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID   uint64
	lots     map[uint64]model.ParkingLot
	sessions map[uint64]model.ParkingSession
	coupons  map[string]model.Coupon
	txns     []model.PaymentTransaction

	failInsertTxn error
}

func newMemLedger() *memLedger {
	return &memLedger{
		lots:     map[uint64]model.ParkingLot{},
		sessions: map[uint64]model.ParkingSession{},
		coupons:  map[string]model.Coupon{},
	}
}

func (m *memLedger) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memLedger) addLot(rate int64, dailyMax int64) model.ParkingLot {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := model.ParkingLot{ID: m.id(), Name: "Lot", TotalSpaces: 10, HourlyRate: decimal.NewFromInt(rate)}
	if dailyMax > 0 {
		l.DailyMaxRate = decimal.NewNullDecimal(decimal.NewFromInt(dailyMax))
	}
	m.lots[l.ID] = l
	return l
}

func (m *memLedger) addSession(lotID uint64, plate string, entry time.Time) model.ParkingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.ParkingSession{ID: m.id(), LotID: lotID, Plate: plate, EntryTime: entry}
	m.sessions[s.ID] = s
	return s
}

func (m *memLedger) addCoupon(lotID uint64, code string, generated time.Time, validity time.Duration) model.Coupon {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := model.Coupon{ID: m.id(), Code: code, LotID: lotID, GeneratedAt: generated, ExpiresAt: generated.Add(validity)}
	m.coupons[code] = c
	return c
}

func (m *memLedger) session(id uint64) model.ParkingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *memLedger) coupon(code string) model.Coupon {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coupons[code]
}

func (m *memLedger) transactions() []model.PaymentTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PaymentTransaction(nil), m.txns...)
}

func (m *memLedger) SessionByID(_ context.Context, id uint64) (model.ParkingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return s, sql.ErrNoRows
	}
	return s, nil
}

func (m *memLedger) OpenSessionByPlate(_ context.Context, lotID uint64, plate string) (model.ParkingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.LotID == lotID && s.Plate == plate && s.Open() {
			return s, nil
		}
	}
	return model.ParkingSession{}, sql.ErrNoRows
}

func (m *memLedger) LatestOpenSessionByPlate(_ context.Context, plate string) (model.ParkingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best model.ParkingSession
	found := false
	for _, s := range m.sessions {
		if s.Plate == plate && s.Open() && (!found || s.EntryTime.After(best.EntryTime)) {
			best, found = s, true
		}
	}
	if !found {
		return best, sql.ErrNoRows
	}
	return best, nil
}

func (m *memLedger) LotByID(_ context.Context, id uint64) (model.ParkingLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lots[id]
	if !ok {
		return l, sql.ErrNoRows
	}
	return l, nil
}

func (m *memLedger) CouponByCode(_ context.Context, code string) (model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[code]
	if !ok {
		return c, sql.ErrNoRows
	}
	return c, nil
}

func (m *memLedger) CreateCoupon(_ context.Context, c *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coupons[c.Code]; ok {
		return ErrCouponCodeTaken
	}
	c.ID = m.id()
	m.coupons[c.Code] = *c
	return nil
}

func (m *memLedger) CouponsGeneratedSince(_ context.Context, lotID uint64, since time.Time) ([]model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Coupon
	for _, c := range m.coupons {
		if (lotID == 0 || c.LotID == lotID) && !c.GeneratedAt.Before(since) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}

func (m *memLedger) DeleteExpiredCoupons(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for code, c := range m.coupons {
		if !c.Used() && c.ExpiresAt.Before(now) {
			delete(m.coupons, code)
			n++
		}
	}
	return n, nil
}

func (m *memLedger) DeleteUsedCouponsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for code, c := range m.coupons {
		if c.Used() && c.UsedAt.Time.Before(cutoff) {
			delete(m.coupons, code)
			n++
		}
	}
	return n, nil
}

func (m *memLedger) WithinTx(_ context.Context, fn func(tx LedgerTx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	sessions := make(map[uint64]model.ParkingSession, len(m.sessions))
	for k, v := range m.sessions {
		sessions[k] = v
	}
	coupons := make(map[string]model.Coupon, len(m.coupons))
	for k, v := range m.coupons {
		coupons[k] = v
	}
	txns := append([]model.PaymentTransaction(nil), m.txns...)
	m.mu.Unlock()

	if err := fn(memTx{m}); err != nil {
		m.mu.Lock()
		m.sessions, m.coupons, m.txns = sessions, coupons, txns
		m.mu.Unlock()
		return err
	}
	return nil
}

type memTx struct{ *memLedger }

func (t memTx) CreateSession(_ context.Context, s *model.ParkingSession) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.ID = t.id()
	t.sessions[s.ID] = *s
	return nil
}

func (t memTx) RedeemCoupon(_ context.Context, code string, sessionID uint64, at time.Time) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.coupons[code]
	if !ok || c.Used() {
		return 0, nil
	}
	c.UsedAt = null.TimeFrom(at)
	c.SessionID = null.IntFrom(int64(sessionID))
	t.coupons[code] = c
	return 1, nil
}

func (t memTx) RecordPayment(_ context.Context, sessionID uint64, paidUntil time.Time, feeDelta decimal.Decimal) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionID]
	if !ok || !s.Open() {
		return 0, nil
	}
	s.PaidUntil = null.TimeFrom(paidUntil)
	s.TotalFee = decimal.NewNullDecimal(s.SettledTotal().Add(feeDelta))
	t.sessions[sessionID] = s
	return 1, nil
}

func (t memTx) InsertTransaction(_ context.Context, p *model.PaymentTransaction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failInsertTxn != nil {
		return t.failInsertTxn
	}
	p.ID = t.id()
	t.txns = append(t.txns, *p)
	return nil
}

func (t memTx) CloseSession(_ context.Context, sessionID uint64, at time.Time) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[sessionID]
	if !ok || !s.Open() {
		return 0, nil
	}
	s.ExitTime = null.TimeFrom(at)
	t.sessions[sessionID] = s
	return 1, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.ParkingEvent
}

func (r *recordingNotifier) Notify(_ context.Context, ev queue.ParkingEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingNotifier) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (s *sequenceIDs) Next(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return prefix + decimal.NewFromInt(int64(s.n)).String()
}

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func decimalFromInt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
