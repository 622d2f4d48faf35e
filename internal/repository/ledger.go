package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-lot-billing/internal/billing"
	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// Ledger adapts the repositories to billing.Ledger.
type Ledger struct {
	db       *sql.DB
	Lots     *LotRepo
	Sessions *SessionRepo
	Coupons  *CouponRepo
	Payments *PaymentRepo
}

// NewLedger wires all repositories to db.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{
		db:       db,
		Lots:     NewLotRepo(db),
		Sessions: NewSessionRepo(db),
		Coupons:  NewCouponRepo(db),
		Payments: NewPaymentRepo(db),
	}
}

var _ billing.Ledger = (*Ledger)(nil)

func (l *Ledger) SessionByID(ctx context.Context, id uint64) (model.ParkingSession, error) {
	return l.Sessions.GetByIDTx(ctx, l.db, id)
}

func (l *Ledger) OpenSessionByPlate(ctx context.Context, lotID uint64, plate string) (model.ParkingSession, error) {
	return l.Sessions.OpenByPlateTx(ctx, l.db, lotID, plate)
}

func (l *Ledger) LatestOpenSessionByPlate(ctx context.Context, plate string) (model.ParkingSession, error) {
	return l.Sessions.LatestOpenByPlateTx(ctx, l.db, plate)
}

func (l *Ledger) LotByID(ctx context.Context, id uint64) (model.ParkingLot, error) {
	return l.Lots.GetByIDTx(ctx, l.db, id)
}

func (l *Ledger) CouponByCode(ctx context.Context, code string) (model.Coupon, error) {
	return l.Coupons.GetByCodeTx(ctx, l.db, code)
}

// CreateCoupon translates a duplicate code into billing.ErrCouponCodeTaken
// so the engine can draw a new one.
func (l *Ledger) CreateCoupon(ctx context.Context, c *model.Coupon) error {
	err := l.Coupons.Create(ctx, c)
	if errors.Is(err, ErrDuplicate) {
		return billing.ErrCouponCodeTaken
	}
	return err
}

func (l *Ledger) CouponsGeneratedSince(ctx context.Context, lotID uint64, since time.Time) ([]model.Coupon, error) {
	return l.Coupons.ListGeneratedSince(ctx, lotID, since)
}

func (l *Ledger) DeleteExpiredCoupons(ctx context.Context, now time.Time) (int64, error) {
	return l.Coupons.DeleteExpired(ctx, now)
}

func (l *Ledger) DeleteUsedCouponsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return l.Coupons.DeleteUsedBefore(ctx, cutoff)
}

// WithinTx runs fn in a database transaction.  The transaction is rolled
// back unless fn returns nil and the commit succeeds.
func (l *Ledger) WithinTx(ctx context.Context, fn func(tx billing.LedgerTx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&ledgerTx{l: l, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ledgerTx binds the repositories to one *sql.Tx.
type ledgerTx struct {
	l  *Ledger
	tx *sql.Tx
}

func (t *ledgerTx) SessionByID(ctx context.Context, id uint64) (model.ParkingSession, error) {
	return t.l.Sessions.GetByIDTx(ctx, t.tx, id)
}

func (t *ledgerTx) OpenSessionByPlate(ctx context.Context, lotID uint64, plate string) (model.ParkingSession, error) {
	return t.l.Sessions.OpenByPlateTx(ctx, t.tx, lotID, plate)
}

func (t *ledgerTx) LatestOpenSessionByPlate(ctx context.Context, plate string) (model.ParkingSession, error) {
	return t.l.Sessions.LatestOpenByPlateTx(ctx, t.tx, plate)
}

func (t *ledgerTx) LotByID(ctx context.Context, id uint64) (model.ParkingLot, error) {
	return t.l.Lots.GetByIDTx(ctx, t.tx, id)
}

func (t *ledgerTx) CouponByCode(ctx context.Context, code string) (model.Coupon, error) {
	return t.l.Coupons.GetByCodeTx(ctx, t.tx, code)
}

func (t *ledgerTx) CreateSession(ctx context.Context, s *model.ParkingSession) error {
	return t.l.Sessions.CreateTx(ctx, t.tx, s)
}

func (t *ledgerTx) RedeemCoupon(ctx context.Context, code string, sessionID uint64, at time.Time) (int64, error) {
	return t.l.Coupons.RedeemTx(ctx, t.tx, code, sessionID, at)
}

func (t *ledgerTx) RecordPayment(ctx context.Context, sessionID uint64, paidUntil time.Time, feeDelta decimal.Decimal) (int64, error) {
	return t.l.Sessions.RecordPaymentTx(ctx, t.tx, sessionID, paidUntil, feeDelta)
}

func (t *ledgerTx) InsertTransaction(ctx context.Context, p *model.PaymentTransaction) error {
	return t.l.Payments.InsertTx(ctx, t.tx, p)
}

func (t *ledgerTx) CloseSession(ctx context.Context, sessionID uint64, at time.Time) (int64, error) {
	return t.l.Sessions.CloseTx(ctx, t.tx, sessionID, at)
}
