package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// Reader is the read half of the storage contract.  Lookups of absent rows
// must return an error matching sql.ErrNoRows.
type Reader interface {
	SessionByID(ctx context.Context, id uint64) (model.ParkingSession, error)
	OpenSessionByPlate(ctx context.Context, lotID uint64, plate string) (model.ParkingSession, error)
	LatestOpenSessionByPlate(ctx context.Context, plate string) (model.ParkingSession, error)
	LotByID(ctx context.Context, id uint64) (model.ParkingLot, error)
	CouponByCode(ctx context.Context, code string) (model.Coupon, error)
}

// LedgerTx is the storage contract available inside one transaction.
// Conditional writes report the number of affected rows.
type LedgerTx interface {
	Reader
	CreateSession(ctx context.Context, s *model.ParkingSession) error
	// RedeemCoupon marks code as used only if it is still unused.
	RedeemCoupon(ctx context.Context, code string, sessionID uint64, at time.Time) (int64, error)
	// RecordPayment moves paid_until and adds feeDelta to total_fee of an
	// open session.
	RecordPayment(ctx context.Context, sessionID uint64, paidUntil time.Time, feeDelta decimal.Decimal) (int64, error)
	InsertTransaction(ctx context.Context, t *model.PaymentTransaction) error
	// CloseSession sets exit_time only if the session is still open.
	CloseSession(ctx context.Context, sessionID uint64, at time.Time) (int64, error)
}

// Ledger is the storage the billing core depends on.  WithinTx commits when
// fn returns nil and rolls back otherwise.
type Ledger interface {
	Reader
	CreateCoupon(ctx context.Context, c *model.Coupon) error
	CouponsGeneratedSince(ctx context.Context, lotID uint64, since time.Time) ([]model.Coupon, error)
	DeleteExpiredCoupons(ctx context.Context, now time.Time) (int64, error)
	DeleteUsedCouponsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
}
