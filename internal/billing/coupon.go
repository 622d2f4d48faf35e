package billing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

const (
	// MaxCouponBatch bounds IssueBatch.
	MaxCouponBatch = 10
	// DefaultHistoryDays is the look-back of History when none is given.
	DefaultHistoryDays = 30

	maxCodeAttempts = 5
)

// ValidationResult is the outcome of a coupon check.  When Valid is false,
// Code and Reason describe the first failed check.
type ValidationResult struct {
	Valid  bool
	Code   string
	Reason string
	Coupon model.Coupon

	cause *Error
}

func rejected(e *Error) ValidationResult {
	return ValidationResult{Code: e.Code, Reason: e.Reason, cause: e}
}

// SweepResult counts the coupons removed by one sweep.
type SweepResult struct {
	ExpiredDeleted   int64
	StaleUsedDeleted int64
	SweptAt          time.Time
}

// CouponHistoryEntry is a coupon together with its status at query time.
type CouponHistoryEntry struct {
	model.Coupon
	Status model.CouponStatus
}

// Coupons issues, validates and redeems lot-scoped discount coupons.
type Coupons struct {
	ledger Ledger
	opts   options
}

// NewCoupons returns a coupon engine backed by ledger.
func NewCoupons(ledger Ledger, opts ...Option) *Coupons {
	if ledger == nil {
		panic("nil ledger")
	}
	return &Coupons{ledger: ledger, opts: buildOptions(opts)}
}

// Issue creates one coupon for lotID valid for the policy's coupon validity.
// partner may be empty.
func (c *Coupons) Issue(ctx context.Context, lotID uint64, partner string) (model.Coupon, error) {
	if _, err := c.ledger.LotByID(ctx, lotID); err != nil {
		return model.Coupon{}, lookupError(err, ErrLotNotFound, "load lot")
	}
	return c.issue(ctx, lotID, partner, c.opts.clock())
}

// IssueBatch creates quantity coupons for lotID.  quantity is clamped to
// [1, MaxCouponBatch].  Coupons created before a failure stay valid.
func (c *Coupons) IssueBatch(ctx context.Context, lotID uint64, partner string, quantity int) ([]model.Coupon, error) {
	if quantity < 1 {
		quantity = 1
	}
	if quantity > MaxCouponBatch {
		quantity = MaxCouponBatch
	}
	if _, err := c.ledger.LotByID(ctx, lotID); err != nil {
		return nil, lookupError(err, ErrLotNotFound, "load lot")
	}
	now := c.opts.clock()
	out := make([]model.Coupon, 0, quantity)
	for i := 0; i < quantity; i++ {
		cp, err := c.issue(ctx, lotID, partner, now)
		if err != nil {
			return out, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (c *Coupons) issue(ctx context.Context, lotID uint64, partner string, now time.Time) (model.Coupon, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := c.opts.codes()
		if err != nil {
			return model.Coupon{}, storageError("generate coupon code", err)
		}
		cp := model.Coupon{
			Code:        code,
			LotID:       lotID,
			GeneratedAt: now,
			ExpiresAt:   now.Add(c.opts.policy.CouponValidity),
		}
		if partner != "" {
			cp.PartnerName = null.StringFrom(partner)
		}
		err = c.ledger.CreateCoupon(ctx, &cp)
		if errors.Is(err, ErrCouponCodeTaken) {
			continue
		}
		if err != nil {
			return model.Coupon{}, storageError("create coupon", err)
		}
		return cp, nil
	}
	return model.Coupon{}, ErrCouponCodeExhausted
}

// Validate checks whether code can be redeemed against sessionID right now.
// Only storage failures are returned as errors; rejections are reported in
// the result.
func (c *Coupons) Validate(ctx context.Context, code string, sessionID uint64) (ValidationResult, error) {
	return validateCoupon(ctx, c.ledger, c.opts.clock(), code, sessionID)
}

// validateCoupon runs the checks in a fixed order and stops at the first
// failure: existence, usage, expiry, session, lot, then whether the session
// is still open.
func validateCoupon(ctx context.Context, r Reader, now time.Time, code string, sessionID uint64) (ValidationResult, error) {
	code = NormalizeCode(code)
	if code == "" {
		return rejected(ErrCouponNotFound), nil
	}
	cp, err := r.CouponByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return rejected(ErrCouponNotFound), nil
	}
	if err != nil {
		return ValidationResult{}, storageError("load coupon", err)
	}
	if cp.Used() {
		return rejected(ErrCouponAlreadyUsed), nil
	}
	if cp.ExpiredAt(now) {
		return rejected(ErrCouponExpired), nil
	}
	s, err := r.SessionByID(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return rejected(ErrSessionNotFound), nil
	}
	if err != nil {
		return ValidationResult{}, storageError("load session", err)
	}
	if cp.LotID != s.LotID {
		return rejected(ErrLotMismatch), nil
	}
	if !s.Open() {
		return rejected(ErrSessionClosed), nil
	}
	return ValidationResult{Valid: true, Coupon: cp}, nil
}

// Redeem marks code as used by sessionID.  It is a compare-and-set on the
// coupon's used timestamp: of two concurrent calls at most one succeeds and
// the other fails with ErrRedeemConflict.
func (c *Coupons) Redeem(ctx context.Context, code string, sessionID uint64) error {
	err := c.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		return redeemCoupon(ctx, tx, NormalizeCode(code), sessionID, c.opts.clock())
	})
	return asBillingError(err, "redeem coupon")
}

func redeemCoupon(ctx context.Context, tx LedgerTx, code string, sessionID uint64, at time.Time) error {
	n, err := tx.RedeemCoupon(ctx, code, sessionID, at)
	if err != nil {
		return storageError("redeem coupon", err)
	}
	if n == 0 {
		return ErrRedeemConflict.with("coupon %s is already used", code)
	}
	return nil
}

// SweepExpired deletes unused coupons that expired before now and used
// coupons redeemed longer ago than the retention window.
func (c *Coupons) SweepExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	res := SweepResult{SweptAt: now}
	n, err := c.ledger.DeleteExpiredCoupons(ctx, now)
	if err != nil {
		return res, storageError("delete expired coupons", err)
	}
	res.ExpiredDeleted = n
	n, err = c.ledger.DeleteUsedCouponsBefore(ctx, now.Add(-c.opts.policy.UsedCouponRetention))
	if err != nil {
		return res, storageError("delete used coupons", err)
	}
	res.StaleUsedDeleted = n
	return res, nil
}

// History lists coupons generated in the last days days, newest first.
// lotID 0 means every lot.
func (c *Coupons) History(ctx context.Context, lotID uint64, days int) ([]CouponHistoryEntry, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	now := c.opts.clock()
	coupons, err := c.ledger.CouponsGeneratedSince(ctx, lotID, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, storageError("list coupons", err)
	}
	out := make([]CouponHistoryEntry, 0, len(coupons))
	for _, cp := range coupons {
		out = append(out, CouponHistoryEntry{Coupon: cp, Status: cp.Status(now)})
	}
	return out, nil
}

// lookupError maps a missing row to notFound and anything else to a
// storage failure.
func lookupError(err error, notFound *Error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return storageError(op, err)
}

// asBillingError leaves billing errors untouched and wraps anything else,
// such as a failed begin or commit, as a storage failure.
func asBillingError(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return storageError(op, err)
}
