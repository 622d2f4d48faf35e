package billing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-lot-billing/internal/model"
	"github.com/iliyamo/parking-lot-billing/internal/queue"
)

// Transaction id prefixes.
const (
	KioskTxnPrefix = "TXN"
	AdminTxnPrefix = "ADMIN"
)

// AppliedCoupon is one coupon's contribution to a discount.
type AppliedCoupon struct {
	Code     string
	Discount decimal.Decimal
}

// DiscountResult previews a fee after coupons.  Each coupon offsets at most
// one hour at the lot's hourly rate and never more than what is still owed.
type DiscountResult struct {
	Quote          FeeQuote
	OriginalFee    decimal.Decimal
	TotalDiscount  decimal.Decimal
	FinalFee       decimal.Decimal
	AppliedCoupons []AppliedCoupon
}

// Receipt describes a committed settlement.
type Receipt struct {
	TransactionID string
	SessionID     uint64
	LotID         uint64
	Plate         string
	Method        model.PaymentMethod
	AmountDue     decimal.Decimal
	AmountPaid    decimal.Decimal
	Change        decimal.Decimal
	TotalFee      decimal.Decimal
	PaidUntil     time.Time
	PaidAt        time.Time
	Discount      DiscountResult
}

// Payments computes fees and settles them.
type Payments struct {
	ledger Ledger
	opts   options
}

// NewPayments returns a settlement service backed by ledger.
func NewPayments(ledger Ledger, opts ...Option) *Payments {
	if ledger == nil {
		panic("nil ledger")
	}
	return &Payments{ledger: ledger, opts: buildOptions(opts)}
}

// Quote returns the live fee of an open session.
func (p *Payments) Quote(ctx context.Context, sessionID uint64) (FeeQuote, error) {
	s, lot, err := loadOpenSession(ctx, p.ledger, sessionID)
	if err != nil {
		return FeeQuote{}, err
	}
	return p.opts.policy.ComputeFee(s, lot, p.opts.clock()), nil
}

// QuoteByPlate returns the live fee of the most recent open session of
// plate in any lot, together with that session.
func (p *Payments) QuoteByPlate(ctx context.Context, plate string) (FeeQuote, model.ParkingSession, error) {
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return FeeQuote{}, model.ParkingSession{}, ErrInvalidPlate
	}
	s, err := p.ledger.LatestOpenSessionByPlate(ctx, plate)
	if err != nil {
		return FeeQuote{}, model.ParkingSession{}, lookupError(err, ErrSessionNotFound, "load session")
	}
	lot, err := p.ledger.LotByID(ctx, s.LotID)
	if err != nil {
		return FeeQuote{}, s, lookupError(err, ErrLotNotFound, "load lot")
	}
	return p.opts.policy.ComputeFee(s, lot, p.opts.clock()), s, nil
}

// ApplyDiscount previews the fee of sessionID after codes without
// redeeming anything.  Any invalid code fails the whole request.
func (p *Payments) ApplyDiscount(ctx context.Context, sessionID uint64, codes []string) (DiscountResult, error) {
	s, lot, err := loadOpenSession(ctx, p.ledger, sessionID)
	if err != nil {
		return DiscountResult{}, err
	}
	now := p.opts.clock()
	return applyDiscount(ctx, p.ledger, p.opts.policy.ComputeFee(s, lot, now), lot, codes, now)
}

// Settle pays the current fee of sessionID.  Within one transaction it
// recomputes the fee, re-validates and redeems codes, extends paid_until to
// now plus the exit window, accumulates the due amount into total_fee and
// records a transaction for the tendered amount.  Any failure leaves no
// trace.
func (p *Payments) Settle(ctx context.Context, sessionID uint64, tendered decimal.Decimal, method model.PaymentMethod, codes []string) (Receipt, error) {
	if !method.KioskMethod() {
		return Receipt{}, ErrInvalidPaymentMethod
	}
	if tendered.IsNegative() {
		return Receipt{}, ErrInvalidAmount
	}
	unlock, err := lockSession(ctx, p.opts.locker, sessionID)
	if err != nil {
		return Receipt{}, err
	}
	defer unlock()

	var rc Receipt
	err = p.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		now := p.opts.clock()
		s, lot, err := loadOpenSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		d, err := applyDiscount(ctx, tx, p.opts.policy.ComputeFee(s, lot, now), lot, codes, now)
		if err != nil {
			return err
		}
		if tendered.LessThan(d.FinalFee) {
			return ErrInsufficientPayment.with("amount due %s, received %s", d.FinalFee.StringFixed(2), tendered.StringFixed(2))
		}
		for _, ac := range d.AppliedCoupons {
			if err := redeemCoupon(ctx, tx, ac.Code, sessionID, now); err != nil {
				return err
			}
		}
		rc, err = p.record(ctx, tx, s, now, d.FinalFee, tendered, method, KioskTxnPrefix)
		rc.Discount = d
		return err
	})
	if err != nil {
		return Receipt{}, asBillingError(err, "settle payment")
	}
	p.opts.notifier.Notify(ctx, paymentEvent(queue.EventPaymentSettled, rc))
	return rc, nil
}

// MarkPaid is the admin override: it records amount as paid without a fee
// computation, sets a fresh exit window and adds amount to total_fee.
func (p *Payments) MarkPaid(ctx context.Context, sessionID uint64, amount decimal.Decimal) (Receipt, error) {
	if amount.IsNegative() {
		return Receipt{}, ErrInvalidAmount
	}
	unlock, err := lockSession(ctx, p.opts.locker, sessionID)
	if err != nil {
		return Receipt{}, err
	}
	defer unlock()

	var rc Receipt
	err = p.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		s, err := tx.SessionByID(ctx, sessionID)
		if err != nil {
			return lookupError(err, ErrSessionNotFound, "load session")
		}
		if !s.Open() {
			return ErrSessionClosed
		}
		rc, err = p.record(ctx, tx, s, p.opts.clock(), amount, amount, model.MethodManual, AdminTxnPrefix)
		return err
	})
	if err != nil {
		return Receipt{}, asBillingError(err, "mark session paid")
	}
	p.opts.notifier.Notify(ctx, paymentEvent(queue.EventPaymentManual, rc))
	return rc, nil
}

// record moves the payment boundary and writes the transaction row.
func (p *Payments) record(ctx context.Context, tx LedgerTx, s model.ParkingSession, now time.Time, due, paid decimal.Decimal, method model.PaymentMethod, prefix string) (Receipt, error) {
	paidUntil := now.Add(p.opts.policy.ExitWindow)
	n, err := tx.RecordPayment(ctx, s.ID, paidUntil, due)
	if err != nil {
		return Receipt{}, storageError("record payment", err)
	}
	if n == 0 {
		return Receipt{}, ErrSessionClosed
	}
	t := model.PaymentTransaction{
		TransactionID: p.opts.ids.Next(prefix),
		SessionID:     s.ID,
		Amount:        paid,
		Method:        method,
		PaidAt:        now,
	}
	if err := tx.InsertTransaction(ctx, &t); err != nil {
		return Receipt{}, storageError("insert transaction", err)
	}
	return Receipt{
		TransactionID: t.TransactionID,
		SessionID:     s.ID,
		LotID:         s.LotID,
		Plate:         s.Plate,
		Method:        method,
		AmountDue:     due,
		AmountPaid:    paid,
		Change:        paid.Sub(due),
		TotalFee:      s.SettledTotal().Add(due),
		PaidUntil:     paidUntil,
		PaidAt:        now,
	}, nil
}

func applyDiscount(ctx context.Context, r Reader, q FeeQuote, lot model.ParkingLot, codes []string, now time.Time) (DiscountResult, error) {
	res := DiscountResult{Quote: q, OriginalFee: q.Fee, TotalDiscount: decimal.Zero}
	seen := make(map[string]bool, len(codes))
	for _, raw := range codes {
		code := NormalizeCode(raw)
		if seen[code] {
			return DiscountResult{}, ErrInvalidCoupon.with("coupon %s was submitted more than once", code)
		}
		seen[code] = true
		v, err := validateCoupon(ctx, r, now, code, q.SessionID)
		if err != nil {
			return DiscountResult{}, err
		}
		if !v.Valid {
			return DiscountResult{}, &Error{
				Kind:   KindInvalidInput,
				Code:   ErrInvalidCoupon.Code,
				Reason: "coupon " + code + ": " + v.Reason,
				Err:    v.cause,
			}
		}
		discount := decimal.Min(lot.HourlyRate, q.Fee.Sub(res.TotalDiscount))
		if !discount.IsPositive() {
			continue
		}
		res.TotalDiscount = res.TotalDiscount.Add(discount)
		res.AppliedCoupons = append(res.AppliedCoupons, AppliedCoupon{Code: code, Discount: discount})
	}
	res.FinalFee = decimal.Max(decimal.Zero, q.Fee.Sub(res.TotalDiscount))
	return res, nil
}

func loadOpenSession(ctx context.Context, r Reader, sessionID uint64) (model.ParkingSession, model.ParkingLot, error) {
	s, err := r.SessionByID(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return s, model.ParkingLot{}, ErrSessionNotFound
	}
	if err != nil {
		return s, model.ParkingLot{}, storageError("load session", err)
	}
	if !s.Open() {
		return s, model.ParkingLot{}, ErrSessionClosed
	}
	lot, err := r.LotByID(ctx, s.LotID)
	if err != nil {
		return s, lot, lookupError(err, ErrLotNotFound, "load lot")
	}
	return s, lot, nil
}

func paymentEvent(t queue.EventType, rc Receipt) queue.ParkingEvent {
	return queue.ParkingEvent{
		Type:          t,
		LotID:         rc.LotID,
		SessionID:     rc.SessionID,
		Plate:         rc.Plate,
		TransactionID: rc.TransactionID,
		Amount:        rc.AmountPaid.StringFixed(2),
		Method:        string(rc.Method),
		PaidUntil:     rc.PaidUntil.Format(time.RFC3339),
		OccurredAt:    rc.PaidAt.Format(time.RFC3339),
	}
}
