package billing

import (
	"errors"
	"fmt"
)

// Kind groups failures by how callers should react to them.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindInvalidInput     Kind = "invalid_input"
	KindPermissionDenied Kind = "permission_denied"
	KindStorage          Kind = "storage_failure"
)

// Error is the typed failure returned by every billing operation.  Code is
// stable and machine-checkable; Reason is meant for humans.
type Error struct {
	Kind   Kind
	Code   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Err)
	}
	return e.Code + ": " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so that a detailed error compares equal to its
// sentinel: errors.Is(err, ErrCouponExpired).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// with returns a copy of the sentinel carrying a more specific reason.
func (e *Error) with(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Reason: fmt.Sprintf(format, args...), Err: e.Err}
}

// WithReason returns a copy of e with a request specific reason.
func (e *Error) WithReason(reason string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Reason: reason, Err: e.Err}
}

func newError(kind Kind, code, reason string) *Error {
	return &Error{Kind: kind, Code: code, Reason: reason}
}

var (
	ErrSessionNotFound = newError(KindNotFound, "session_not_found", "parking session not found")
	ErrLotNotFound     = newError(KindNotFound, "lot_not_found", "parking lot not found")
	ErrCouponNotFound  = newError(KindNotFound, "coupon_not_found", "coupon code does not exist")

	ErrCouponAlreadyUsed    = newError(KindInvalidInput, "coupon_already_used", "coupon has already been used")
	ErrCouponExpired        = newError(KindInvalidInput, "coupon_expired", "coupon has expired")
	ErrLotMismatch          = newError(KindInvalidInput, "lot_mismatch", "coupon is not valid for this parking lot")
	ErrInvalidCoupon        = newError(KindInvalidInput, "invalid_coupon", "coupon cannot be applied")
	ErrInsufficientPayment  = newError(KindInvalidInput, "insufficient_payment", "amount tendered is below the amount due")
	ErrInvalidPaymentMethod = newError(KindInvalidInput, "invalid_payment_method", "payment method must be Cash or CreditCard")
	ErrInvalidAmount        = newError(KindInvalidInput, "invalid_amount", "amount must not be negative")
	ErrInvalidPlate         = newError(KindInvalidInput, "invalid_plate", "licence plate is required")
	ErrInvalidLot           = newError(KindInvalidInput, "invalid_lot", "lot attributes are invalid")

	ErrRedeemConflict       = newError(KindConflict, "redeem_conflict", "coupon was redeemed concurrently or is already used")
	ErrDuplicateSession     = newError(KindConflict, "duplicate_session", "vehicle is already inside this parking lot")
	ErrSessionClosed        = newError(KindConflict, "session_closed", "parking session is already closed")
	ErrSettlementInProgress = newError(KindConflict, "settlement_in_progress", "another payment for this session is in progress")
	ErrCouponCodeExhausted  = newError(KindConflict, "coupon_code_exhausted", "could not allocate a unique coupon code")

	ErrPermissionDenied = newError(KindPermissionDenied, "permission_denied", "access to this parking lot is denied")
)

// ErrCouponCodeTaken is returned by a Ledger when a generated coupon code
// collides with an existing one.  The engine regenerates on it.
var ErrCouponCodeTaken = errors.New("coupon code already exists")

// storageError wraps an unexpected persistence failure.  It is surfaced as is
// and never retried.
func storageError(op string, err error) error {
	return &Error{Kind: KindStorage, Code: "storage_failure", Reason: op, Err: err}
}

// KindOf extracts the Kind of err.  Errors that did not originate from this
// package are treated as storage failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// CodeOf extracts the machine code of err, or "storage_failure".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "storage_failure"
}

// ReasonOf extracts the human readable reason of err.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "internal error"
}
