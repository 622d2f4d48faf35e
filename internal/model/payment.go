package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod identifies how a settlement was tendered.
type PaymentMethod string

const (
	MethodCash       PaymentMethod = "Cash"
	MethodCreditCard PaymentMethod = "CreditCard"
	MethodManual     PaymentMethod = "Manual" // admin override
)

// KioskMethod reports whether m can be chosen at a payment kiosk.
func (m PaymentMethod) KioskMethod() bool {
	return m == MethodCash || m == MethodCreditCard
}

// PaymentTransaction is the append-only audit record of one settlement.
//
// Fields:
//
//	ID            – primary key identifier.
//	TransactionID – globally unique, time-derived reference.
//	SessionID     – session the payment settled.
//	Amount        – amount tendered.
//	Method        – Cash, CreditCard or Manual.
//	PaidAt        – settlement timestamp.
type PaymentTransaction struct {
	ID            uint64          // payment_transactions.id
	TransactionID string          // payment_transactions.transaction_id
	SessionID     uint64          // payment_transactions.session_id
	Amount        decimal.Decimal // payment_transactions.amount
	Method        PaymentMethod   // payment_transactions.method
	PaidAt        time.Time       // payment_transactions.paid_at
}
