// Package queue defines message payloads exchanged over the message broker.
package queue

// EventType names a parking event.  Consumers switch on it.
type EventType string

const (
	EventVehicleEntered EventType = "vehicle.entered"
	EventVehicleExited  EventType = "vehicle.exited"
	EventPaymentSettled EventType = "payment.settled"
	EventPaymentManual  EventType = "payment.manual"
)

// ParkingEvent is published after a gate or payment change has been
// committed.  It carries enough information for downstream consumers to log,
// notify, or update dashboards without querying the primary database.
// Amounts are decimal strings and timestamps RFC 3339 in UTC.
type ParkingEvent struct {
	Type          EventType `json:"type"`
	LotID         uint64    `json:"lot_id"`
	SessionID     uint64    `json:"session_id"`
	Plate         string    `json:"plate"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Method        string    `json:"method,omitempty"`
	PaidUntil     string    `json:"paid_until,omitempty"`
	OccurredAt    string    `json:"occurred_at"`
}
