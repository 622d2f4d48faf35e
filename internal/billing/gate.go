package billing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/parking-lot-billing/internal/model"
	"github.com/iliyamo/parking-lot-billing/internal/queue"
)

// ExitReason explains a gate decision.
type ExitReason string

const (
	ExitPaid           ExitReason = "paid"
	ExitNeverPaid      ExitReason = "never_paid"
	ExitPaymentExpired ExitReason = "payment_expired"
)

// GateDecision is the answer of the exit gate.  When Admit is true the
// session has been closed at ExitTime.
type GateDecision struct {
	Admit    bool
	Reason   ExitReason
	Session  model.ParkingSession
	ExitTime time.Time
}

// VehicleStatus is the kiosk view of a vehicle that is inside some lot.
type VehicleStatus struct {
	Session       model.ParkingSession
	Lot           model.ParkingLot
	PaymentStatus model.PaymentStatus
	CheckedAt     time.Time
}

// Gate opens sessions at the entry gate and closes them at the exit gate.
type Gate struct {
	ledger Ledger
	opts   options
}

// NewGate returns a gate controller backed by ledger.
func NewGate(ledger Ledger, opts ...Option) *Gate {
	if ledger == nil {
		panic("nil ledger")
	}
	return &Gate{ledger: ledger, opts: buildOptions(opts)}
}

// Enter opens a session for plate in lotID.  A plate may hold at most one
// open session per lot.
func (g *Gate) Enter(ctx context.Context, lotID uint64, plate string) (model.ParkingSession, error) {
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return model.ParkingSession{}, ErrInvalidPlate
	}
	// The open-session check below is a read then an insert.
	unlock, err := acquire(ctx, g.opts.locker, entryLockKey(lotID, plate),
		ErrDuplicateSession.with("entry for %s is already in progress", plate))
	if err != nil {
		return model.ParkingSession{}, err
	}
	defer unlock()

	var s model.ParkingSession
	err = g.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		if _, err := tx.LotByID(ctx, lotID); err != nil {
			return lookupError(err, ErrLotNotFound, "load lot")
		}
		open, err := tx.OpenSessionByPlate(ctx, lotID, plate)
		switch {
		case err == nil:
			return ErrDuplicateSession.with("vehicle %s is already inside since %s", plate, open.EntryTime.Format(time.RFC3339))
		case !errors.Is(err, sql.ErrNoRows):
			return storageError("load open session", err)
		}
		s = model.ParkingSession{LotID: lotID, Plate: plate, EntryTime: g.opts.clock()}
		if err := tx.CreateSession(ctx, &s); err != nil {
			return storageError("create session", err)
		}
		return nil
	})
	if err != nil {
		return model.ParkingSession{}, asBillingError(err, "enter lot")
	}
	g.opts.notifier.Notify(ctx, gateEvent(queue.EventVehicleEntered, s, s.EntryTime))
	return s, nil
}

// CheckExit decides whether plate may leave lotID.  The decision only reads
// the persisted paid-until boundary; it never recomputes a fee.  An
// admitted vehicle's session is closed atomically.
func (g *Gate) CheckExit(ctx context.Context, lotID uint64, plate string) (GateDecision, error) {
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return GateDecision{}, ErrInvalidPlate
	}
	var d GateDecision
	err := g.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		s, err := tx.OpenSessionByPlate(ctx, lotID, plate)
		if err != nil {
			return lookupError(err, ErrSessionNotFound, "load open session")
		}
		now := g.opts.clock()
		d = GateDecision{Session: s}
		switch s.PaymentStatus(now) {
		case model.PaymentUnpaid:
			d.Reason = ExitNeverPaid
			return nil
		case model.PaymentExpired:
			d.Reason = ExitPaymentExpired
			return nil
		}
		if err := closeSession(ctx, tx, s.ID, now); err != nil {
			return err
		}
		d.Admit, d.Reason, d.ExitTime = true, ExitPaid, now
		d.Session.ExitTime.SetValid(now)
		return nil
	})
	if err != nil {
		return GateDecision{}, asBillingError(err, "check exit")
	}
	if d.Admit {
		g.opts.notifier.Notify(ctx, gateEvent(queue.EventVehicleExited, d.Session, d.ExitTime))
	}
	return d, nil
}

// ForceExit closes sessionID regardless of its payment state.
func (g *Gate) ForceExit(ctx context.Context, sessionID uint64) (model.ParkingSession, error) {
	var s model.ParkingSession
	err := g.ledger.WithinTx(ctx, func(tx LedgerTx) error {
		var err error
		s, err = tx.SessionByID(ctx, sessionID)
		if err != nil {
			return lookupError(err, ErrSessionNotFound, "load session")
		}
		if !s.Open() {
			return ErrSessionClosed
		}
		now := g.opts.clock()
		if err := closeSession(ctx, tx, s.ID, now); err != nil {
			return err
		}
		s.ExitTime.SetValid(now)
		return nil
	})
	if err != nil {
		return model.ParkingSession{}, asBillingError(err, "force exit")
	}
	g.opts.notifier.Notify(ctx, gateEvent(queue.EventVehicleExited, s, s.ExitTime.Time))
	return s, nil
}

// Status reports the most recent open session of plate in any lot.
func (g *Gate) Status(ctx context.Context, plate string) (VehicleStatus, error) {
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return VehicleStatus{}, ErrInvalidPlate
	}
	s, err := g.ledger.LatestOpenSessionByPlate(ctx, plate)
	if err != nil {
		return VehicleStatus{}, lookupError(err, ErrSessionNotFound, "load session")
	}
	lot, err := g.ledger.LotByID(ctx, s.LotID)
	if err != nil {
		return VehicleStatus{}, lookupError(err, ErrLotNotFound, "load lot")
	}
	now := g.opts.clock()
	return VehicleStatus{Session: s, Lot: lot, PaymentStatus: s.PaymentStatus(now), CheckedAt: now}, nil
}

func closeSession(ctx context.Context, tx LedgerTx, sessionID uint64, at time.Time) error {
	n, err := tx.CloseSession(ctx, sessionID, at)
	if err != nil {
		return storageError("close session", err)
	}
	if n == 0 {
		return ErrSessionClosed
	}
	return nil
}

func gateEvent(t queue.EventType, s model.ParkingSession, at time.Time) queue.ParkingEvent {
	ev := queue.ParkingEvent{
		Type:       t,
		LotID:      s.LotID,
		SessionID:  s.ID,
		Plate:      s.Plate,
		OccurredAt: at.Format(time.RFC3339),
	}
	if s.PaidUntil.Valid {
		ev.PaidUntil = s.PaidUntil.Time.Format(time.RFC3339)
	}
	return ev
}
