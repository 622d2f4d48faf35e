package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// SessionRepo persists parking sessions.  A session is open while its
// exit_time is NULL.  Writes that depend on the session still being open
// carry that condition in their WHERE clause and report the affected row
// count so callers can detect lost races.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, lot_id, plate, entry_time, paid_until, exit_time, total_fee`

func scanSession(row rowScanner) (model.ParkingSession, error) {
	var s model.ParkingSession
	err := row.Scan(&s.ID, &s.LotID, &s.Plate, &s.EntryTime, &s.PaidUntil, &s.ExitTime, &s.TotalFee)
	return s, err
}

// GetByIDTx returns the session with the given id or sql.ErrNoRows.
func (r *SessionRepo) GetByIDTx(ctx context.Context, q DBTX, id uint64) (model.ParkingSession, error) {
	return scanSession(q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM parking_sessions WHERE id = ? LIMIT 1`, id))
}

// GetByID is GetByIDTx outside a transaction.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (model.ParkingSession, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

// OpenByPlateTx returns the open session of plate in lotID.
func (r *SessionRepo) OpenByPlateTx(ctx context.Context, q DBTX, lotID uint64, plate string) (model.ParkingSession, error) {
	return scanSession(q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM parking_sessions
		 WHERE lot_id = ? AND plate = ? AND exit_time IS NULL
		 ORDER BY entry_time DESC, id DESC LIMIT 1`, lotID, plate))
}

// LatestOpenByPlateTx returns the most recently entered open session of
// plate across all lots.
func (r *SessionRepo) LatestOpenByPlateTx(ctx context.Context, q DBTX, plate string) (model.ParkingSession, error) {
	return scanSession(q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM parking_sessions
		 WHERE plate = ? AND exit_time IS NULL
		 ORDER BY entry_time DESC, id DESC LIMIT 1`, plate))
}

// CreateTx inserts a new open session and fills in its ID.
func (r *SessionRepo) CreateTx(ctx context.Context, q DBTX, s *model.ParkingSession) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO parking_sessions (lot_id, plate, entry_time) VALUES (?, ?, ?)`,
		s.LotID, s.Plate, utc(s.EntryTime))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// RecordPaymentTx moves paid_until and adds feeDelta to total_fee of an
// open session.  It returns the number of rows changed (0 or 1).
func (r *SessionRepo) RecordPaymentTx(ctx context.Context, q DBTX, id uint64, paidUntil time.Time, feeDelta decimal.Decimal) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE parking_sessions
		 SET paid_until = ?, total_fee = COALESCE(total_fee, 0) + ?
		 WHERE id = ? AND exit_time IS NULL`,
		utc(paidUntil), feeDelta, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CloseTx sets exit_time of an open session.  It returns 0 when the
// session was already closed.
func (r *SessionRepo) CloseTx(ctx context.Context, q DBTX, id uint64, at time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE parking_sessions SET exit_time = ? WHERE id = ? AND exit_time IS NULL`,
		utc(at), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListOpenByLot returns the vehicles currently inside lotID, oldest first.
func (r *SessionRepo) ListOpenByLot(ctx context.Context, lotID uint64) ([]model.ParkingSession, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM parking_sessions
		 WHERE lot_id = ? AND exit_time IS NULL
		 ORDER BY entry_time, id`, lotID)
}

// ListClosedByLotSince returns sessions of lotID that left at or after
// since, most recent exit first.
func (r *SessionRepo) ListClosedByLotSince(ctx context.Context, lotID uint64, since time.Time) ([]model.ParkingSession, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM parking_sessions
		 WHERE lot_id = ? AND exit_time IS NOT NULL AND exit_time >= ?
		 ORDER BY exit_time DESC, id DESC`, lotID, utc(since))
}

func (r *SessionRepo) list(ctx context.Context, query string, args ...any) ([]model.ParkingSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ParkingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
