package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// LotRepo reads and creates parking lots.  Rates are stored as DECIMAL
// columns and scanned into decimal values.
type LotRepo struct {
	db *sql.DB
}

// NewLotRepo returns a LotRepo bound to the given database.
func NewLotRepo(db *sql.DB) *LotRepo { return &LotRepo{db: db} }

const lotColumns = `id, name, address, total_spaces, hourly_rate, daily_max_rate, created_at`

func scanLot(row rowScanner) (model.ParkingLot, error) {
	var l model.ParkingLot
	err := row.Scan(&l.ID, &l.Name, &l.Address, &l.TotalSpaces, &l.HourlyRate, &l.DailyMaxRate, &l.CreatedAt)
	return l, err
}

// GetByID returns the lot with the given id or sql.ErrNoRows.
func (r *LotRepo) GetByID(ctx context.Context, id uint64) (model.ParkingLot, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

// GetByIDTx is GetByID on an arbitrary query executor.
func (r *LotRepo) GetByIDTx(ctx context.Context, q DBTX, id uint64) (model.ParkingLot, error) {
	return scanLot(q.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM parking_lots WHERE id = ? LIMIT 1`, id))
}

// Create inserts a lot and fills in its ID.  CreatedAt must be set by the
// caller.
func (r *LotRepo) Create(ctx context.Context, l *model.ParkingLot) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO parking_lots (name, address, total_spaces, hourly_rate, daily_max_rate, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		l.Name, l.Address, l.TotalSpaces, l.HourlyRate, l.DailyMaxRate, l.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// ListWithOccupancy returns every lot (or only ids when non-empty) with
// the number of open sessions inside it, ordered by id.
func (r *LotRepo) ListWithOccupancy(ctx context.Context, ids []uint64) ([]model.LotOccupancy, error) {
	query := `SELECT l.id, l.name, l.address, l.total_spaces, l.hourly_rate, l.daily_max_rate, l.created_at,
	                 COUNT(s.id)
	          FROM parking_lots l
	          LEFT JOIN parking_sessions s ON s.lot_id = l.id AND s.exit_time IS NULL`
	args := make([]any, 0, len(ids))
	if len(ids) > 0 {
		query += ` WHERE l.id IN (` + placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` GROUP BY l.id, l.name, l.address, l.total_spaces, l.hourly_rate, l.daily_max_rate, l.created_at ORDER BY l.id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LotOccupancy
	for rows.Next() {
		var o model.LotOccupancy
		l := &o.Lot
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.TotalSpaces, &l.HourlyRate, &l.DailyMaxRate, &l.CreatedAt, &o.CurrentOccupancy); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Occupancy returns one lot with its open session count.
func (r *LotRepo) Occupancy(ctx context.Context, id uint64) (model.LotOccupancy, error) {
	lot, err := r.GetByID(ctx, id)
	if err != nil {
		return model.LotOccupancy{}, err
	}
	var n int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking_sessions WHERE lot_id = ? AND exit_time IS NULL`, id).Scan(&n)
	if err != nil {
		return model.LotOccupancy{}, err
	}
	return model.LotOccupancy{Lot: lot, CurrentOccupancy: n}, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

// utc normalizes timestamps before they are bound as parameters.
func utc(t time.Time) time.Time { return t.UTC() }
