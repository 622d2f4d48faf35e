package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// CouponRepo persists discount coupons.  The code column carries a unique
// index; redemption is a conditional update on used_at.
type CouponRepo struct {
	db *sql.DB
}

// NewCouponRepo returns a CouponRepo bound to the given database.
func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

const couponColumns = `id, code, lot_id, generated_at, expires_at, used_at, session_id, partner_name`

func scanCoupon(row rowScanner) (model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.LotID, &c.GeneratedAt, &c.ExpiresAt, &c.UsedAt, &c.SessionID, &c.PartnerName)
	return c, err
}

// GetByCodeTx returns the coupon with the given code or sql.ErrNoRows.
func (r *CouponRepo) GetByCodeTx(ctx context.Context, q DBTX, code string) (model.Coupon, error) {
	return scanCoupon(q.QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = ? LIMIT 1`, code))
}

// Create inserts an unused coupon and fills in its ID.  A duplicate code
// is reported as ErrDuplicate.
func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO coupons (code, lot_id, generated_at, expires_at, partner_name) VALUES (?, ?, ?, ?, ?)`,
		c.Code, c.LotID, utc(c.GeneratedAt), utc(c.ExpiresAt), c.PartnerName)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// RedeemTx marks code as used by sessionID only if it is still unused.
// Exactly one of any number of concurrent calls for the same code changes
// a row; the others observe 0.
func (r *CouponRepo) RedeemTx(ctx context.Context, q DBTX, code string, sessionID uint64, at time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE coupons SET used_at = ?, session_id = ? WHERE code = ? AND used_at IS NULL`,
		utc(at), sessionID, code)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListGeneratedSince returns coupons generated at or after since, newest
// first.  lotID 0 selects every lot.
func (r *CouponRepo) ListGeneratedSince(ctx context.Context, lotID uint64, since time.Time) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE generated_at >= ?`
	args := []any{utc(since)}
	if lotID != 0 {
		query += ` AND lot_id = ?`
		args = append(args, lotID)
	}
	query += ` ORDER BY generated_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteExpired removes unused coupons whose expiry lies before now.
func (r *CouponRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM coupons WHERE used_at IS NULL AND expires_at < ?`, utc(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteUsedBefore removes coupons redeemed before cutoff.
func (r *CouponRepo) DeleteUsedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM coupons WHERE used_at IS NOT NULL AND used_at < ?`, utc(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
