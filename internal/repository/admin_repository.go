package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// AdminRepo reads dashboard accounts and their lot assignments.  Accounts
// are provisioned out of band; this service never writes them.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

// GetByUsername fetches an admin by case-insensitive username.
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (model.Admin, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var a model.Admin
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,password_hash,role,created_at FROM admins WHERE username=? LIMIT 1",
		username).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt)
	if err != nil {
		return a, err
	}
	a.LotIDs, err = r.lotIDs(ctx, a.ID)
	return a, err
}

// GetByID fetches an admin by id.
func (r *AdminRepo) GetByID(ctx context.Context, id uint64) (model.Admin, error) {
	var a model.Admin
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,password_hash,role,created_at FROM admins WHERE id=? LIMIT 1",
		id).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt)
	if err != nil {
		return a, err
	}
	a.LotIDs, err = r.lotIDs(ctx, a.ID)
	return a, err
}

func (r *AdminRepo) lotIDs(ctx context.Context, adminID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT lot_id FROM admin_lot_assignments WHERE admin_id=? ORDER BY lot_id", adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
