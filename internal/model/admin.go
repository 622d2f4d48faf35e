package model

import "time"

// Admin roles.  Super admins manage every lot; lot admins only the lots
// assigned to them.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleLotAdmin   = "LOT_ADMIN"
)

// Admin is a dashboard account as stored in the `admins` table together
// with its lot assignments from `admin_lot_assignments`.
//
// Fields:
//
//	ID           – primary key identifier.
//	Username     – unique login name.
//	PasswordHash – bcrypt hash.
//	Role         – SUPER_ADMIN or LOT_ADMIN.
//	LotIDs       – assigned lots (ignored for super admins).
//	CreatedAt    – timestamp of creation.
type Admin struct {
	ID           uint64    // admins.id
	Username     string    // admins.username
	PasswordHash string    // admins.password_hash
	Role         string    // admins.role
	LotIDs       []uint64  // admin_lot_assignments.lot_id
	CreatedAt    time.Time // admins.created_at
}

// CanAccessLot reports whether the admin may act on lotID.
func (a Admin) CanAccessLot(lotID uint64) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	for _, id := range a.LotIDs {
		if id == lotID {
			return true
		}
	}
	return false
}
