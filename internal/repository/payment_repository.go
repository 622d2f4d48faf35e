package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

// PaymentRepo persists the immutable payment transaction log.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// InsertTx appends a transaction and fills in its ID.
func (r *PaymentRepo) InsertTx(ctx context.Context, q DBTX, t *model.PaymentTransaction) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO payment_transactions (transaction_id, session_id, amount, method, paid_at) VALUES (?, ?, ?, ?, ?)`,
		t.TransactionID, t.SessionID, t.Amount, string(t.Method), utc(t.PaidAt))
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
	t.ID = uint64(id)
	return nil
}

// ListBySession returns the transactions of a session in payment order.
func (r *PaymentRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.PaymentTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, transaction_id, session_id, amount, method, paid_at
		 FROM payment_transactions WHERE session_id = ? ORDER BY paid_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PaymentTransaction
	for rows.Next() {
		var t model.PaymentTransaction
		var method string
		if err := rows.Scan(&t.ID, &t.TransactionID, &t.SessionID, &t.Amount, &method, &t.PaidAt); err != nil {
			return nil, err
		}
		t.Method = model.PaymentMethod(method)
		out = append(out, t)
	}
	return out, rows.Err()
}
