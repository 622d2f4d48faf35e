package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLookups(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	lotA := createLot(t, db, "30", "")
	lotB := createLot(t, db, "20", "100")
	repo := NewSessionRepo(db)

	older := createSession(t, db, lotA.ID, "AB123", t0)
	newer := createSession(t, db, lotB.ID, "AB123", t0.Add(time.Hour))

	got, err := repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "AB123", got.Plate)
	assert.Equal(t, lotA.ID, got.LotID)
	requireSameTime(t, t0, got.EntryTime)
	assert.False(t, got.PaidUntil.Valid)
	assert.False(t, got.ExitTime.Valid)
	assert.False(t, got.TotalFee.Valid)

	got, err = repo.OpenByPlateTx(ctx, db, lotA.ID, "AB123")
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	got, err = repo.LatestOpenByPlateTx(ctx, db, "AB123")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = repo.OpenByPlateTx(ctx, db, lotA.ID, "ZZ999")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionRecordPaymentAccumulates(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	lot := createLot(t, db, "30", "")
	repo := NewSessionRepo(db)
	s := createSession(t, db, lot.ID, "AB123", t0)

	n, err := repo.RecordPaymentTx(ctx, db, s.ID, t0.Add(2*time.Hour), decimal.RequireFromString("60"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.RecordPaymentTx(ctx, db, s.ID, t0.Add(4*time.Hour), decimal.RequireFromString("15.50"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.50", got.TotalFee.Decimal.StringFixed(2))
	requireSameTime(t, t0.Add(4*time.Hour), got.PaidUntil.Time)
}

func TestSessionCloseIsConditional(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	lot := createLot(t, db, "30", "")
	repo := NewSessionRepo(db)
	s := createSession(t, db, lot.ID, "AB123", t0)

	n, err := repo.CloseTx(ctx, db, s.ID, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.CloseTx(ctx, db, s.ID, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.RecordPaymentTx(ctx, db, s.ID, t0.Add(3*time.Hour), decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "closed sessions accept no payment")

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	requireSameTime(t, t0.Add(time.Hour), got.ExitTime.Time)

	_, err = repo.OpenByPlateTx(ctx, db, lot.ID, "AB123")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionListings(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	lot := createLot(t, db, "30", "")
	repo := NewSessionRepo(db)

	createSession(t, db, lot.ID, "OPEN1", t0)
	createSession(t, db, lot.ID, "OPEN2", t0.Add(time.Minute))
	left := createSession(t, db, lot.ID, "GONE1", t0.Add(-48*time.Hour))
	old := createSession(t, db, lot.ID, "GONE2", t0.Add(-30*24*time.Hour))
	_, err := repo.CloseTx(ctx, db, left.ID, t0.Add(-47*time.Hour))
	require.NoError(t, err)
	_, err = repo.CloseTx(ctx, db, old.ID, t0.Add(-29*24*time.Hour))
	require.NoError(t, err)

	open, err := repo.ListOpenByLot(ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "OPEN1", open[0].Plate)

	history, err := repo.ListClosedByLotSince(ctx, lot.ID, t0.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "GONE1", history[0].Plate)
}
