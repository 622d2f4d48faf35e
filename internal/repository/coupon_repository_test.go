package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

func TestCouponCreateRejectsDuplicateCode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	lot := createLot(t, db, "30", "")
	createCoupon(t, db, lot.ID, "ABCDEF123456", t0)

	dup := model.Coupon{Code: "ABCDEF123456", LotID: lot.ID, GeneratedAt: t0, ExpiresAt: t0.Add(time.Hour)}
	err := NewCouponRepo(db).Create(ctx, &dup)

	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCouponGetByCode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	lot := createLot(t, db, "30", "")
	created := createCoupon(t, db, lot.ID, "ABCDEF123456", t0)

	got, err := NewCouponRepo(db).GetByCodeTx(ctx, db, "ABCDEF123456")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, lot.ID, got.LotID)
	assert.Equal(t, "Cafe", got.PartnerName.String)
	requireSameTime(t, t0.Add(2*time.Hour), got.ExpiresAt)
	assert.False(t, got.Used())

	_, err = NewCouponRepo(db).GetByCodeTx(ctx, db, "NOPE")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCouponRedeemOnlyOnce(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	lot := createLot(t, db, "30", "")
	s := createSession(t, db, lot.ID, "AB123", t0)
	createCoupon(t, db, lot.ID, "ABCDEF123456", t0)
	repo := NewCouponRepo(db)

	n, err := repo.RedeemTx(ctx, db, "ABCDEF123456", s.ID, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.RedeemTx(ctx, db, "ABCDEF123456", s.ID, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	got, err := repo.GetByCodeTx(ctx, db, "ABCDEF123456")
	require.NoError(t, err)
	assert.True(t, got.Used())
	assert.Equal(t, int64(s.ID), got.SessionID.Int64)
	requireSameTime(t, t0.Add(time.Minute), got.UsedAt.Time)
}

func TestCouponSweep(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	lot := createLot(t, db, "30", "")
	s := createSession(t, db, lot.ID, "AB123", t0)
	repo := NewCouponRepo(db)

	createCoupon(t, db, lot.ID, "EXPIRED00001", t0.Add(-3*time.Hour))
	createCoupon(t, db, lot.ID, "BOUNDARY0001", t0.Add(-2*time.Hour))
	createCoupon(t, db, lot.ID, "ACTIVE000001", t0)
	createCoupon(t, db, lot.ID, "STALEUSED001", t0.Add(-30*time.Hour))
	_, err := repo.RedeemTx(ctx, db, "STALEUSED001", s.ID, t0.Add(-29*time.Hour))
	require.NoError(t, err)

	n, err := repo.DeleteExpired(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "a coupon expiring exactly now is kept")

	n, err = repo.DeleteUsedBefore(ctx, t0.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := repo.ListGeneratedSince(ctx, 0, t0.AddDate(0, 0, -30))
	require.NoError(t, err)
	codes := make([]string, 0, len(left))
	for _, c := range left {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"ACTIVE000001", "BOUNDARY0001"}, codes)
}

func TestCouponListFiltersByLot(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	lotA := createLot(t, db, "30", "")
	lotB := createLot(t, db, "30", "")
	createCoupon(t, db, lotA.ID, "LOTA00000001", t0)
	createCoupon(t, db, lotB.ID, "LOTB00000001", t0)

	got, err := NewCouponRepo(db).ListGeneratedSince(ctx, lotB.ID, t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "LOTB00000001", got[0].Code)
}
