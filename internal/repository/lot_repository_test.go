package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotCreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	created := createLot(t, db, "2.50", "20")

	got, err := NewLotRepo(db).GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Central", got.Name)
	assert.Equal(t, "2.50", got.HourlyRate.StringFixed(2))
	assert.True(t, got.HasDailyCap())
	assert.Equal(t, "20.00", got.DailyMaxRate.Decimal.StringFixed(2))
	requireSameTime(t, t0, got.CreatedAt)

	_, err = NewLotRepo(db).GetByID(ctx, 404)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLotWithoutDailyCap(t *testing.T) {
	db := setupTestDB(t)
	created := createLot(t, db, "30", "")

	got, err := NewLotRepo(db).GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, got.HasDailyCap())
}

func TestLotOccupancy(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	lotA := createLot(t, db, "30", "")
	lotB := createLot(t, db, "30", "")
	createSession(t, db, lotA.ID, "AB1", t0)
	createSession(t, db, lotA.ID, "AB2", t0)
	gone := createSession(t, db, lotA.ID, "AB3", t0)
	_, err := NewSessionRepo(db).CloseTx(ctx, db, gone.ID, t0)
	require.NoError(t, err)

	occ, err := NewLotRepo(db).Occupancy(ctx, lotA.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, occ.CurrentOccupancy)
	assert.Equal(t, 2, occ.AvailableSpaces())
	assert.Equal(t, 50.0, occ.OccupancyRate())

	all, err := NewLotRepo(db).ListWithOccupancy(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[0].CurrentOccupancy)
	assert.Equal(t, 0, all[1].CurrentOccupancy)

	some, err := NewLotRepo(db).ListWithOccupancy(ctx, []uint64{lotB.ID})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, lotB.ID, some[0].Lot.ID)
}
