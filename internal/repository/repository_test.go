package repository

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/parking-lot-billing/internal/model"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// setupTestDB opens a private in-memory SQLite database with the test
// schema.  One connection keeps the database alive and serializes
// transactions.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("testdata/schema.sql")
	require.NoError(t, err)
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func createLot(t *testing.T, db *sql.DB, rate string, dailyMax string) model.ParkingLot {
	t.Helper()
	l := model.ParkingLot{
		Name:        "Central",
		Address:     "1 Main St",
		TotalSpaces: 4,
		HourlyRate:  decimal.RequireFromString(rate),
		CreatedAt:   t0,
	}
	if dailyMax != "" {
		l.DailyMaxRate = decimal.NewNullDecimal(decimal.RequireFromString(dailyMax))
	}
	require.NoError(t, NewLotRepo(db).Create(context.Background(), &l))
	return l
}

func createSession(t *testing.T, db *sql.DB, lotID uint64, plate string, entry time.Time) model.ParkingSession {
	t.Helper()
	s := model.ParkingSession{LotID: lotID, Plate: plate, EntryTime: entry}
	require.NoError(t, NewSessionRepo(db).CreateTx(context.Background(), db, &s))
	return s
}

func createCoupon(t *testing.T, db *sql.DB, lotID uint64, code string, generated time.Time) model.Coupon {
	t.Helper()
	c := model.Coupon{
		Code:        code,
		LotID:       lotID,
		GeneratedAt: generated,
		ExpiresAt:   generated.Add(2 * time.Hour),
		PartnerName: null.StringFrom("Cafe"),
	}
	require.NoError(t, NewCouponRepo(db).Create(context.Background(), &c))
	return c
}

func requireSameTime(t *testing.T, want, got time.Time) {
	t.Helper()
	require.True(t, want.Equal(got), "want %s, got %s", want, got)
}
