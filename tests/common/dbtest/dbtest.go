//go:build unit || e2e

package dbtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// DBLike is the minimal interface required for test DB operations.
type DBLike interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateTestSpot inserts a bookable spot and returns its ID.
func CreateTestSpot(t *testing.T, db DBLike, ownerID uuid.UUID, title string, hourlyRate int64, dailyRate *int64) uuid.UUID {
	t.Helper()

	spotID := uuid.New()
	_, err := db.Exec(context.Background(), `
INSERT INTO spots (id, owner_id, title, address, hourly_rate, daily_rate, is_active, is_available)
VALUES ($1, $2, $3, $4, $5, $6, true, true)`,
		spotID, ownerID, title, title+" Street 1", hourlyRate, dailyRate)
	require.NoError(t, err)

	return spotID
}

// DeactivateSpot flips the active flag so the spot rejects new bookings.
func DeactivateSpot(t *testing.T, db DBLike, spotID uuid.UUID) {
	t.Helper()

	_, err := db.Exec(context.Background(), `UPDATE spots SET is_active = false WHERE id = $1`, spotID)
	require.NoError(t, err)
}

// SpotTotalBookings reads the completed-booking counter.
func SpotTotalBookings(t *testing.T, db DBLike, spotID uuid.UUID) int32 {
	t.Helper()

	var total int32
	err := db.QueryRow(context.Background(), `SELECT total_bookings FROM spots WHERE id = $1`, spotID).Scan(&total)
	require.NoError(t, err)
	return total
}

// BookingStatus reads a booking's current status directly.
func BookingStatus(t *testing.T, db DBLike, bookingID uuid.UUID) string {
	t.Helper()

	var status string
	err := db.QueryRow(context.Background(), `SELECT status FROM bookings WHERE id = $1`, bookingID).Scan(&status)
	require.NoError(t, err)
	return status
}

// ResetDB truncates mutable tables between subtests.
func ResetDB(pool *pgxpool.Pool) error {
	_, err := pool.Exec(context.Background(), `TRUNCATE bookings, spots CASCADE`)
	return err
}
