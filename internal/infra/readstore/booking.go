package readstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spotmarket/internal/infra"
	"spotmarket/internal/usecase/queries"
)

// BookingReadStore serves the query side straight off the pool with joined
// projections. It never participates in the unit of work.
type BookingReadStore struct {
	pool *pgxpool.Pool
}

func NewBookingReadStore(pool *pgxpool.Pool) *BookingReadStore {
	return &BookingReadStore{pool: pool}
}

const bookingViewColumns = `
	b.id, b.renter_id, b.start_time, b.end_time, b.status,
	b.subtotal, b.service_fee, b.total_amount, b.owner_payout,
	b.payment_status,
	b.vehicle_plate, b.vehicle_make, b.vehicle_model, b.vehicle_color,
	b.special_requests, b.cancellation_reason,
	b.checked_in_at, b.checked_out_at, b.created_at, b.updated_at,
	s.id, s.owner_id, s.title, s.address, s.hourly_rate, s.daily_rate`

const bookingViewFrom = `
FROM bookings b
JOIN spots s ON s.id = b.spot_id`

func (r *BookingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	query := `SELECT` + bookingViewColumns + bookingViewFrom + `
WHERE b.id = $1`

	view, err := scanBookingView(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking view", err)
	}
	return view, nil
}

func (r *BookingReadStore) ListByRenter(ctx context.Context, renterID uuid.UUID, status *string) ([]*queries.BookingView, error) {
	query := `SELECT` + bookingViewColumns + bookingViewFrom + `
WHERE b.renter_id = $1 AND ($2::text IS NULL OR b.status = $2)
ORDER BY b.created_at DESC`

	return r.list(ctx, query, renterID, status)
}

func (r *BookingReadStore) ListByOwner(ctx context.Context, ownerID uuid.UUID, status *string) ([]*queries.BookingView, error) {
	query := `SELECT` + bookingViewColumns + bookingViewFrom + `
WHERE s.owner_id = $1 AND ($2::text IS NULL OR b.status = $2)
ORDER BY b.created_at DESC`

	return r.list(ctx, query, ownerID, status)
}

func (r *BookingReadStore) list(ctx context.Context, query string, args ...any) ([]*queries.BookingView, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query booking views", err)
	}
	defer rows.Close()

	var result []*queries.BookingView
	for rows.Next() {
		view, err := scanBookingView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking view", err)
		}
		result = append(result, view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read booking views", err)
	}

	return result, nil
}

func scanBookingView(row pgx.Row) (*queries.BookingView, error) {
	var v queries.BookingView
	err := row.Scan(
		&v.ID, &v.RenterID, &v.StartTime, &v.EndTime, &v.Status,
		&v.Subtotal, &v.ServiceFee, &v.TotalAmount, &v.OwnerPayout,
		&v.PaymentStatus,
		&v.VehiclePlate, &v.VehicleMake, &v.VehicleModel, &v.VehicleColor,
		&v.SpecialRequests, &v.CancellationReason,
		&v.CheckedInAt, &v.CheckedOutAt, &v.CreatedAt, &v.UpdatedAt,
		&v.Spot.ID, &v.Spot.OwnerID, &v.Spot.Title, &v.Spot.Address,
		&v.Spot.HourlyRate, &v.Spot.DailyRate,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
