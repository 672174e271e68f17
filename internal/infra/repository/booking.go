package repository

import (
	"context"
	"errors"
	"time"

	"spotmarket/internal/domain/booking"
	"spotmarket/internal/infra"
	"spotmarket/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrCodeUniqueViolation    = "23505"
	pgErrCodeExclusionViolation = "23P01"
)

const bookingColumns = `
	id, spot_id, renter_id, start_time, end_time, status,
	subtotal, service_fee, total_amount, owner_payout,
	payment_intent_id, payment_status,
	vehicle_plate, vehicle_make, vehicle_model, vehicle_color,
	special_requests, cancellation_reason,
	checked_in_at, checked_out_at, created_at, updated_at`

type BookingRepository struct {
	dbtx db.DBTX
}

func NewBookingRepository(dbtx db.DBTX) *BookingRepository {
	return &BookingRepository{dbtx: dbtx}
}

func (r *BookingRepository) Insert(ctx context.Context, b *booking.Booking) error {
	const stmt = `
INSERT INTO bookings (
	id, spot_id, renter_id, start_time, end_time, status,
	subtotal, service_fee, total_amount, owner_payout,
	payment_intent_id, payment_status,
	vehicle_plate, vehicle_make, vehicle_model, vehicle_color,
	special_requests, cancellation_reason, checked_in_at, checked_out_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	quote := b.Quote()
	vehicle := b.Vehicle()

	_, err := r.dbtx.Exec(ctx, stmt,
		b.ID(),
		b.SpotID(),
		b.RenterID(),
		b.Slot().Start(),
		b.Slot().End(),
		b.Status().String(),
		quote.Subtotal,
		quote.ServiceFee,
		quote.Total,
		quote.OwnerPayout,
		b.PaymentIntentID(),
		string(b.PaymentStatus()),
		emptyToNil(vehicle.Plate),
		emptyToNil(vehicle.Make),
		emptyToNil(vehicle.Model),
		emptyToNil(vehicle.Color),
		emptyToNil(b.SpecialRequests()),
		b.CancellationReason(),
		b.CheckedInAt(),
		b.CheckedOutAt(),
	)
	if err != nil {
		// The exclusion constraint is the second line of defense: a racing
		// transaction that slipped past the pre-check fails here and gets
		// the same conflict outcome.
		if isOverlapViolation(err) {
			return infra.WrapRepoErr("booking interval conflicts with an existing live booking", err, infra.KindConflict)
		}
		return infra.WrapRepoErr("failed to insert booking", err)
	}

	return nil
}

// FindByIDForUpdate locks the booking row for the rest of the transaction so
// that concurrent state transitions of the same booking serialize instead of
// both reading the pre-transition status.
func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	row := r.dbtx.QueryRow(ctx, query, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking by ID", err)
	}
	return b, nil
}

// LockLiveIntervals locks every live booking row for the spot and returns
// their intervals. The lock is held until the surrounding transaction
// commits or rolls back, closing the check-then-insert race window.
func (r *BookingRepository) LockLiveIntervals(ctx context.Context, spotID uuid.UUID) ([]booking.TimeSlot, error) {
	const query = `
SELECT start_time, end_time
FROM bookings
WHERE spot_id = $1 AND status = ANY($2)
FOR UPDATE`

	rows, err := r.dbtx.Query(ctx, query, spotID, booking.LiveStatuses())
	if err != nil {
		return nil, infra.WrapRepoErr("failed to lock live bookings", err)
	}
	defer rows.Close()

	var slots []booking.TimeSlot
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return nil, infra.WrapRepoErr("failed to scan live booking interval", err)
		}
		slot, err := booking.NewTimeSlot(start, end)
		if err != nil {
			return nil, infra.WrapRepoErr("stored booking has invalid interval", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read live bookings", err)
	}

	return slots, nil
}

func (r *BookingRepository) UpdateState(ctx context.Context, b *booking.Booking) error {
	const stmt = `
UPDATE bookings
SET status = $2,
    payment_status = $3,
    cancellation_reason = $4,
    checked_in_at = $5,
    checked_out_at = $6,
    updated_at = NOW()
WHERE id = $1`

	tag, err := r.dbtx.Exec(ctx, stmt,
		b.ID(),
		b.Status().String(),
		string(b.PaymentStatus()),
		b.CancellationReason(),
		b.CheckedInAt(),
		b.CheckedOutAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update booking state", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}

	return nil
}

// Due rows are locked so a user transition racing with the sweep waits and
// then observes the post-sweep status.
func (r *BookingRepository) FindDueForStart(ctx context.Context, now time.Time) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + `
FROM bookings
WHERE status = $1 AND start_time <= $2 AND end_time > $2
ORDER BY start_time
FOR UPDATE`

	return r.findAll(ctx, query, string(booking.StatusConfirmed), now)
}

func (r *BookingRepository) FindDueForCompletion(ctx context.Context, now time.Time) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + `
FROM bookings
WHERE status = ANY($1) AND end_time <= $2
ORDER BY end_time
FOR UPDATE`

	states := []string{string(booking.StatusInProgress), string(booking.StatusConfirmed)}
	return r.findAll(ctx, query, states, now)
}

func (r *BookingRepository) findAll(ctx context.Context, query string, args ...any) ([]*booking.Booking, error) {
	rows, err := r.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query bookings", err)
	}
	defer rows.Close()

	var result []*booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read bookings", err)
	}

	return result, nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		id, spotID, renterID                            uuid.UUID
		start, end                                      time.Time
		status, paymentStatus                           string
		subtotal, serviceFee, totalAmount, ownerPayout  int64
		paymentIntentID                                 *string
		plate, vehicleMake, model, color, requests      *string
		cancellationReason                              *string
		checkedInAt, checkedOutAt                       *time.Time
		createdAt, updatedAt                            time.Time
	)

	err := row.Scan(
		&id, &spotID, &renterID, &start, &end, &status,
		&subtotal, &serviceFee, &totalAmount, &ownerPayout,
		&paymentIntentID, &paymentStatus,
		&plate, &vehicleMake, &model, &color,
		&requests, &cancellationReason,
		&checkedInAt, &checkedOutAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	slot, err := booking.NewTimeSlot(start, end)
	if err != nil {
		return nil, err
	}

	quote := booking.Quote{
		Subtotal:    subtotal,
		ServiceFee:  serviceFee,
		Total:       totalAmount,
		OwnerPayout: ownerPayout,
	}

	return booking.ReconstructBooking(
		id, spotID, renterID,
		slot,
		booking.Status(status),
		quote,
		paymentIntentID,
		booking.PaymentStatus(paymentStatus),
		booking.Vehicle{
			Plate: derefOr(plate),
			Make:  derefOr(vehicleMake),
			Model: derefOr(model),
			Color: derefOr(color),
		},
		derefOr(requests),
		cancellationReason,
		checkedInAt, checkedOutAt,
		createdAt, updatedAt,
	), nil
}

func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgErrCodeExclusionViolation || pgErr.Code == pgErrCodeUniqueViolation
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
