package shared

import (
	"context"
	"time"

	"spotmarket/internal/domain/booking"
	"spotmarket/internal/domain/spot"
	"spotmarket/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full read-write transaction with retry on serialization
	// failures and deadlocks.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Bookings() BookingRepository
	Spots() SpotRepository
	DB() db.DBTX
}

type BookingRepository interface {
	Insert(ctx context.Context, b *booking.Booking) error
	// FindByIDForUpdate locks the booking row until the transaction ends,
	// serializing concurrent state transitions of the same booking.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	// LockLiveIntervals takes FOR UPDATE row locks on every live booking of
	// the spot and returns their intervals. Must run inside the same
	// transaction as the subsequent Insert.
	LockLiveIntervals(ctx context.Context, spotID uuid.UUID) ([]booking.TimeSlot, error)
	UpdateState(ctx context.Context, b *booking.Booking) error
	FindDueForStart(ctx context.Context, now time.Time) ([]*booking.Booking, error)
	FindDueForCompletion(ctx context.Context, now time.Time) ([]*booking.Booking, error)
}

type SpotRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*spot.Spot, error)
	IncrementTotalBookings(ctx context.Context, spotID uuid.UUID) error
}
