package queries

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"spotmarket/internal/infra"
	"spotmarket/internal/pkg/errs"
)

var ErrBookingNotFound = errors.New("booking not found")

// BookingReadStore is the query-side persistence port. Reads bypass the
// unit of work and hit the pool directly with joined projections.
type BookingReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
	ListByRenter(ctx context.Context, renterID uuid.UUID, status *string) ([]*BookingView, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, status *string) ([]*BookingView, error)
}

type BookingQueries interface {
	// GetByID returns the booking only when requesterID is the renter,
	// the spot owner, or requesterRole is admin.
	GetByID(ctx context.Context, id uuid.UUID, requesterID uuid.UUID, requesterRole string) (*BookingView, error)
	ListByRenter(ctx context.Context, renterID uuid.UUID, status *string) ([]*BookingView, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, status *string) ([]*BookingView, error)
}

type bookingQueries struct {
	store BookingReadStore
}

func NewBookingQueries(store BookingReadStore) BookingQueries {
	return &bookingQueries{store: store}
}

var ErrNotAuthorized = errors.New("not authorized to view this booking")

func (q *bookingQueries) GetByID(ctx context.Context, id uuid.UUID, requesterID uuid.UUID, requesterRole string) (*BookingView, error) {
	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrBookingNotFound)
		}
		return nil, errs.Wrap(err, "failed to get booking")
	}
	if view.RenterID != requesterID && view.Spot.OwnerID != requesterID && requesterRole != "admin" {
		return nil, ErrNotAuthorized
	}
	return view, nil
}

func (q *bookingQueries) ListByRenter(ctx context.Context, renterID uuid.UUID, status *string) ([]*BookingView, error) {
	views, err := q.store.ListByRenter(ctx, renterID, status)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list renter bookings")
	}
	return views, nil
}

func (q *bookingQueries) ListByOwner(ctx context.Context, ownerID uuid.UUID, status *string) ([]*BookingView, error) {
	views, err := q.store.ListByOwner(ctx, ownerID, status)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list owner bookings")
	}
	return views, nil
}
